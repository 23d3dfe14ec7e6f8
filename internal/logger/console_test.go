package logger

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harrison/greenlight/internal/models"
)

// TestNewConsoleLogger verifies the constructor creates a ConsoleLogger with the provided writer.
func TestNewConsoleLogger(t *testing.T) {
	t.Run("with valid writer", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewConsoleLogger(buf, "info")

		if logger == nil {
			t.Error("expected non-nil logger")
		}
		if logger.writer != buf {
			t.Error("writer not set correctly")
		}
		if logger.logLevel != "info" {
			t.Errorf("expected log level %q, got %q", "info", logger.logLevel)
		}
	})

	t.Run("with nil writer", func(t *testing.T) {
		logger := NewConsoleLogger(nil, "info")
		if logger == nil {
			t.Error("expected non-nil logger even with nil writer")
		}
		if logger.writer != nil {
			t.Error("expected nil writer")
		}
	})

	t.Run("buffer writer disables color", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewConsoleLogger(buf, "info")
		if logger.colorOutput {
			t.Error("expected color output disabled for non-terminal writer")
		}
	})
}

// TestLogReviewResult verifies per-iteration review logging.
func TestLogReviewResult(t *testing.T) {
	tests := []struct {
		name         string
		logLevel     string
		result       models.ReviewResult
		expectedText string
		shouldAppear bool
	}{
		{
			name:     "approved iteration at debug level",
			logLevel: "debug",
			result: models.ReviewResult{
				TaskID:       "task-1",
				Iteration:    1,
				QualityScore: 1.0,
				Decision:     models.DecisionApproved,
			},
			expectedText: "Review 1 (task-1): approved quality=1.00 gaps=0",
			shouldAppear: true,
		},
		{
			name:     "needs_work iteration with gaps",
			logLevel: "debug",
			result: models.ReviewResult{
				TaskID:       "task-2",
				Iteration:    2,
				QualityScore: 0.64,
				Decision:     models.DecisionNeedsWork,
				Gaps: []models.Gap{
					{Severity: models.SeverityMajor, Description: "no tests"},
					{Severity: models.SeverityMinor, Description: "missing estimate"},
				},
			},
			expectedText: "Review 2 (task-2): needs_work quality=0.64 gaps=2",
			shouldAppear: true,
		},
		{
			name:     "filtered at info level",
			logLevel: "info",
			result: models.ReviewResult{
				TaskID:    "task-3",
				Iteration: 1,
				Decision:  models.DecisionApproved,
			},
			expectedText: "Review 1 (task-3)",
			shouldAppear: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewConsoleLogger(buf, tt.logLevel)

			if err := logger.LogReviewResult(tt.result); err != nil {
				t.Fatalf("LogReviewResult() error = %v", err)
			}

			output := buf.String()
			contains := strings.Contains(output, tt.expectedText)

			if tt.shouldAppear && !contains {
				t.Errorf("expected output to contain %q, got %q", tt.expectedText, output)
			}
			if !tt.shouldAppear && contains {
				t.Errorf("expected output NOT to contain %q, got %q", tt.expectedText, output)
			}

			// Verify timestamp prefix on emitted lines
			if tt.shouldAppear && !strings.HasPrefix(output, "[") {
				t.Error("expected output to start with timestamp [")
			}
		})
	}
}

// TestLogReviewSummary verifies review summary formatting.
func TestLogReviewSummary(t *testing.T) {
	tests := []struct {
		name          string
		taskID        string
		reviews       []models.ReviewResult
		duration      time.Duration
		expectedTexts []string
		notExpected   []string
	}{
		{
			name:   "approved first iteration",
			taskID: "task-1",
			reviews: []models.ReviewResult{
				{
					TaskID:       "task-1",
					Iteration:    1,
					QualityScore: 0.91,
					Decision:     models.DecisionApproved,
				},
			},
			duration: 2 * time.Minute,
			expectedTexts: []string{
				"=== Review Summary ===",
				"Task: task-1",
				"Iterations: 1",
				"Decision: approved",
				"Quality: 0.91",
				"Duration: 2m",
			},
			notExpected: []string{"Open gaps:", "Gaps:"},
		},
		{
			name:   "escalated with remaining gaps",
			taskID: "task-2",
			reviews: []models.ReviewResult{
				{TaskID: "task-2", Iteration: 1, Decision: models.DecisionNeedsWork},
				{TaskID: "task-2", Iteration: 2, Decision: models.DecisionNeedsWork},
				{
					TaskID:       "task-2",
					Iteration:    3,
					QualityScore: 0.52,
					Decision:     models.DecisionEscalate,
					CriticalGaps: 1,
					Gaps: []models.Gap{
						{Severity: models.SeverityCritical, Description: "missing auth check"},
						{Severity: models.SeverityMajor, Description: "no error handling"},
					},
				},
			},
			duration: 3 * time.Minute,
			expectedTexts: []string{
				"=== Review Summary ===",
				"Task: task-2",
				"Iterations: 3",
				"Decision: escalate",
				"Gaps: 2 (1 critical)",
				"Duration: 3m",
				"Open gaps:",
				"[critical] missing auth check",
				"[major] no error handling",
			},
			notExpected: []string{},
		},
		{
			name:     "review bypassed",
			taskID:   "task-9",
			reviews:  []models.ReviewResult{},
			duration: 5 * time.Second,
			expectedTexts: []string{
				"Task task-9: review bypassed (5s)",
			},
			notExpected: []string{"=== Review Summary ==="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewConsoleLogger(buf, "info")

			logger.LogReviewSummary(tt.taskID, tt.reviews, tt.duration)

			output := buf.String()

			for _, expected := range tt.expectedTexts {
				if !strings.Contains(output, expected) {
					t.Errorf("expected output to contain %q, got %q", expected, output)
				}
			}

			for _, notExp := range tt.notExpected {
				if strings.Contains(output, notExp) {
					t.Errorf("expected output NOT to contain %q, got %q", notExp, output)
				}
			}
		})
	}
}

// TestTimestampFormat verifies timestamps are formatted correctly as HH:MM:SS.
func TestTimestampFormat(t *testing.T) {
	ts := timestamp()

	// Verify format is HH:MM:SS (8 characters total with colons)
	if len(ts) != 8 {
		t.Errorf("expected timestamp length 8, got %d: %s", len(ts), ts)
	}

	// Verify colons at correct positions
	if ts[2] != ':' || ts[5] != ':' {
		t.Errorf("expected colons at positions 2 and 5, got %s", ts)
	}

	// Verify all other characters are digits
	parts := strings.Split(ts, ":")
	if len(parts) != 3 {
		t.Errorf("expected 3 parts separated by colons, got %d", len(parts))
	}

	for i, part := range parts {
		if len(part) != 2 {
			t.Errorf("expected part %d to have length 2, got %d", i, len(part))
		}
		for _, ch := range part {
			if ch < '0' || ch > '9' {
				t.Errorf("expected digit in timestamp, got %c", ch)
			}
		}
	}
}

// TestConcurrentLogging verifies thread safety with concurrent logging.
func TestConcurrentLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "debug")

	// Track successful operations
	var successCount int32 = 0

	// Run multiple goroutines logging concurrently
	numGoroutines := 10
	wg := sync.WaitGroup{}
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(index int) {
			defer wg.Done()

			taskID := fmt.Sprintf("task-%d", index)
			result := models.ReviewResult{
				TaskID:       taskID,
				Iteration:    1,
				QualityScore: 0.85,
				Decision:     models.DecisionApproved,
			}

			logger.LogInfo(fmt.Sprintf("reviewing %s", taskID))
			logger.LogReviewResult(result)
			logger.LogReviewSummary(taskID, []models.ReviewResult{result}, time.Second)

			atomic.AddInt32(&successCount, 1)
		}(i)
	}

	wg.Wait()

	// Verify all operations completed
	if successCount != int32(numGoroutines) {
		t.Errorf("expected %d successful operations, got %d", numGoroutines, successCount)
	}

	// Verify output was written
	output := buf.String()
	if len(output) == 0 {
		t.Error("expected non-empty output")
	}

	// Verify no data corruption (all task IDs present)
	for i := 0; i < numGoroutines; i++ {
		taskID := fmt.Sprintf("task-%d", i)
		if !strings.Contains(output, taskID) {
			t.Errorf("expected output to contain %q", taskID)
		}
	}
}

// TestNilWriter verifies that nil writer is handled gracefully.
func TestNilWriter(t *testing.T) {
	logger := NewConsoleLogger(nil, "debug")

	// These should not panic
	logger.LogInfo("info message")
	logger.LogWarn("warn message")

	result := models.ReviewResult{
		TaskID:    "task-1",
		Iteration: 1,
		Decision:  models.DecisionApproved,
	}
	if err := logger.LogReviewResult(result); err != nil {
		t.Errorf("LogReviewResult() with nil writer error = %v", err)
	}
	logger.LogReviewSummary("task-1", []models.ReviewResult{result}, time.Minute)

	// If we got here without panic, test passed
}

// TestDurationFormatting verifies duration formatting for various time ranges.
func TestDurationFormatting(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{
			name:     "zero",
			duration: 0,
			expected: "0s",
		},
		{
			name:     "5 seconds",
			duration: 5 * time.Second,
			expected: "5s",
		},
		{
			name:     "30 seconds",
			duration: 30 * time.Second,
			expected: "30s",
		},
		{
			name:     "exactly 1 minute",
			duration: time.Minute,
			expected: "1m",
		},
		{
			name:     "90 seconds",
			duration: 90 * time.Second,
			expected: "1m30s",
		},
		{
			name:     "exactly 1 hour",
			duration: time.Hour,
			expected: "1h",
		},
		{
			name:     "2 hours 15 minutes",
			duration: 2*time.Hour + 15*time.Minute,
			expected: "2h15m",
		},
		{
			name:     "2 hours 15 minutes 3 seconds",
			duration: 2*time.Hour + 15*time.Minute + 3*time.Second,
			expected: "2h15m3s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatDuration(tt.duration)
			if got != tt.expected {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.duration, got, tt.expected)
			}
		})
	}
}

// TestNoOpLogger verifies the no-op logger discards everything without error.
func TestNoOpLogger(t *testing.T) {
	logger := NewNoOpLogger()

	logger.LogTrace("trace")
	logger.LogDebug("debug")
	logger.LogInfo("info")
	logger.LogWarn("warn")
	logger.LogError("error")

	result := models.ReviewResult{TaskID: "task-1", Iteration: 1, Decision: models.DecisionApproved}
	if err := logger.LogReviewResult(result); err != nil {
		t.Errorf("LogReviewResult() error = %v", err)
	}
	logger.LogReviewSummary("task-1", []models.ReviewResult{result}, time.Second)
}
