package history

import (
	"context"
	"errors"

	"github.com/harrison/greenlight/internal/models"
	"github.com/harrison/greenlight/internal/review"
)

// MultiRecorder fans one review result out to several recorders. Every
// recorder is attempted; failures are joined rather than short-circuiting,
// since the sinks are independent.
type MultiRecorder struct {
	recorders []review.Recorder
}

// NewMultiRecorder combines recorders, skipping nil entries.
func NewMultiRecorder(recorders ...review.Recorder) *MultiRecorder {
	m := &MultiRecorder{}
	for _, r := range recorders {
		if r != nil {
			m.recorders = append(m.recorders, r)
		}
	}
	return m
}

// Record delivers the result to every recorder.
func (m *MultiRecorder) Record(ctx context.Context, result *models.ReviewResult) error {
	var errs []error
	for _, r := range m.recorders {
		if err := r.Record(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
