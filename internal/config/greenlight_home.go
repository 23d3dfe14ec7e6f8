package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GetGreenlightHome returns the greenlight home directory
// Priority order:
//  1. GREENLIGHT_HOME environment variable (if set)
//  2. Repository root (detected by a .greenlight-root marker or go.mod)
//  3. Current working directory (fallback)
//
// The directory is created if it doesn't exist
func GetGreenlightHome() (string, error) {
	// Try env var first
	if home := os.Getenv("GREENLIGHT_HOME"); home != "" {
		return home, nil
	}

	// Try to find the repo root by looking for a marker or go.mod
	repoRoot, err := findRepoRoot()
	if err == nil && repoRoot != "" {
		home := filepath.Join(repoRoot, ".greenlight")
		// Ensure directory exists
		if err := os.MkdirAll(home, 0755); err != nil {
			return "", fmt.Errorf("create greenlight home directory: %w", err)
		}
		return home, nil
	}

	// Fallback to current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	home := filepath.Join(cwd, ".greenlight")

	// Ensure directory exists
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create greenlight home directory: %w", err)
	}

	return home, nil
}

// findRepoRoot finds the repository root by looking for a .greenlight-root
// marker file, or a go.mod containing the greenlight module path
func findRepoRoot() (string, error) {
	// Start from current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	current := cwd
	for {
		// First check for a .greenlight-root marker file (highest priority)
		markerPath := filepath.Join(current, ".greenlight-root")
		if _, err := os.Stat(markerPath); err == nil {
			return current, nil
		}

		// Check for go.mod with the greenlight module path
		goModPath := filepath.Join(current, "go.mod")
		if data, err := os.ReadFile(goModPath); err == nil {
			if strings.Contains(string(data), "github.com/harrison/greenlight") {
				return current, nil
			}
		}

		// Move up one directory
		parent := filepath.Dir(current)
		if parent == current {
			// Reached filesystem root
			break
		}
		current = parent
	}

	return "", fmt.Errorf("repository root not found (looking for .greenlight-root or go.mod with github.com/harrison/greenlight)")
}

