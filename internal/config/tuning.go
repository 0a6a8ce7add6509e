package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Tuning is the on-disk shape of the runtime tuning options. Fields left out
// of the file keep whatever default the caller already has.
type Tuning struct {
	ScanInterval        *string  `json:"scan_interval,omitempty"`        // duration string like "2s"
	OrientationInterval *string  `json:"orientation_interval,omitempty"` // duration string like "100ms"
	FieldOfView         *float64 `json:"field_of_view,omitempty"`        // degrees
	RSSIThreshold       *int     `json:"rssi_threshold,omitempty"`       // dBm
	RangeCutoff         *float64 `json:"range_cutoff,omitempty"`         // meters
	HistorySize         *int     `json:"history_size,omitempty"`
}

// maxHistorySize matches positioning.MaxHistorySize.
const maxHistorySize = 10

// LoadTuning reads a Tuning from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadTuning(path string) (*Tuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	const maxFileSize = 1 << 20
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	t := &Tuning{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parse config JSON: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return t, nil
}

// Validate checks that every set field is in range.
func (t *Tuning) Validate() error {
	var errs []error
	if t.ScanInterval != nil {
		if d, err := time.ParseDuration(*t.ScanInterval); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("scan_interval must be a positive duration, got %q", *t.ScanInterval))
		}
	}
	if t.OrientationInterval != nil {
		if d, err := time.ParseDuration(*t.OrientationInterval); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("orientation_interval must be a positive duration, got %q", *t.OrientationInterval))
		}
	}
	if t.FieldOfView != nil && (*t.FieldOfView <= 0 || *t.FieldOfView >= 180) {
		errs = append(errs, fmt.Errorf("field_of_view must be in (0,180), got %v", *t.FieldOfView))
	}
	if t.RSSIThreshold != nil && *t.RSSIThreshold >= 0 {
		errs = append(errs, fmt.Errorf("rssi_threshold must be negative, got %d", *t.RSSIThreshold))
	}
	if t.RangeCutoff != nil && *t.RangeCutoff <= 0 {
		errs = append(errs, fmt.Errorf("range_cutoff must be positive, got %v", *t.RangeCutoff))
	}
	if t.HistorySize != nil && (*t.HistorySize < 1 || *t.HistorySize > maxHistorySize) {
		errs = append(errs, fmt.Errorf("history_size must be in [1,%d], got %d", maxHistorySize, *t.HistorySize))
	}
	return errors.Join(errs...)
}

// ScanIntervalOr returns the parsed scan interval or def when unset.
func (t *Tuning) ScanIntervalOr(def time.Duration) time.Duration {
	return durationOr(t.ScanInterval, def)
}

// OrientationIntervalOr returns the parsed orientation interval or def when unset.
func (t *Tuning) OrientationIntervalOr(def time.Duration) time.Duration {
	return durationOr(t.OrientationInterval, def)
}

// FieldOfViewOr returns the field of view or def when unset.
func (t *Tuning) FieldOfViewOr(def float64) float64 {
	if t.FieldOfView == nil {
		return def
	}
	return *t.FieldOfView
}

// RSSIThresholdOr returns the RSSI threshold or def when unset.
func (t *Tuning) RSSIThresholdOr(def int) int {
	if t.RSSIThreshold == nil {
		return def
	}
	return *t.RSSIThreshold
}

// RangeCutoffOr returns the overlay range cutoff or def when unset.
func (t *Tuning) RangeCutoffOr(def float64) float64 {
	if t.RangeCutoff == nil {
		return def
	}
	return *t.RangeCutoff
}

// HistorySizeOr returns the history size or def when unset.
func (t *Tuning) HistorySizeOr(def int) int {
	if t.HistorySize == nil {
		return def
	}
	return *t.HistorySize
}

func durationOr(s *string, def time.Duration) time.Duration {
	if s == nil {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def
	}
	return d
}
