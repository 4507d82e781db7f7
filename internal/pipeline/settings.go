package pipeline

import (
	"fmt"
	"sync/atomic"
)

// Settings is an immutable snapshot of the calibration parameters.
type Settings struct {
	CalibrationEnabled bool    `json:"calibration_enabled"`
	Alpha              float64 `json:"calibration_alpha"`
	MaxRatio           float64 `json:"calibration_max_ratio"`
	MinRatio           float64 `json:"calibration_min_ratio"`
	FloorLookbackDays  int     `json:"floor_lookback_days"`
	FloorCoef          float64 `json:"floor_coef"`
	SafetyDays         int     `json:"safety_days"`
	SafetyWindowDays   int     `json:"safety_window_days"`
	BiasClipLower      float64 `json:"bias_clip_lower"`
	BiasClipUpper      float64 `json:"bias_clip_upper"`
	ApplyBias          bool    `json:"apply_bias"`
}

func DefaultSettings() Settings {
	return Settings{
		CalibrationEnabled: true,
		Alpha:              0.3,
		MaxRatio:           2.5,
		MinRatio:           0.4,
		FloorLookbackDays:  14,
		FloorCoef:          0.85,
		SafetyDays:         3,
		SafetyWindowDays:   30,
		BiasClipLower:      0.5,
		BiasClipUpper:      3.0,
		ApplyBias:          false,
	}
}

// ConfigValidationError names the setting that failed validation.
type ConfigValidationError struct {
	Field  string
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("invalid setting %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ConfigValidationError{Field: field, Reason: reason}
}

// Validate checks every field of the snapshot.
func (s Settings) Validate() error {
	if s.Alpha < 0 || s.Alpha > 1 {
		return invalid("calibration_alpha", "must be between 0 and 1")
	}
	if s.MaxRatio <= 1 {
		return invalid("calibration_max_ratio", "must be greater than 1")
	}
	if s.MinRatio <= 0 || s.MinRatio >= 1 {
		return invalid("calibration_min_ratio", "must be between 0 and 1 exclusive")
	}
	if s.FloorLookbackDays < 1 {
		return invalid("floor_lookback_days", "must be at least 1")
	}
	if s.FloorCoef < 0 || s.FloorCoef > 1 {
		return invalid("floor_coef", "must be between 0 and 1")
	}
	if s.SafetyDays < 0 {
		return invalid("safety_days", "must not be negative")
	}
	if s.SafetyWindowDays < 1 {
		return invalid("safety_window_days", "must be at least 1")
	}
	if s.BiasClipLower <= 0 {
		return invalid("bias_clip_lower", "must be positive")
	}
	if s.BiasClipUpper < s.BiasClipLower {
		return invalid("bias_clip_upper", "must not be below bias_clip_lower")
	}
	return nil
}

// SettingsUpdate is a partial update; nil fields keep their current value.
type SettingsUpdate struct {
	CalibrationEnabled *bool    `json:"calibration_enabled,omitempty"`
	Alpha              *float64 `json:"calibration_alpha,omitempty"`
	MaxRatio           *float64 `json:"calibration_max_ratio,omitempty"`
	MinRatio           *float64 `json:"calibration_min_ratio,omitempty"`
	FloorLookbackDays  *int     `json:"floor_lookback_days,omitempty"`
	FloorCoef          *float64 `json:"floor_coef,omitempty"`
	SafetyDays         *int     `json:"safety_days,omitempty"`
	SafetyWindowDays   *int     `json:"safety_window_days,omitempty"`
	BiasClipLower      *float64 `json:"bias_clip_lower,omitempty"`
	BiasClipUpper      *float64 `json:"bias_clip_upper,omitempty"`
	ApplyBias          *bool    `json:"apply_bias,omitempty"`
}

// Apply returns a new snapshot with the update merged in, or the first validation error.
func (s Settings) Apply(u SettingsUpdate) (Settings, error) {
	next := s
	if u.CalibrationEnabled != nil {
		next.CalibrationEnabled = *u.CalibrationEnabled
	}
	if u.Alpha != nil {
		next.Alpha = *u.Alpha
	}
	if u.MaxRatio != nil {
		next.MaxRatio = *u.MaxRatio
	}
	if u.MinRatio != nil {
		next.MinRatio = *u.MinRatio
	}
	if u.FloorLookbackDays != nil {
		next.FloorLookbackDays = *u.FloorLookbackDays
	}
	if u.FloorCoef != nil {
		next.FloorCoef = *u.FloorCoef
	}
	if u.SafetyDays != nil {
		next.SafetyDays = *u.SafetyDays
	}
	if u.SafetyWindowDays != nil {
		next.SafetyWindowDays = *u.SafetyWindowDays
	}
	if u.BiasClipLower != nil {
		next.BiasClipLower = *u.BiasClipLower
	}
	if u.BiasClipUpper != nil {
		next.BiasClipUpper = *u.BiasClipUpper
	}
	if u.ApplyBias != nil {
		next.ApplyBias = *u.ApplyBias
	}

	if err := next.Validate(); err != nil {
		return s, err
	}
	return next, nil
}

// SettingsStore publishes settings snapshots. Concurrent updates are last write wins.
type SettingsStore struct {
	current atomic.Pointer[Settings]
}

func NewSettingsStore(initial Settings) (*SettingsStore, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	store := &SettingsStore{}
	store.current.Store(&initial)
	return store, nil
}

// Current returns the snapshot in effect.
func (s *SettingsStore) Current() Settings {
	return *s.current.Load()
}

// Update validates the merged snapshot and swaps it in. Nothing changes on error.
func (s *SettingsStore) Update(u SettingsUpdate) (Settings, Settings, error) {
	old := s.Current()
	next, err := old.Apply(u)
	if err != nil {
		return old, old, err
	}
	s.current.Store(&next)
	return old, next, nil
}
