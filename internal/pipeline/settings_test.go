package pipeline

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsAreValid(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())
}

func TestSettingsStoreUpdate(t *testing.T) {
	store, err := NewSettingsStore(DefaultSettings())
	require.NoError(t, err)

	alpha := 0.5
	enabled := false
	old, updated, err := store.Update(SettingsUpdate{Alpha: &alpha, CalibrationEnabled: &enabled})

	require.NoError(t, err)
	assert.Equal(t, 0.3, old.Alpha)
	assert.Equal(t, 0.5, updated.Alpha)
	assert.False(t, updated.CalibrationEnabled)
	assert.Equal(t, updated, store.Current())
}

func TestSettingsStoreRejectsWholeUpdate(t *testing.T) {
	store, err := NewSettingsStore(DefaultSettings())
	require.NoError(t, err)

	alpha := 0.9
	maxRatio := 1.0
	_, _, err = store.Update(SettingsUpdate{Alpha: &alpha, MaxRatio: &maxRatio})

	var cfgErr *ConfigValidationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "calibration_max_ratio", cfgErr.Field)
	assert.Equal(t, DefaultSettings(), store.Current(), "no partial update")
}

func TestSettingsValidation(t *testing.T) {
	cases := []struct {
		field  string
		mutate func(*Settings)
	}{
		{"calibration_alpha", func(s *Settings) { s.Alpha = 1.5 }},
		{"calibration_alpha", func(s *Settings) { s.Alpha = -0.1 }},
		{"calibration_max_ratio", func(s *Settings) { s.MaxRatio = 1 }},
		{"calibration_min_ratio", func(s *Settings) { s.MinRatio = 0 }},
		{"calibration_min_ratio", func(s *Settings) { s.MinRatio = 1 }},
		{"floor_lookback_days", func(s *Settings) { s.FloorLookbackDays = 0 }},
		{"floor_coef", func(s *Settings) { s.FloorCoef = 1.2 }},
		{"safety_days", func(s *Settings) { s.SafetyDays = -1 }},
		{"safety_window_days", func(s *Settings) { s.SafetyWindowDays = 0 }},
		{"bias_clip_lower", func(s *Settings) { s.BiasClipLower = 0 }},
		{"bias_clip_upper", func(s *Settings) { s.BiasClipUpper = 0.4 }},
	}

	for _, tc := range cases {
		s := DefaultSettings()
		tc.mutate(&s)

		err := s.Validate()
		var cfgErr *ConfigValidationError
		require.True(t, errors.As(err, &cfgErr), tc.field)
		assert.Equal(t, tc.field, cfgErr.Field)
	}
}

func TestNewSettingsStoreRejectsInvalid(t *testing.T) {
	s := DefaultSettings()
	s.MinRatio = 2
	_, err := NewSettingsStore(s)
	assert.Error(t, err)
}

func TestSettingsStoreConcurrentReaders(t *testing.T) {
	store, err := NewSettingsStore(DefaultSettings())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			alpha := float64(i) / 10
			_, _, _ = store.Update(SettingsUpdate{Alpha: &alpha})
		}(i)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Current().Validate())
		}()
	}
	wg.Wait()
}
