package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/structural")
	t.Setenv("OCR_MAX_RETRIES", "")

	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.OCR.MaxRetries)
	assert.InDelta(t, 0.7, cfg.OCR.ConfidenceThreshold, 1e-9)
	assert.Equal(t, "30s", cfg.OCR.Timeout.String())
	assert.Equal(t, 20.0, cfg.Rules.MinFck)
	assert.Equal(t, 90.0, cfg.Rules.MaxFck)
	assert.Equal(t, 0.04, cfg.Rules.PillarMaxSteel)
	assert.Equal(t, 1.4, cfg.Rules.SafetyFactor)
	assert.Equal(t, 25.0, cfg.Extraction.DefaultFck)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_URL", "file:test.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("OCR_MAX_RETRIES", "5")
	t.Setenv("RULES_MIN_FCK", "25")
	t.Setenv("OCR_TIMEOUT", "not-a-duration")

	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.OCR.MaxRetries)
	assert.Equal(t, 25.0, cfg.Rules.MinFck)
	assert.Equal(t, "30s", cfg.OCR.Timeout.String(), "unparsable values fall back to default")
}

func TestConfigValidate(t *testing.T) {
	t.Setenv("DB_URL", "")
	cfg := LoadConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)

	t.Setenv("DB_URL", "x")
	t.Setenv("DB_DRIVER", "mysql")
	assert.Error(t, LoadConfig().Validate())
}

func TestErrorCodeAndUserErrors(t *testing.T) {
	wrapped := fmt.Errorf("start: %w", ErrAnalysisInProgress)
	assert.Equal(t, "ANALYSIS_IN_PROGRESS", ErrorCode(wrapped))
	assert.True(t, IsUserError(wrapped))

	assert.Equal(t, "NOT_FOUND", ErrorCode(ErrNotFound))
	assert.False(t, IsUserError(ErrNotFound))
	assert.False(t, IsUserError(errors.New("boom")))
	assert.Equal(t, "INTERNAL", ErrorCode(errors.New("boom")))

	appErr := NewAppError("CONFIG_ERROR", "bad", ErrInvalidInput)
	assert.Equal(t, "CONFIG_ERROR", ErrorCode(appErr))
	assert.Equal(t, "CONFIG_ERROR: bad: invalid input", appErr.Error())
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	tests := []struct {
		name    string
		schema  map[string]any
		key     string
		data    string
		wantErr bool
	}{
		{"member ok", MemberDimensionsSchema, "member_dimensions", `{"width":20,"height":40,"length":300}`, false},
		{"member zero width", MemberDimensionsSchema, "member_dimensions", `{"width":0,"height":40,"length":300}`, true},
		{"member with thickness", MemberDimensionsSchema, "member_dimensions", `{"width":20,"height":40,"length":300,"thickness":10}`, true},
		{"slab ok", SlabDimensionsSchema, "slab_dimensions", `{"width":300,"length":500,"thickness":15}`, false},
		{"slab missing thickness", SlabDimensionsSchema, "slab_dimensions", `{"width":300,"length":500}`, true},
		{"materials ok", MaterialsSchema, "materials", `{"concrete":{"fck":25},"steel":{"weight":0}}`, false},
		{"materials negative steel", MaterialsSchema, "materials", `{"concrete":{"fck":25},"steel":{"weight":-1}}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSONAgainstSchema(tt.key, tt.schema, []byte(tt.data))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}
