package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvGetters(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	t.Setenv("SALESDASH_TEST_STR", "csv")
	t.Setenv("SALESDASH_TEST_INT", " 42 ")
	t.Setenv("SALESDASH_TEST_BAD_INT", "forty-two")
	t.Setenv("SALESDASH_TEST_FLOAT", "2.5")
	t.Setenv("SALESDASH_TEST_BOOL", "Yes")
	t.Setenv("SALESDASH_TEST_DURATION", "90s")
	t.Setenv("SALESDASH_TEST_LEVEL", "WARNING")

	assert.Equal(t, "csv", GetEnvStr("SALESDASH_TEST_STR", "xlsx"))
	assert.Equal(t, "xlsx", GetEnvStr("SALESDASH_TEST_UNSET", "xlsx"))
	assert.Equal(t, 42, GetEnvInt("SALESDASH_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvInt("SALESDASH_TEST_BAD_INT", 1))
	assert.Equal(t, int64(42), GetEnvInt64("SALESDASH_TEST_INT", 1))
	assert.InDelta(t, 2.5, GetEnvFloat64("SALESDASH_TEST_FLOAT", 1), 1e-9)
	assert.True(t, GetEnvBool("SALESDASH_TEST_BOOL", false))
	assert.Equal(t, 90*time.Second, GetEnvDuration("SALESDASH_TEST_DURATION", time.Second))
	assert.Equal(t, slog.LevelWarn, GetEnvLogLevel("SALESDASH_TEST_LEVEL", slog.LevelInfo))
}

func TestParseCommaSeparatedList(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", []string{}},
		{"single", "Germany", []string{"Germany"}},
		{"trims and drops blanks", " Germany , ,USA ", []string{"Germany", "USA"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCommaSeparatedList(tt.input))
		})
	}
}
