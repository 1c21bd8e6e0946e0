package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ESCALATION_RUN_AT", "")
	t.Setenv("SLA_TIMEZONE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.SLA.InquiryDays)
	assert.Equal(t, 7, cfg.SLA.ComplaintMinorDays)
	assert.Equal(t, 15, cfg.SLA.ComplaintMajorDays)
	assert.True(t, cfg.Escalation.CrossSectionFallback)
	assert.Equal(t, "02:00", cfg.Escalation.RunAt)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SLA_COMPLAINT_MAJOR_DAYS", "20")
	t.Setenv("ESCALATION_RUN_AT", "23:45")
	t.Setenv("ESCALATION_CROSS_SECTION_FALLBACK", "false")
	t.Setenv("SLA_TIMEZONE", "Africa/Addis_Ababa")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.SLA.ComplaintMajorDays)
	assert.False(t, cfg.Escalation.CrossSectionFallback)

	hour, minute, err := cfg.Escalation.RunAtClock()
	require.NoError(t, err)
	assert.Equal(t, 23, hour)
	assert.Equal(t, 45, minute)
}

func TestLoadRejectsBadRunAt(t *testing.T) {
	t.Setenv("ESCALATION_RUN_AT", "25:00")
	_, err := Load()
	assert.Error(t, err)
}

func TestGetEnvAsIntFallsBack(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	assert.Equal(t, 9, getEnvAsInt("SOME_INT", 9))
}
