package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yugmi/sense-api/internal/domain"
)

func TestAllCapabilities_Count(t *testing.T) {
	assert.Len(t, domain.AllCapabilities, 15)
}

func TestFullPermissions_GrantsEverything(t *testing.T) {
	p := domain.FullPermissions()
	for _, c := range domain.AllCapabilities {
		assert.True(t, p.Allows(c), string(c))
	}
}

func TestDefaultPermissions(t *testing.T) {
	p := domain.DefaultPermissions()

	granted := map[domain.Capability]bool{
		domain.CanViewProject:   true,
		domain.CanViewSite:      true,
		domain.CanCapture:       true,
		domain.CanAnnotate:      true,
		domain.CanViewCaptures:  true,
		domain.CanViewReport:    true,
		domain.CanShareCaptures: true,
	}
	for _, c := range domain.AllCapabilities {
		assert.Equal(t, granted[c], p.Allows(c), string(c))
	}
}

func TestPermissions_UnknownCapabilityDenied(t *testing.T) {
	p := domain.FullPermissions()
	assert.False(t, p.Allows(domain.Capability("canLaunchRockets")))
}

func TestPermissions_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(domain.Permissions{CanManageUsers: true})
	require.NoError(t, err)

	var raw map[string]bool
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Len(t, raw, 15)
	for _, c := range domain.AllCapabilities {
		_, ok := raw[string(c)]
		assert.True(t, ok, "missing key %s", c)
	}
	assert.True(t, raw["canManageUsers"])
}

func TestSharedVia_WithAccumulates(t *testing.T) {
	s := domain.SharedVia{}.With(domain.ShareEmail).With(domain.ShareWhatsApp)
	assert.True(t, s.Email)
	assert.True(t, s.WhatsApp)
	assert.False(t, s.Report)
}

func TestParseDate(t *testing.T) {
	d, err := domain.ParseDate("2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, 15, d.Day())

	d, err = domain.ParseDate("2024-03-01T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, d.Hour())

	_, err = domain.ParseDate("15/01/2024")
	assert.Error(t, err)
}
