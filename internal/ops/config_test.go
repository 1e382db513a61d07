package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"quantityScale": 2,
		"priceScale": 4,
		"users": [
			{"id": 1, "name": "trader"},
			{"id": 2, "name": "dealer"}
		],
		"instruments": [
			{"cusip": "912828U40", "securityId": 1, "name": "UST 2Y", "enabled": true, "minSize": "100"}
		],
		"queue": {"commandCapacity": 16, "outboundCapacity": 32},
		"retention": {"terminalAfterMs": 60000}
	}`)

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, loaded.Users.Count())
	assert.True(t, loaded.Users.IsValidUser(1))
	assert.False(t, loaded.Users.IsValidUser(9))

	assert.True(t, loaded.Instruments.IsValidCusip("912828U40"))
	assert.True(t, loaded.Instruments.IsEnabled("912828U40"))
	// minSize "100" scaled by 2 decimal places.
	assert.Equal(t, schema.Quantity(10_000), loaded.Instruments.MinSize("912828U40"))

	assert.Equal(t, 16, loaded.Queue.CommandCapacity)
	assert.Equal(t, 32, loaded.Queue.OutboundCapacity)
	assert.Equal(t, schema.ClusterTime(60_000), loaded.Retention.TerminalAfter())

	view := loaded.RefData()
	assert.True(t, view.IsValidUser(2))
	assert.True(t, view.IsEnabled("912828U40"))
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
quantityScale: 0
priceScale: 2
users:
  - id: 1
    name: trader
instruments:
  - cusip: 912828U40
    securityId: 1
    name: UST 2Y
    enabled: false
    minSize: "250"
`)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Users.IsValidUser(1))
	assert.False(t, loaded.Instruments.IsEnabled("912828U40"))
	assert.Equal(t, schema.Quantity(250), loaded.Instruments.MinSize("912828U40"))

	// Queue capacities default when unset.
	assert.Equal(t, 1024, loaded.Queue.CommandCapacity)
	assert.Equal(t, 4096, loaded.Queue.OutboundCapacity)
}

func TestLoadRejectsExcessPrecision(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"quantityScale": 1,
		"instruments": [
			{"cusip": "912828U40", "securityId": 1, "enabled": true, "minSize": "100.25"}
		]
	}`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestParseQuantity(t *testing.T) {
	testCases := []struct {
		value    string
		scale    int32
		expected schema.Quantity
		ok       bool
	}{
		{"", 2, 0, true},
		{"100", 0, 100, true},
		{"100", 2, 10_000, true},
		{"0.5", 1, 5, true},
		{"99.875", 3, 99_875, true},
		{"0.5", 0, 0, false},
		{"abc", 0, 0, false},
	}

	for _, tc := range testCases {
		got, err := ParseQuantity(tc.value, tc.scale)
		if !tc.ok {
			assert.Errorf(t, err, "value %q scale %d", tc.value, tc.scale)
			continue
		}
		require.NoErrorf(t, err, "value %q scale %d", tc.value, tc.scale)
		assert.Equal(t, tc.expected, got)
	}
}

func TestParsePrice(t *testing.T) {
	got, err := ParsePrice("99.875", 3)
	require.NoError(t, err)
	assert.Equal(t, schema.Price(99_875), got)

	_, err = ParsePrice("99.8755", 3)
	assert.Error(t, err)
}

func TestLoadRejectsDuplicateUser(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"users": [
			{"id": 1, "name": "a"},
			{"id": 1, "name": "b"}
		]
	}`)
	_, err := Load(path)
	assert.Error(t, err)
}
