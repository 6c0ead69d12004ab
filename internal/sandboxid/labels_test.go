package sandboxid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	a := New()
	b := New()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestContainerName(t *testing.T) {
	assert.Equal(t, "sandbox-abc123", ContainerName("abc123"))
}

func TestWorkloadName(t *testing.T) {
	assert.Equal(t, "sandbox-abc123", WorkloadName("abc123"))
}

func TestIDLabelSelector(t *testing.T) {
	assert.Equal(t, "opensandbox.io/id=abc123", IDLabelSelector("abc123"))
}

func TestIsReserved(t *testing.T) {
	cases := []struct {
		name string
		key  string
		want bool
	}{
		{"reserved id label", IDLabel, true},
		{"reserved prefix", "opensandbox.io/whatever", true},
		{"user key", "team", false},
		{"empty key", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsReserved(tc.key))
		})
	}
}

func TestStripReserved(t *testing.T) {
	t.Run("nil on empty input", func(t *testing.T) {
		assert.Nil(t, StripReserved(nil))
	})

	t.Run("nil when everything reserved", func(t *testing.T) {
		in := map[string]string{IDLabel: "x", ExpiresAtLabel: "y"}
		assert.Nil(t, StripReserved(in))
	})

	t.Run("keeps user keys, drops reserved", func(t *testing.T) {
		in := map[string]string{
			IDLabel: "x",
			"team":  "platform",
			"tier":  "gold",
		}
		got := StripReserved(in)
		assert.Equal(t, map[string]string{"team": "platform", "tier": "gold"}, got)
	})
}
