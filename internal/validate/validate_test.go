package validate

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensandbox/control-plane/internal/sandboxerr"
	"github.com/opensandbox/control-plane/internal/sandboxmodel"
)

func TestEnsureEntrypoint(t *testing.T) {
	cases := []struct {
		name       string
		entrypoint []string
		wantErr    bool
	}{
		{"valid", []string{"python3", "app.py"}, false},
		{"empty slice", nil, true},
		{"empty arg", []string{"python3", ""}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := EnsureEntrypoint(tc.entrypoint)
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, sandboxerr.InvalidEntrypoint, err.Code)
			} else {
				assert.Nil(t, err)
			}
		})
	}
}

func TestEnsureMetadataLabels(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.Nil(t, EnsureMetadataLabels(map[string]string{"team": "platform", "tier.v2": "gold"}))
	})
	t.Run("invalid key", func(t *testing.T) {
		err := EnsureMetadataLabels(map[string]string{"-bad-key": "x"})
		require.Error(t, err)
		assert.Equal(t, sandboxerr.InvalidMetadataLabel, err.Code)
	})
	t.Run("blank value", func(t *testing.T) {
		err := EnsureMetadataLabels(map[string]string{"team": "   "})
		require.Error(t, err)
		assert.Equal(t, sandboxerr.InvalidMetadataLabel, err.Code)
	})
}

func TestEnsureFutureExpiration(t *testing.T) {
	t.Run("future accepted and normalized to UTC", func(t *testing.T) {
		future := time.Now().Add(time.Hour)
		got, err := EnsureFutureExpiration(future)
		require.Nil(t, err)
		assert.Equal(t, time.UTC, got.Location())
		assert.WithinDuration(t, future, got, time.Second)
	})
	t.Run("past rejected", func(t *testing.T) {
		_, err := EnsureFutureExpiration(time.Now().Add(-time.Hour))
		require.Error(t, err)
		assert.Equal(t, sandboxerr.InvalidExpiration, err.Code)
	})
}

func TestEnsureVolumeMounts(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid absolute dir", func(t *testing.T) {
		err := EnsureVolumeMounts([]sandboxmodel.VolumeMount{{HostPath: dir, ContainerPath: "/data"}})
		assert.Nil(t, err)
	})
	t.Run("missing container path", func(t *testing.T) {
		err := EnsureVolumeMounts([]sandboxmodel.VolumeMount{{HostPath: dir}})
		require.Error(t, err)
		assert.Equal(t, sandboxerr.InvalidVolumeMount, err.Code)
	})
	t.Run("nonexistent host path", func(t *testing.T) {
		err := EnsureVolumeMounts([]sandboxmodel.VolumeMount{{HostPath: dir + "/nope", ContainerPath: "/data"}})
		require.Error(t, err)
		assert.Equal(t, sandboxerr.InvalidVolumeMount, err.Code)
	})
	t.Run("host path is a file, not a dir", func(t *testing.T) {
		f, err := os.CreateTemp(dir, "file")
		require.NoError(t, err)
		defer f.Close()
		verr := EnsureVolumeMounts([]sandboxmodel.VolumeMount{{HostPath: f.Name(), ContainerPath: "/data"}})
		require.Error(t, verr)
		assert.Equal(t, sandboxerr.InvalidVolumeMount, verr.Code)
	})
}

func TestEnsurePort(t *testing.T) {
	assert.Nil(t, EnsurePort(8080))
	assert.Nil(t, EnsurePort(1))
	assert.Nil(t, EnsurePort(65535))

	for _, bad := range []int{0, -1, 65536, 100000} {
		err := EnsurePort(bad)
		require.Error(t, err)
		assert.Equal(t, sandboxerr.InvalidPort, err.Code)
	}
}

func TestEnsureTimeoutSeconds(t *testing.T) {
	assert.Nil(t, EnsureTimeoutSeconds(60))
	assert.Nil(t, EnsureTimeoutSeconds(300))
	assert.Nil(t, EnsureTimeoutSeconds(86400))

	for _, bad := range []int{0, 59, 86401, -1} {
		err := EnsureTimeoutSeconds(bad)
		require.Error(t, err)
		assert.Equal(t, sandboxerr.InvalidParameter, err.Code)
	}
}

func TestEnsurePagination(t *testing.T) {
	assert.Nil(t, EnsurePagination(1, 1))
	assert.Nil(t, EnsurePagination(1, 200))
	assert.Nil(t, EnsurePagination(5, 20))

	for _, bad := range []struct{ page, pageSize int }{
		{0, 20}, {-1, 20}, {1, 0}, {1, -1}, {1, 201},
	} {
		err := EnsurePagination(bad.page, bad.pageSize)
		require.Error(t, err)
		assert.Equal(t, sandboxerr.InvalidParameter, err.Code)
	}
}

func TestParseMemoryLimit(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantOK  bool
	}{
		{"512", 512, true},
		{"1K", 1000, true},
		{"1Ki", 1024, true},
		{"2M", 2 * 1000 * 1000, true},
		{"1.5Gi", int64(1.5 * 1024 * 1024 * 1024), true},
		{"", 0, false},
		{"abc", 0, false},
		{"5Zi", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseMemoryLimit(tc.in)
			assert.Equal(t, tc.wantOK, ok)
			if ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestParseNanoCPUs(t *testing.T) {
	cases := []struct {
		in     string
		want   int64
		wantOK bool
	}{
		{"500m", 500_000_000, true},
		{"2", 2_000_000_000, true},
		{"0.5", 500_000_000, true},
		{"bogus", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseNanoCPUs(tc.in)
			assert.Equal(t, tc.wantOK, ok)
			if ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Run("empty returns epoch", func(t *testing.T) {
		assert.Equal(t, epoch, ParseTimestamp(""))
	})
	t.Run("sentinel returns epoch", func(t *testing.T) {
		assert.Equal(t, epoch, ParseTimestamp("0001-01-01T00:00:00Z"))
	})
	t.Run("unparseable returns epoch", func(t *testing.T) {
		assert.Equal(t, epoch, ParseTimestamp("not-a-time"))
	})
	t.Run("valid RFC3339", func(t *testing.T) {
		got := ParseTimestamp("2026-01-02T15:04:05Z")
		assert.Equal(t, 2026, got.Year())
		assert.Equal(t, time.UTC, got.Location())
	})
}

type fakeMatchable struct {
	state    string
	metadata map[string]string
}

func (f fakeMatchable) MatchState() string              { return f.state }
func (f fakeMatchable) MatchMetadata() map[string]string { return f.metadata }

func TestMatchesFilter(t *testing.T) {
	sbx := fakeMatchable{state: "running", metadata: map[string]string{"team": "platform"}}

	cases := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter matches all", Filter{}, true},
		{"matching state", Filter{State: []string{"paused", "running"}}, true},
		{"non-matching state", Filter{State: []string{"paused"}}, false},
		{"matching metadata", Filter{Metadata: map[string]string{"team": "platform"}}, true},
		{"non-matching metadata value", Filter{Metadata: map[string]string{"team": "other"}}, false},
		{"missing metadata key", Filter{Metadata: map[string]string{"absent": "x"}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MatchesFilter(sbx, tc.filter))
		})
	}
}
