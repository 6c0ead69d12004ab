package dockerprovider

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensandbox/control-plane/internal/sandboxmodel"
)

func TestEncodeRegistryAuthRoundTrips(t *testing.T) {
	auth := &sandboxmodel.ImageAuth{Username: "svc-account", Password: "s3cr3t"}

	encoded, err := encodeRegistryAuth(auth)
	require.NoError(t, err)

	raw, err := base64.URLEncoding.DecodeString(encoded)
	require.NoError(t, err)

	var cfg types.AuthConfig
	require.NoError(t, json.Unmarshal(raw, &cfg))
	assert.Equal(t, "svc-account", cfg.Username)
	assert.Equal(t, "s3cr3t", cfg.Password)
}
