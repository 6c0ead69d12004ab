package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SANDBOX_CONFIG_PATH", "SERVER_HOST", "SERVER_PORT", "DATABASE_DSN",
		"RUNTIME_TYPE", "K8S_NAMESPACE", "EXECD_IMAGE", "PUBLIC_HOST",
		"DOCKER_HOST", "DOCKER_TLS_CERTDIR", "DOCKER_API_TIMEOUT", "DOCKER_NETWORK_MODE",
		"KUBECONFIG", "K8S_TEMPLATE_PATH", "K8S_POLL_INTERVAL", "K8S_POLL_TIMEOUT",
		"PENDING_FAILURE_TTL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "docker", cfg.Runtime.Type)
	assert.Equal(t, "default", cfg.Runtime.Namespace)
	assert.Equal(t, "localhost", cfg.Runtime.PublicHost)
	assert.Equal(t, "bridge", cfg.Docker.NetworkMode)
	assert.Equal(t, 180*time.Second, cfg.Docker.APITimeout)
	assert.Equal(t, time.Hour, cfg.Pending.FailureTTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("RUNTIME_TYPE", "kubernetes")
	t.Setenv("DOCKER_NETWORK_MODE", "host")
	t.Setenv("PENDING_FAILURE_TTL", "120")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "kubernetes", cfg.Runtime.Type)
	assert.Equal(t, "host", cfg.Docker.NetworkMode)
	assert.Equal(t, 120*time.Second, cfg.Pending.FailureTTL)
}

func TestValidateRejectsBadPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "70000")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejectsBadRuntimeType(t *testing.T) {
	clearEnv(t)
	t.Setenv("RUNTIME_TYPE", "vmware")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejectsBadNetworkMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOCKER_NETWORK_MODE", "overlay")
	_, err := Load()
	assert.Error(t, err)
}
