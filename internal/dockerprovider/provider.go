// Package dockerprovider implements the runtime provider interface (C5)
// over a local Docker daemon: C6 of the sandbox lifecycle control plane.
package dockerprovider

import (
	"context"
	"fmt"
	"sync"

	"github.com/docker/docker/client"

	"github.com/opensandbox/control-plane/internal/sandboxerr"
)

// Provider implements provider.Provider against a local Docker daemon.
type Provider struct {
	client *client.Client
	cfg    Config

	execdMu     sync.Mutex
	execdBytes  []byte
	execdLoaded bool
}

// New connects to the configured Docker daemon. It fails with
// DockerInitializationError if the daemon is unreachable or the network
// mode is not host/bridge.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.NetworkMode != NetworkModeHost && cfg.NetworkMode != NetworkModeBridge {
		return nil, sandboxerr.New(sandboxerr.DockerInitializationError, "network mode must be %q or %q, got %q", NetworkModeHost, NetworkModeBridge, cfg.NetworkMode)
	}

	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}
	if cfg.TLSCertDir != "" {
		opts = append(opts, client.WithTLSClientConfigFromEnv())
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, sandboxerr.Wrap(sandboxerr.DockerInitializationError, err, "failed to construct docker client")
	}

	if _, err := cli.Ping(ctx); err != nil {
		return nil, sandboxerr.Wrap(sandboxerr.DockerInitializationError, err, "docker daemon unreachable at %s", cfg.Host)
	}

	return &Provider{client: cli, cfg: cfg}, nil
}

func (p *Provider) Close() error {
	return p.client.Close()
}

func containerName(id string) string {
	return fmt.Sprintf("sandbox-%s", id)
}
