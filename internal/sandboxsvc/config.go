// Package sandboxsvc implements the sandbox service (C8): the stateless
// façade the HTTP layer calls. It validates input, stamps identity,
// selects a provider, owns the expiration tracker (C3) and pending
// registry (C4), and translates provider errors into the shared
// taxonomy.
package sandboxsvc

import "time"

// RuntimeType selects which provider backs the service.
type RuntimeType string

const (
	RuntimeDocker     RuntimeType = "docker"
	RuntimeKubernetes RuntimeType = "kubernetes"
)

// Config configures the service's own policy, independent of the
// selected provider's configuration.
type Config struct {
	RuntimeType RuntimeType
	Namespace   string
	ExecdImage  string

	// PendingFailureTTL bounds how long a Failed pending record remains
	// visible before get_sandbox returns 404 (env PENDING_FAILURE_TTL,
	// default 3600s).
	PendingFailureTTL time.Duration

	// PollInterval/PollTimeout govern the Kubernetes readiness wait after
	// create (default 1s / 60s).
	PollInterval time.Duration
	PollTimeout  time.Duration

	// ProvisionWorkers sizes the small background task pool that
	// completes Docker's async provisioning path.
	ProvisionWorkers int
}

func DefaultConfig() Config {
	return Config{
		RuntimeType:       RuntimeDocker,
		Namespace:         "default",
		PendingFailureTTL: time.Hour,
		PollInterval:      time.Second,
		PollTimeout:       60 * time.Second,
		ProvisionWorkers:  4,
	}
}
