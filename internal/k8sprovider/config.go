// Package k8sprovider implements the runtime provider interface (C5)
// over a Kubernetes BatchSandbox custom resource: C7 of the sandbox
// lifecycle control plane.
package k8sprovider

import "time"

// Config configures the Kubernetes provider.
type Config struct {
	// Kubeconfig is the path to a kubeconfig file; empty uses in-cluster
	// config.
	Kubeconfig string
	Namespace  string

	// ExecdImage is the platform image whose /execd binary is installed
	// by the execd-installer init container.
	ExecdImage string
	PublicHost string

	// TemplatePath, when set, is a YAML file providing user defaults
	// deep-merged under the runtime-generated manifest.
	TemplatePath string

	// PollInterval/PollTimeout govern the post-create readiness wait.
	PollInterval time.Duration
	PollTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Namespace:    "default",
		PollInterval: time.Second,
		PollTimeout:  60 * time.Second,
	}
}

// Group/version/resource of the BatchSandbox custom resource.
const (
	Group    = "sandbox.opensandbox.io"
	Version  = "v1alpha1"
	Resource = "batchsandboxes"
	Kind     = "BatchSandbox"
)
