// Package sandboxid defines the well-known label/annotation keys, port
// conventions, and sandbox id format shared by every provider.
package sandboxid

import (
	"strings"

	"github.com/google/uuid"
)

// Well-known label keys, stable on the wire.
const (
	// IDLabel is stamped onto the backing runtime object (container label
	// or BatchSandbox label) and is the only way providers look a sandbox
	// back up by id.
	IDLabel = "opensandbox.io/id"

	// ExpiresAtLabel carries the RFC-3339 UTC absolute expiration.
	ExpiresAtLabel = "opensandbox.io/expires-at"

	// EmbeddingProxyPortLabel records the Docker bridge-mode host port
	// mapped to container port EmbeddingProxyPort.
	EmbeddingProxyPortLabel = "opensandbox.io/embedding-proxy-port"

	// HTTPPortLabel records the Docker bridge-mode host port mapped to
	// container port HTTPPort.
	HTTPPortLabel = "opensandbox.io/http-port"

	// EndpointsAnnotation is the Kubernetes BatchSandbox annotation
	// carrying a JSON array of pod IPs, populated by an external
	// controller.
	EndpointsAnnotation = "sandbox.opensandbox.io/endpoints"

	// ReservedLabelPrefix marks user metadata keys reserved for internal
	// use; such keys are stripped when projecting labels back to user
	// metadata.
	ReservedLabelPrefix = "opensandbox.io/"
)

// Container ports inside every sandbox.
const (
	EmbeddingProxyPort = 44772
	HTTPPort           = 8080
)

// New generates a fresh sandbox id (UUIDv4 string).
func New() string {
	return uuid.NewString()
}

// ContainerName returns the Docker container name for a sandbox id.
func ContainerName(id string) string {
	return "sandbox-" + id
}

// WorkloadName returns the BatchSandbox resource name for a sandbox id.
func WorkloadName(id string) string {
	return "sandbox-" + id
}

// IDLabelSelector returns a label selector string matching the sandbox id.
func IDLabelSelector(id string) string {
	return IDLabel + "=" + id
}

// IsReserved reports whether a metadata key is in the reserved namespace.
func IsReserved(key string) bool {
	return strings.HasPrefix(key, ReservedLabelPrefix)
}

// StripReserved returns a copy of labels with reserved keys removed,
// projecting a runtime label map back into user-facing metadata.
func StripReserved(labels map[string]string) map[string]string {
	if len(labels) == 0 {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		if IsReserved(k) {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
