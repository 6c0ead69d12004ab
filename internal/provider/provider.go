// Package provider defines the runtime-agnostic capability set (C5) that
// both the Docker and Kubernetes providers implement. The sandbox service
// talks only to this interface; it never imports a concrete provider
// package directly except at wiring time in cmd/sandbox-engine.
package provider

import (
	"context"
	"time"

	"github.com/opensandbox/control-plane/internal/sandboxmodel"
)

// Workload is an opaque handle on the backing runtime object (a Docker
// container inspect result, or a BatchSandbox unstructured object). Only
// the owning provider interprets it; the service treats it as opaque.
type Workload interface{}

// CreateParams is the input to CreateWorkload, the union of everything
// either provider might need. Providers ignore fields that don't apply
// to them (e.g. the Kubernetes pool-mode path ignores Image and
// ResourceLimits).
type CreateParams struct {
	SandboxID      string
	Namespace      string
	Image          sandboxmodel.ImageSpec
	Entrypoint     []string
	Env            map[string]string
	ResourceLimits map[string]string
	Labels         map[string]string
	ExpiresAt      time.Time
	ExecdImage     string
	VolumeMounts   []sandboxmodel.VolumeMount
	Extensions     map[string]string
}

// WorkloadRef identifies the object CreateWorkload just created.
type WorkloadRef struct {
	Name string
	UID  string
}

// Provider is the capability set shared by every runtime backend.
// Operations never return the HTTP error taxonomy directly: callers
// translate a returned error (typically *sandboxerr.Error) at the
// sandbox-service boundary.
type Provider interface {
	CreateWorkload(ctx context.Context, params CreateParams) (WorkloadRef, error)

	// GetWorkload returns (workload, true) if found, (nil, false) if not
	// found, or an error for anything else.
	GetWorkload(ctx context.Context, id, namespace string) (Workload, bool, error)

	ListWorkloads(ctx context.Context, namespace, labelSelector string) ([]Workload, error)

	// DeleteWorkload deletes the workload for id, or returns an error
	// whose Code is sandboxerr.SandboxNotFound / K8sSandboxNotFound if
	// it doesn't exist.
	DeleteWorkload(ctx context.Context, id, namespace string) error

	UpdateExpiration(ctx context.Context, id, namespace string, expiresAt time.Time) error

	GetExpiration(workload Workload) (time.Time, bool)

	// GetID reads the sandbox id label back off a workload snapshot.
	// Used by startup reconciliation, which only has a raw snapshot list.
	GetID(workload Workload) (string, bool)

	// GetCreatedAt reads the workload's creation time, used to sort list
	// results by created_at descending.
	GetCreatedAt(workload Workload) time.Time

	// GetMetadata projects a workload's labels back into user-facing
	// metadata (reserved keys stripped).
	GetMetadata(workload Workload) map[string]string

	GetStatus(workload Workload) sandboxmodel.Status

	// GetEndpointInfo returns ("host:port", true) or ("", false) if not
	// yet available.
	GetEndpointInfo(workload Workload, port int) (string, bool)

	// GetInternalEndpointInfo resolves port bypassing any host-port
	// mapping: the container's own network-internal address (bridge IP,
	// or loopback in host mode) for Docker, ignored for Kubernetes since
	// a pod's address is already internal-only.
	GetInternalEndpointInfo(workload Workload, port int) (string, bool)

	// Pause / Resume are only meaningful for Docker; Kubernetes returns
	// an APINotSupported *sandboxerr.Error.
	Pause(ctx context.Context, id, namespace string) error
	Resume(ctx context.Context, id, namespace string) error

	// Terminate forcibly kills+removes the workload for id, ignoring
	// "already stopped"/not-found. Used by the expiration tracker's
	// Reaper and by cleanup-on-create-failure; unlike DeleteWorkload it
	// never surfaces a not-found error to a caller that didn't ask for
	// one.
	Terminate(ctx context.Context, id, namespace string)
}
