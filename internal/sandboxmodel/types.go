// Package sandboxmodel holds the wire/domain data model shared by the
// sandbox service, both providers, and the HTTP layer: the Sandbox
// record, its request/response shapes, and the state set.
package sandboxmodel

import "time"

// State is one member of the sandbox lifecycle state set.
type State string

const (
	Pending    State = "Pending"
	Running    State = "Running"
	Paused     State = "Paused"
	Terminated State = "Terminated"
	Failed     State = "Failed"
	Unknown    State = "Unknown"
)

// ImageAuth carries optional basic-auth credentials for a private image
// pull. Never logged or echoed back.
type ImageAuth struct {
	Username string
	Password string
}

// ImageSpec describes the container image a sandbox runs.
type ImageSpec struct {
	URI  string
	Auth *ImageAuth
}

// VolumeMount describes one host-path mount projected into the sandbox.
type VolumeMount struct {
	HostPath      string
	ContainerPath string
	ReadOnly      bool
}

// Status is the observed lifecycle status of a sandbox.
type Status struct {
	State            State
	Reason           string
	Message          string
	LastTransitionAt time.Time
}

// Sandbox is the full identity + desired + observed record.
type Sandbox struct {
	ID             string
	Image          ImageSpec
	Entrypoint     []string
	Env            map[string]string
	ResourceLimits map[string]string
	Metadata       map[string]string
	VolumeMounts   []VolumeMount
	Extensions     map[string]string
	TimeoutSeconds int
	CreatedAt      time.Time
	ExpiresAt      time.Time
	Status         Status
}

// MatchState / MatchMetadata implement validate.Matchable.
func (s *Sandbox) MatchState() string             { return string(s.Status.State) }
func (s *Sandbox) MatchMetadata() map[string]string { return s.Metadata }

// CreateRequest is the input to Create.
type CreateRequest struct {
	Image          ImageSpec
	Entrypoint     []string
	Env            map[string]string
	ResourceLimits map[string]string
	Metadata       map[string]string
	VolumeMounts   []VolumeMount
	Extensions     map[string]string
	TimeoutSeconds int
}

// ListFilter is the filter accepted by List; an empty filter matches all.
type ListFilter struct {
	State    []string
	Metadata map[string]string
}

// Pagination is the input page/pageSize.
type Pagination struct {
	Page     int
	PageSize int
}

// PaginationInfo is the output pagination envelope.
type PaginationInfo struct {
	Page        int
	PageSize    int
	TotalItems  int
	TotalPages  int
	HasNextPage bool
}

// ListResult is the output of List.
type ListResult struct {
	Items      []*Sandbox
	Pagination PaginationInfo
}

// Endpoint is the resolved address for a sandbox port.
type Endpoint struct {
	Endpoint string
}
