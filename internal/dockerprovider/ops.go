package dockerprovider

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/errdefs"

	"github.com/opensandbox/control-plane/internal/provider"
	"github.com/opensandbox/control-plane/internal/sandboxerr"
	"github.com/opensandbox/control-plane/internal/sandboxid"
	"github.com/opensandbox/control-plane/internal/sandboxmodel"
)

// GetWorkload returns the container inspect result for id, (nil, false,
// nil) if no such container exists.
func (p *Provider) GetWorkload(ctx context.Context, id, _ string) (provider.Workload, bool, error) {
	inspect, err := p.findByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if inspect == nil {
		return nil, false, nil
	}
	return inspect, true, nil
}

func (p *Provider) findByID(ctx context.Context, id string) (*types.ContainerJSON, error) {
	opts := container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", sandboxid.IDLabelSelector(id))),
	}
	summaries, err := p.client.ContainerList(ctx, opts)
	if err != nil {
		return nil, sandboxerr.Wrap(sandboxerr.ContainerQueryFailed, err, "failed to query container for sandbox %s", id)
	}
	if len(summaries) == 0 {
		return nil, nil
	}
	inspect, err := p.client.ContainerInspect(ctx, summaries[0].ID)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, nil
		}
		return nil, sandboxerr.Wrap(sandboxerr.ContainerQueryFailed, err, "failed to inspect container for sandbox %s", id)
	}
	return &inspect, nil
}

// ListWorkloads returns every container inspect result matching
// labelSelector.
func (p *Provider) ListWorkloads(ctx context.Context, _, labelSelector string) ([]provider.Workload, error) {
	opts := container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", labelSelector)),
	}
	summaries, err := p.client.ContainerList(ctx, opts)
	if err != nil {
		return nil, sandboxerr.Wrap(sandboxerr.ContainerQueryFailed, err, "failed to list sandbox containers")
	}

	out := make([]provider.Workload, 0, len(summaries))
	for _, s := range summaries {
		inspect, err := p.client.ContainerInspect(ctx, s.ID)
		if err != nil {
			if errdefs.IsNotFound(err) {
				continue
			}
			return nil, sandboxerr.Wrap(sandboxerr.ContainerQueryFailed, err, "failed to inspect container %s", s.ID)
		}
		out = append(out, &inspect)
	}
	return out, nil
}

// DeleteWorkload kills (ignoring "already stopped") and force-removes the
// container for id. Returns SandboxNotFound if no such container exists.
func (p *Provider) DeleteWorkload(ctx context.Context, id, namespace string) error {
	inspect, err := p.findByID(ctx, id)
	if err != nil {
		return err
	}
	if inspect == nil {
		return sandboxerr.New(sandboxerr.SandboxNotFound, "sandbox %s not found", id)
	}

	p.killIgnoringStopped(ctx, inspect.ID)

	if err := p.client.ContainerRemove(ctx, inspect.ID, container.RemoveOptions{Force: true}); err != nil && !errdefs.IsNotFound(err) {
		return sandboxerr.Wrap(sandboxerr.SandboxDeleteFailed, err, "failed to remove container for sandbox %s", id)
	}
	return nil
}

func (p *Provider) killIgnoringStopped(ctx context.Context, containerID string) {
	if err := p.client.ContainerKill(ctx, containerID, "KILL"); err != nil &&
		!errdefs.IsNotFound(err) && !errdefs.IsNotModified(err) {
		slog.Warn("failed to kill container before removal", "container", containerID, "error", err)
	}
}

// Terminate forcibly kills+removes the workload for id, ignoring
// not-found. Called by the expiration tracker's Reaper and by
// cleanup-on-create-failure.
func (p *Provider) Terminate(ctx context.Context, id, namespace string) {
	if err := p.DeleteWorkload(ctx, id, namespace); err != nil {
		if se, ok := sandboxerr.As(err); !ok || se.Code != sandboxerr.SandboxNotFound {
			slog.Error("failed to terminate sandbox on expiration", "sandbox_id", id, "error", err)
		}
	}
}

// Pause maps to the daemon's pause operation; requires Running, else 409
// SandboxNotRunning.
func (p *Provider) Pause(ctx context.Context, id, _ string) error {
	inspect, err := p.findByID(ctx, id)
	if err != nil {
		return err
	}
	if inspect == nil {
		return sandboxerr.New(sandboxerr.SandboxNotFound, "sandbox %s not found", id)
	}
	if !inspect.State.Running || inspect.State.Paused {
		return sandboxerr.New(sandboxerr.SandboxNotRunning, "sandbox %s is not running", id)
	}
	if err := p.client.ContainerPause(ctx, inspect.ID); err != nil {
		return sandboxerr.Wrap(sandboxerr.SandboxPauseFailed, err, "failed to pause sandbox %s", id)
	}
	return nil
}

// Resume maps to the daemon's unpause operation; requires Paused, else
// 409 SandboxNotPaused.
func (p *Provider) Resume(ctx context.Context, id, _ string) error {
	inspect, err := p.findByID(ctx, id)
	if err != nil {
		return err
	}
	if inspect == nil {
		return sandboxerr.New(sandboxerr.SandboxNotFound, "sandbox %s not found", id)
	}
	if !inspect.State.Paused {
		return sandboxerr.New(sandboxerr.SandboxNotPaused, "sandbox %s is not paused", id)
	}
	if err := p.client.ContainerUnpause(ctx, inspect.ID); err != nil {
		return sandboxerr.Wrap(sandboxerr.SandboxResumeFailed, err, "failed to resume sandbox %s", id)
	}
	return nil
}

// UpdateExpiration verifies the sandbox still exists. It does not touch
// the container's expires-at label (see the no-op note in the body) —
// only the expiration tracker's in-memory schedule moves on renew.
func (p *Provider) UpdateExpiration(ctx context.Context, id, _ string, _ time.Time) error {
	inspect, err := p.findByID(ctx, id)
	if err != nil {
		return err
	}
	if inspect == nil {
		return sandboxerr.New(sandboxerr.SandboxNotFound, "sandbox %s not found", id)
	}

	// The Docker API has no label-mutation call for an existing container;
	// the expires-at label stamped at create time is never updated in
	// place. The expiration tracker's in-memory timer (reset by the
	// sandbox service on every renew) is the sole source of truth for
	// when a sandbox actually expires, so this is a no-op by design
	// rather than a best-effort write that would silently fail.
	return nil
}

// GetExpiration reads the expires-at label off a workload snapshot.
func (p *Provider) GetExpiration(workload provider.Workload) (time.Time, bool) {
	inspect, ok := workload.(*types.ContainerJSON)
	if !ok || inspect == nil {
		return time.Time{}, false
	}
	label, ok := inspect.Config.Labels[sandboxid.ExpiresAtLabel]
	if !ok || label == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, label)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// GetID reads the sandbox id label off a workload snapshot.
func (p *Provider) GetID(workload provider.Workload) (string, bool) {
	inspect, ok := workload.(*types.ContainerJSON)
	if !ok || inspect == nil {
		return "", false
	}
	id, ok := inspect.Config.Labels[sandboxid.IDLabel]
	return id, ok
}

// GetCreatedAt reads the container's creation timestamp.
func (p *Provider) GetCreatedAt(workload provider.Workload) time.Time {
	inspect, ok := workload.(*types.ContainerJSON)
	if !ok || inspect == nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, inspect.Created)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// GetMetadata projects a container's labels back into user-facing
// metadata, stripping the reserved opensandbox.io/ namespace.
func (p *Provider) GetMetadata(workload provider.Workload) map[string]string {
	inspect, ok := workload.(*types.ContainerJSON)
	if !ok || inspect == nil {
		return nil
	}
	return sandboxid.StripReserved(inspect.Config.Labels)
}

// GetStatus projects the daemon's container state flags into the shared
// state set, depending only on the snapshot passed in.
func (p *Provider) GetStatus(workload provider.Workload) sandboxmodel.Status {
	inspect, ok := workload.(*types.ContainerJSON)
	if !ok || inspect == nil {
		return sandboxmodel.Status{State: sandboxmodel.Unknown, Reason: "UNKNOWN", Message: "no workload snapshot"}
	}

	st := inspect.State
	transition, _ := time.Parse(time.RFC3339Nano, st.StartedAt)

	switch {
	case st.Running && !st.Paused && !st.Restarting:
		return sandboxmodel.Status{State: sandboxmodel.Running, Reason: "CONTAINER_RUNNING", Message: "container is running", LastTransitionAt: transition}
	case st.Paused:
		return sandboxmodel.Status{State: sandboxmodel.Paused, Reason: "CONTAINER_PAUSED", Message: "container is paused", LastTransitionAt: transition}
	case st.Restarting:
		return sandboxmodel.Status{State: sandboxmodel.Running, Reason: "CONTAINER_RESTARTING", Message: "container is restarting", LastTransitionAt: transition}
	case st.Status == "created" || st.Status == "starting":
		return sandboxmodel.Status{State: sandboxmodel.Pending, Reason: "CONTAINER_" + upper(st.Status), Message: "container is " + st.Status}
	case st.Status == "exited" || st.Status == "dead":
		if st.ExitCode == 0 {
			return sandboxmodel.Status{State: sandboxmodel.Terminated, Reason: "CONTAINER_EXITED", Message: "container exited cleanly"}
		}
		return sandboxmodel.Status{State: sandboxmodel.Failed, Reason: "CONTAINER_EXITED_NONZERO", Message: fmt.Sprintf("container exited with code %d", st.ExitCode)}
	default:
		return sandboxmodel.Status{State: sandboxmodel.Unknown, Reason: "UNKNOWN", Message: "unrecognized container state: " + st.Status}
	}
}

func upper(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

// GetEndpointInfo resolves a container port to a host-reachable endpoint.
// In host mode there is no mapping; the resolver returns
// <public_host>:<port> directly. In bridge mode, container port 8080
// (the sandbox's own HTTP port) resolves to the http host port directly;
// any other port is proxied through the embedding-proxy host port via a
// "/proxy/<port>" suffix.
func (p *Provider) GetEndpointInfo(workload provider.Workload, port int) (string, bool) {
	inspect, ok := workload.(*types.ContainerJSON)
	if !ok || inspect == nil {
		return "", false
	}

	if p.cfg.NetworkMode == NetworkModeHost {
		return fmt.Sprintf("%s:%d", p.cfg.PublicHost, port), true
	}

	httpPort, httpOK := portLabel(inspect, sandboxid.HTTPPortLabel)
	proxyPort, proxyOK := portLabel(inspect, sandboxid.EmbeddingProxyPortLabel)

	if port == sandboxid.HTTPPort {
		if !httpOK {
			return "", false
		}
		return fmt.Sprintf("%s:%d", p.cfg.PublicHost, httpPort), true
	}

	if !proxyOK {
		return "", false
	}
	return fmt.Sprintf("%s:%d/proxy/%d", p.cfg.PublicHost, proxyPort, port), true
}

// GetInternalEndpointInfo bypasses the host-port-mapping lookup entirely:
// in host mode the container shares the host's network namespace, so
// port is reachable on loopback; in bridge mode it resolves the
// container's own bridge IP and talks to port directly, skipping the
// execd proxy indirection GetEndpointInfo uses for non-8080 ports.
func (p *Provider) GetInternalEndpointInfo(workload provider.Workload, port int) (string, bool) {
	inspect, ok := workload.(*types.ContainerJSON)
	if !ok || inspect == nil {
		return "", false
	}

	if p.cfg.NetworkMode == NetworkModeHost {
		return fmt.Sprintf("127.0.0.1:%d", port), true
	}

	ip := bridgeIP(inspect)
	if ip == "" {
		return "", false
	}
	return fmt.Sprintf("%s:%d", ip, port), true
}

func bridgeIP(inspect *types.ContainerJSON) string {
	if inspect.NetworkSettings == nil {
		return ""
	}
	if inspect.NetworkSettings.IPAddress != "" {
		return inspect.NetworkSettings.IPAddress
	}
	for _, net := range inspect.NetworkSettings.Networks {
		if net != nil && net.IPAddress != "" {
			return net.IPAddress
		}
	}
	return ""
}

func portLabel(inspect *types.ContainerJSON, label string) (int, bool) {
	raw, ok := inspect.Config.Labels[label]
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ListExpirations scans all sandbox containers and returns id -> expires-at.
// Containers missing the label are logged here and skipped, never
// implicitly expired. The sandbox service's startup reconciliation does
// its own scan through the provider interface and does not call this.
func (p *Provider) ListExpirations(ctx context.Context) (map[string]time.Time, error) {
	workloads, err := p.ListWorkloads(ctx, "", sandboxid.IDLabel)
	if err != nil {
		return nil, err
	}
	out := make(map[string]time.Time, len(workloads))
	for _, w := range workloads {
		inspect := w.(*types.ContainerJSON)
		id, ok := inspect.Config.Labels[sandboxid.IDLabel]
		if !ok {
			continue
		}
		expiresAt, ok := p.GetExpiration(w)
		if !ok {
			slog.Warn("sandbox container missing expires-at label, skipping reconciliation", "sandbox_id", id)
			continue
		}
		out[id] = expiresAt
	}
	return out, nil
}
