package sandboxsvc

import (
	"context"
	"log/slog"
	"time"

	"github.com/opensandbox/control-plane/internal/provider"
	"github.com/opensandbox/control-plane/internal/sandboxerr"
	"github.com/opensandbox/control-plane/internal/sandboxid"
	"github.com/opensandbox/control-plane/internal/sandboxmodel"
	"github.com/opensandbox/control-plane/internal/validate"
)

// provisionJob is one unit of work for the Docker async provisioning pool.
type provisionJob struct {
	params    provider.CreateParams
	createdAt time.Time
}

// Create validates req, stamps a fresh id and absolute expiration, and
// hands off to the selected provider. The Docker path is asynchronous:
// it installs a pending record and returns a Pending sandbox immediately
// while a background worker finishes provisioning (see provisionWorker).
// The Kubernetes path is synchronous: it creates the BatchSandbox and
// blocks until the poll loop observes Running, Failed, or a timeout.
func (s *Service) Create(ctx context.Context, req sandboxmodel.CreateRequest) (*sandboxmodel.Sandbox, error) {
	if verr := validate.EnsureEntrypoint(req.Entrypoint); verr != nil {
		return nil, verr
	}
	if verr := validate.EnsureMetadataLabels(req.Metadata); verr != nil {
		return nil, verr
	}
	if verr := validate.EnsureVolumeMounts(req.VolumeMounts); verr != nil {
		return nil, verr
	}

	timeoutSeconds := req.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultTimeoutSeconds
	}
	if verr := validate.EnsureTimeoutSeconds(timeoutSeconds); verr != nil {
		return nil, verr
	}
	req.TimeoutSeconds = timeoutSeconds

	now := time.Now().UTC()
	expiresAt, verr := validate.EnsureFutureExpiration(now.Add(time.Duration(timeoutSeconds) * time.Second))
	if verr != nil {
		return nil, verr
	}

	id := sandboxid.New()

	labels := make(map[string]string, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		labels[k] = v
	}
	labels[sandboxid.ExpiresAtLabel] = expiresAt.Format(time.RFC3339)

	params := provider.CreateParams{
		SandboxID:      id,
		Namespace:      s.cfg.Namespace,
		Image:          req.Image,
		Entrypoint:     req.Entrypoint,
		Env:            req.Env,
		ResourceLimits: req.ResourceLimits,
		Labels:         labels,
		ExpiresAt:      expiresAt,
		ExecdImage:     s.cfg.ExecdImage,
		VolumeMounts:   req.VolumeMounts,
		Extensions:     req.Extensions,
	}

	s.rememberDesired(id, &desired{
		image:          req.Image,
		entrypoint:     req.Entrypoint,
		env:            req.Env,
		resourceLimits: req.ResourceLimits,
		metadata:       req.Metadata,
		volumeMounts:   req.VolumeMounts,
		extensions:     req.Extensions,
		timeoutSeconds: timeoutSeconds,
		createdAt:      now,
	})

	if s.cfg.RuntimeType == RuntimeKubernetes {
		return s.createKubernetes(ctx, params, req, now)
	}
	return s.createDocker(params, req, now), nil
}

// createDocker installs a pending record, enqueues the real provisioning
// work, and returns immediately with a Pending sandbox the caller can
// poll via Get.
func (s *Service) createDocker(params provider.CreateParams, req sandboxmodel.CreateRequest, now time.Time) *sandboxmodel.Sandbox {
	s.pending.Put(params.SandboxID, now, params.ExpiresAt, req.Metadata)

	job := provisionJob{params: params, createdAt: now}
	select {
	case s.jobs <- job:
	default:
		// Pool saturated: don't block the caller on a full channel, run
		// this one provisioning attempt on its own goroutine instead.
		go s.runProvision(job)
	}

	return &sandboxmodel.Sandbox{
		ID:             params.SandboxID,
		Image:          req.Image,
		Entrypoint:     req.Entrypoint,
		Env:            req.Env,
		ResourceLimits: req.ResourceLimits,
		Metadata:       req.Metadata,
		VolumeMounts:   req.VolumeMounts,
		Extensions:     req.Extensions,
		TimeoutSeconds: req.TimeoutSeconds,
		CreatedAt:      now,
		ExpiresAt:      params.ExpiresAt,
		Status: sandboxmodel.Status{
			State:            sandboxmodel.Pending,
			Reason:           "PROVISIONING",
			Message:          "sandbox provisioning in progress",
			LastTransitionAt: now,
		},
	}
}

func (s *Service) provisionWorker() {
	for job := range s.jobs {
		s.runProvision(job)
	}
}

// runProvision performs the actual (blocking) container creation for one
// Docker sandbox. On failure the pending record becomes Failed/
// PROVISIONING_ERROR and any half-created container is best-effort
// cleaned up; on success the pending record is removed and the
// expiration tracker takes over.
func (s *Service) runProvision(job provisionJob) {
	ctx, cancel := context.WithTimeout(context.Background(), provisionTimeout)
	defer cancel()

	id := job.params.SandboxID
	if _, err := s.provider.CreateWorkload(ctx, job.params); err != nil {
		code := string(sandboxerr.ProvisioningError)
		msg := err.Error()
		if se, ok := sandboxerr.As(err); ok {
			msg = se.Message
		}
		s.pending.MarkFailed(id, code, msg)
		s.provider.Terminate(ctx, id, job.params.Namespace)
		slog.Error("async sandbox provisioning failed", "sandbox_id", id, "error", err)
		return
	}

	s.pending.Remove(id)
	s.tracker.Schedule(id, job.params.ExpiresAt)
}

// createKubernetes creates the BatchSandbox synchronously and blocks
// until the poll loop reaches a terminal readiness decision.
func (s *Service) createKubernetes(ctx context.Context, params provider.CreateParams, req sandboxmodel.CreateRequest, now time.Time) (*sandboxmodel.Sandbox, error) {
	if _, err := s.provider.CreateWorkload(ctx, params); err != nil {
		s.forget(params.SandboxID)
		return nil, err
	}

	status, err := s.awaitReady(ctx, params.SandboxID)
	if err != nil {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		s.provider.Terminate(cleanupCtx, params.SandboxID, s.cfg.Namespace)
		cancel()
		s.forget(params.SandboxID)
		return nil, err
	}

	s.tracker.Schedule(params.SandboxID, params.ExpiresAt)

	return &sandboxmodel.Sandbox{
		ID:             params.SandboxID,
		Image:          req.Image,
		Entrypoint:     req.Entrypoint,
		Env:            req.Env,
		ResourceLimits: req.ResourceLimits,
		Metadata:       req.Metadata,
		VolumeMounts:   req.VolumeMounts,
		Extensions:     req.Extensions,
		TimeoutSeconds: req.TimeoutSeconds,
		CreatedAt:      now,
		ExpiresAt:      params.ExpiresAt,
		Status:         status,
	}, nil
}

// awaitReady polls GetWorkload/GetStatus until the sandbox reaches
// Running, reports Failed, or the poll timeout elapses.
func (s *Service) awaitReady(ctx context.Context, id string) (sandboxmodel.Status, error) {
	deadline := time.Now().Add(s.cfg.PollTimeout)
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		workload, found, err := s.provider.GetWorkload(ctx, id, s.cfg.Namespace)
		if err != nil {
			return sandboxmodel.Status{}, err
		}
		if found {
			status := s.provider.GetStatus(workload)
			switch status.State {
			case sandboxmodel.Running:
				return status, nil
			case sandboxmodel.Failed:
				return sandboxmodel.Status{}, sandboxerr.New(sandboxerr.K8sPodFailed, "batch sandbox %s reported a failed phase before becoming ready", id)
			}
		}

		if time.Now().After(deadline) {
			return sandboxmodel.Status{}, sandboxerr.New(sandboxerr.K8sPodReadyTimeout, "sandbox %s did not become ready within %s", id, s.cfg.PollTimeout)
		}

		select {
		case <-ctx.Done():
			return sandboxmodel.Status{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
