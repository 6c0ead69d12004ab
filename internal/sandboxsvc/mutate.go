package sandboxsvc

import (
	"context"
	"time"

	"github.com/opensandbox/control-plane/internal/sandboxerr"
	"github.com/opensandbox/control-plane/internal/sandboxmodel"
	"github.com/opensandbox/control-plane/internal/validate"
)

// Delete removes the sandbox for id, whether it's still pending or has a
// live runtime object, and cancels its expiration timer.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.tracker.Cancel(id)

	_, found, err := s.provider.GetWorkload(ctx, id, s.cfg.Namespace)
	if err != nil {
		return err
	}
	if found {
		if err := s.provider.DeleteWorkload(ctx, id, s.cfg.Namespace); err != nil {
			return err
		}
		s.forget(id)
		return nil
	}

	if rec := s.pending.Get(id); rec != nil {
		s.forget(id)
		return nil
	}

	return sandboxerr.New(s.notFoundCode(), "sandbox %s not found", id)
}

// Pause pauses a running sandbox. Unsupported on Kubernetes.
func (s *Service) Pause(ctx context.Context, id string) error {
	return s.provider.Pause(ctx, id, s.cfg.Namespace)
}

// Resume resumes a paused sandbox. Unsupported on Kubernetes.
func (s *Service) Resume(ctx context.Context, id string) error {
	return s.provider.Resume(ctx, id, s.cfg.Namespace)
}

// Renew moves id's expiration to expiresAt, rescheduling its expiration
// timer. expiresAt must be strictly in the future.
func (s *Service) Renew(ctx context.Context, id string, expiresAt time.Time) (time.Time, error) {
	expiresAt, verr := validate.EnsureFutureExpiration(expiresAt)
	if verr != nil {
		return time.Time{}, verr
	}

	_, found, err := s.provider.GetWorkload(ctx, id, s.cfg.Namespace)
	if err != nil {
		return time.Time{}, err
	}
	if found {
		if err := s.provider.UpdateExpiration(ctx, id, s.cfg.Namespace, expiresAt); err != nil {
			return time.Time{}, err
		}
		s.tracker.Schedule(id, expiresAt)
		return expiresAt, nil
	}

	if rec := s.pending.Get(id); rec != nil {
		s.tracker.Schedule(id, expiresAt)
		return expiresAt, nil
	}

	return time.Time{}, sandboxerr.New(s.notFoundCode(), "sandbox %s not found", id)
}

// GetEndpoint resolves the reachable address for one of id's ports.
// resolveInternal bypasses host-port mapping in favor of the workload's
// own network-internal address (meaningless for Kubernetes, where the
// normal resolution is already internal-only).
func (s *Service) GetEndpoint(ctx context.Context, id string, port int, resolveInternal bool) (sandboxmodel.Endpoint, error) {
	workload, found, err := s.provider.GetWorkload(ctx, id, s.cfg.Namespace)
	if err != nil {
		return sandboxmodel.Endpoint{}, err
	}
	if !found {
		return sandboxmodel.Endpoint{}, sandboxerr.New(s.notFoundCode(), "sandbox %s not found", id)
	}

	var endpoint string
	var ok bool
	if resolveInternal {
		endpoint, ok = s.provider.GetInternalEndpointInfo(workload, port)
	} else {
		endpoint, ok = s.provider.GetEndpointInfo(workload, port)
	}
	if !ok {
		code := sandboxerr.NetworkModeEndpointUnavailable
		if s.cfg.RuntimeType == RuntimeKubernetes {
			code = sandboxerr.K8sPodIPNotAvailable
		}
		return sandboxmodel.Endpoint{}, sandboxerr.New(code, "no endpoint available for sandbox %s port %d", id, port)
	}
	return sandboxmodel.Endpoint{Endpoint: endpoint}, nil
}
