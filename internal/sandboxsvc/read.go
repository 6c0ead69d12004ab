package sandboxsvc

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/opensandbox/control-plane/internal/pending"
	"github.com/opensandbox/control-plane/internal/provider"
	"github.com/opensandbox/control-plane/internal/sandboxerr"
	"github.com/opensandbox/control-plane/internal/sandboxid"
	"github.com/opensandbox/control-plane/internal/sandboxmodel"
	"github.com/opensandbox/control-plane/internal/validate"
)

// notFoundCode returns the runtime-specific not-found code, since Docker
// and Kubernetes each report it under their own namespace.
func (s *Service) notFoundCode() sandboxerr.Code {
	if s.cfg.RuntimeType == RuntimeKubernetes {
		return sandboxerr.K8sSandboxNotFound
	}
	return sandboxerr.SandboxNotFound
}

// Get returns the sandbox for id: the runtime object if one exists
// (Running/Paused/Terminated/Failed/Unknown, always fresh off the live
// snapshot), else the pending record if provisioning hasn't produced one
// yet (Pending, or Failed/PROVISIONING_ERROR until the pending TTL
// elapses), else 404.
func (s *Service) Get(ctx context.Context, id string) (*sandboxmodel.Sandbox, error) {
	workload, found, err := s.provider.GetWorkload(ctx, id, s.cfg.Namespace)
	if err != nil {
		return nil, err
	}
	if found {
		return s.projectWorkload(id, workload), nil
	}

	if rec := s.pending.Get(id); rec != nil {
		return s.projectPending(rec), nil
	}

	return nil, sandboxerr.New(s.notFoundCode(), "sandbox %s not found", id)
}

func (s *Service) projectWorkload(id string, workload provider.Workload) *sandboxmodel.Sandbox {
	status := s.provider.GetStatus(workload)
	expiresAt, _ := s.provider.GetExpiration(workload)
	createdAt := s.provider.GetCreatedAt(workload)
	metadata := s.provider.GetMetadata(workload)

	sbx := &sandboxmodel.Sandbox{
		ID:        id,
		Metadata:  metadata,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
		Status:    status,
	}

	if d, ok := s.lookupDesired(id); ok {
		sbx.Image = d.image
		sbx.Entrypoint = d.entrypoint
		sbx.Env = d.env
		sbx.ResourceLimits = d.resourceLimits
		sbx.VolumeMounts = d.volumeMounts
		sbx.Extensions = d.extensions
		sbx.TimeoutSeconds = d.timeoutSeconds
		if sbx.CreatedAt.IsZero() {
			sbx.CreatedAt = d.createdAt
		}
		if len(sbx.Metadata) == 0 {
			sbx.Metadata = d.metadata
		}
	}
	return sbx
}

func (s *Service) projectPending(rec *pending.Record) *sandboxmodel.Sandbox {
	sbx := &sandboxmodel.Sandbox{
		ID:        rec.ID,
		Metadata:  rec.Metadata,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}
	if d, ok := s.lookupDesired(rec.ID); ok {
		sbx.Image = d.image
		sbx.Entrypoint = d.entrypoint
		sbx.Env = d.env
		sbx.ResourceLimits = d.resourceLimits
		sbx.VolumeMounts = d.volumeMounts
		sbx.Extensions = d.extensions
		sbx.TimeoutSeconds = d.timeoutSeconds
	}

	switch rec.Status {
	case pending.StatusFailed:
		sbx.Status = sandboxmodel.Status{
			State:            sandboxmodel.Failed,
			Reason:           rec.Reason,
			Message:          rec.Message,
			LastTransitionAt: time.Now().UTC(),
		}
	default:
		sbx.Status = sandboxmodel.Status{
			State:   sandboxmodel.Pending,
			Reason:  "PROVISIONING",
			Message: "sandbox provisioning in progress",
		}
	}
	return sbx
}

// List returns every sandbox matching filter, runtime objects shadowing
// pending records of the same id, sorted by created_at descending and
// paginated per page (page must be >= 1, page_size in [1, 200]; the
// caller is responsible for applying defaults before calling List).
func (s *Service) List(ctx context.Context, filter sandboxmodel.ListFilter, page sandboxmodel.Pagination) (*sandboxmodel.ListResult, error) {
	workloads, err := s.provider.ListWorkloads(ctx, s.cfg.Namespace, sandboxid.IDLabel)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(workloads))
	all := make([]*sandboxmodel.Sandbox, 0, len(workloads))

	for _, w := range workloads {
		id, ok := s.provider.GetID(w)
		if !ok {
			continue
		}
		seen[id] = true
		all = append(all, s.projectWorkload(id, w))
	}

	for _, rec := range s.pending.List() {
		if seen[rec.ID] {
			continue
		}
		all = append(all, s.projectPending(rec))
	}

	vf := validate.Filter{State: filter.State, Metadata: filter.Metadata}
	matched := make([]*sandboxmodel.Sandbox, 0, len(all))
	for _, sbx := range all {
		if validate.MatchesFilter(sbx, vf) {
			matched = append(matched, sbx)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	pageNum, pageSize := page.Page, page.PageSize
	if verr := validate.EnsurePagination(pageNum, pageSize); verr != nil {
		return nil, verr
	}

	total := len(matched)
	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))

	start := (pageNum - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return &sandboxmodel.ListResult{
		Items: matched[start:end],
		Pagination: sandboxmodel.PaginationInfo{
			Page:        pageNum,
			PageSize:    pageSize,
			TotalItems:  total,
			TotalPages:  totalPages,
			HasNextPage: pageNum < totalPages,
		},
	}, nil
}
