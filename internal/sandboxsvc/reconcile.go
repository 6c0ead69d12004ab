package sandboxsvc

import (
	"context"
	"log/slog"

	"github.com/opensandbox/control-plane/internal/sandboxid"
)

// Reconcile runs once at process startup: it scans every live workload
// the active provider knows about and seeds the expiration tracker from
// each one's expires-at, so that a freshly started process picks up
// in-flight sandboxes' deadlines instead of only ones created after this
// process came up. A workload missing its expires-at label is skipped
// and logged rather than treated as already expired.
//
// Desired-request fields (image, entrypoint, env, resource limits,
// volume mounts, extensions) for sandboxes discovered this way are not
// recovered — the service's in-memory cache only ever holds what was
// passed to Create in this process's lifetime. Get/List still report
// accurate id, metadata, status and expiration for reconciled sandboxes;
// only the desired-spec fields come back empty until the sandbox is
// re-created.
func (s *Service) Reconcile(ctx context.Context) error {
	workloads, err := s.provider.ListWorkloads(ctx, s.cfg.Namespace, sandboxid.IDLabel)
	if err != nil {
		return err
	}

	for _, w := range workloads {
		id, ok := s.provider.GetID(w)
		if !ok {
			continue
		}
		expiresAt, ok := s.provider.GetExpiration(w)
		if !ok {
			slog.Warn("sandbox workload missing expires-at, skipping reconciliation", "sandbox_id", id)
			continue
		}
		s.tracker.Seed(id, expiresAt)
	}
	return nil
}
