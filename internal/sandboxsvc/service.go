package sandboxsvc

import (
	"context"
	"sync"
	"time"

	"github.com/opensandbox/control-plane/internal/expiry"
	"github.com/opensandbox/control-plane/internal/pending"
	"github.com/opensandbox/control-plane/internal/provider"
	"github.com/opensandbox/control-plane/internal/sandboxmodel"
)

const defaultTimeoutSeconds = 300

// provisionTimeout bounds how long a single async Docker provisioning
// attempt may run before the worker gives up and marks it Failed.
const provisionTimeout = 5 * time.Minute

// desired is the subset of a create request the service keeps in memory
// to answer get/list without re-deriving it from the backing runtime
// object. It does not survive a process restart — see the reconciliation
// note in reconcile.go.
type desired struct {
	image          sandboxmodel.ImageSpec
	entrypoint     []string
	env            map[string]string
	resourceLimits map[string]string
	metadata       map[string]string
	volumeMounts   []sandboxmodel.VolumeMount
	extensions     map[string]string
	timeoutSeconds int
	createdAt      time.Time
}

// Service is the sandbox lifecycle façade (C8). It is safe for
// concurrent use.
type Service struct {
	cfg      Config
	provider provider.Provider
	tracker  *expiry.Tracker
	pending  *pending.Registry

	jobs chan provisionJob

	mu    sync.Mutex
	cache map[string]*desired
}

// New wires a Service around prov. It starts cfg.ProvisionWorkers
// background goroutines that complete the Docker async provisioning
// path; they run for the lifetime of the process.
func New(cfg Config, prov provider.Provider) *Service {
	if cfg.ProvisionWorkers <= 0 {
		cfg.ProvisionWorkers = 1
	}
	if cfg.PendingFailureTTL <= 0 {
		cfg.PendingFailureTTL = time.Hour
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 60 * time.Second
	}

	svc := &Service{
		cfg:      cfg,
		provider: prov,
		pending:  pending.New(cfg.PendingFailureTTL),
		cache:    make(map[string]*desired),
		jobs:     make(chan provisionJob, 64),
	}
	svc.tracker = expiry.New(&reaperAdapter{svc: svc})

	for i := 0; i < cfg.ProvisionWorkers; i++ {
		go svc.provisionWorker()
	}
	return svc
}

// reaperAdapter implements expiry.Reaper by delegating to the provider's
// Terminate and clearing the service's own bookkeeping for id.
type reaperAdapter struct{ svc *Service }

func (r *reaperAdapter) Expire(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	r.svc.provider.Terminate(ctx, id, r.svc.cfg.Namespace)
	r.svc.forget(id)
}

func (s *Service) forget(id string) {
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
	s.pending.Remove(id)
}

func (s *Service) rememberDesired(id string, d *desired) {
	s.mu.Lock()
	s.cache[id] = d
	s.mu.Unlock()
}

func (s *Service) lookupDesired(id string) (*desired, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.cache[id]
	return d, ok
}

// SweepPendingFailures removes Failed pending records whose TTL has
// elapsed. Each record also carries its own per-entry cleanup timer
// (see pending.Registry.MarkFailed); this is the belt-and-braces
// backstop internal/cleanup runs periodically over the same in-memory
// registry.
func (s *Service) SweepPendingFailures(now time.Time) {
	s.pending.SweepExpiredFailures(now)
}
