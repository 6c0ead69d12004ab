package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensandbox/control-plane/internal/provider"
	"github.com/opensandbox/control-plane/internal/sandboxerr"
	"github.com/opensandbox/control-plane/internal/sandboxmodel"
	"github.com/opensandbox/control-plane/internal/sandboxsvc"
)

// failingProvider always fails CreateWorkload, so every Create call lands
// a Failed pending record for the sweeper to reclaim.
type failingProvider struct{}

func (failingProvider) CreateWorkload(ctx context.Context, params provider.CreateParams) (provider.WorkloadRef, error) {
	return provider.WorkloadRef{}, sandboxerr.New(sandboxerr.ImagePullFailed, "image pull failed")
}

func (failingProvider) GetWorkload(ctx context.Context, id, namespace string) (provider.Workload, bool, error) {
	return nil, false, nil
}

func (failingProvider) ListWorkloads(ctx context.Context, namespace, labelSelector string) ([]provider.Workload, error) {
	return nil, nil
}

func (failingProvider) DeleteWorkload(ctx context.Context, id, namespace string) error { return nil }
func (failingProvider) UpdateExpiration(ctx context.Context, id, namespace string, expiresAt time.Time) error {
	return nil
}
func (failingProvider) GetExpiration(workload provider.Workload) (time.Time, bool) { return time.Time{}, false }
func (failingProvider) GetID(workload provider.Workload) (string, bool)            { return "", false }
func (failingProvider) GetCreatedAt(workload provider.Workload) time.Time          { return time.Time{} }
func (failingProvider) GetMetadata(workload provider.Workload) map[string]string   { return nil }
func (failingProvider) GetStatus(workload provider.Workload) sandboxmodel.Status {
	return sandboxmodel.Status{}
}
func (failingProvider) GetEndpointInfo(workload provider.Workload, port int) (string, bool) {
	return "", false
}
func (failingProvider) GetInternalEndpointInfo(workload provider.Workload, port int) (string, bool) {
	return "", false
}
func (failingProvider) Pause(ctx context.Context, id, namespace string) error  { return nil }
func (failingProvider) Resume(ctx context.Context, id, namespace string) error { return nil }
func (failingProvider) Terminate(ctx context.Context, id, namespace string)    {}

func TestSweeperReclaimsExpiredFailedRecords(t *testing.T) {
	cfg := sandboxsvc.DefaultConfig()
	cfg.RuntimeType = sandboxsvc.RuntimeDocker
	cfg.PendingFailureTTL = 10 * time.Millisecond

	svc := sandboxsvc.New(cfg, failingProvider{})

	sbx, err := svc.Create(context.Background(), sandboxmodel.CreateRequest{
		Image:      sandboxmodel.ImageSpec{URI: "alpine:latest"},
		Entrypoint: []string{"/bin/sh"},
	})
	require.NoError(t, err)
	require.Equal(t, sandboxmodel.Pending, sbx.Status.State)

	// Wait for the async provisioning worker to mark the record failed.
	require.Eventually(t, func() bool {
		got, err := svc.Get(context.Background(), sbx.ID)
		return err == nil && got.Status.State == sandboxmodel.Failed
	}, time.Second, 5*time.Millisecond)

	sweeper := NewSweeper(svc, 15*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sweeper.Start(ctx)

	assert.Eventually(t, func() bool {
		_, err := svc.Get(context.Background(), sbx.ID)
		if err == nil {
			return false
		}
		se, ok := sandboxerr.As(err)
		return ok && se.Code == sandboxerr.SandboxNotFound
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewSweeperDefaultsInterval(t *testing.T) {
	svc := sandboxsvc.New(sandboxsvc.DefaultConfig(), failingProvider{})
	sweeper := NewSweeper(svc, 0)
	assert.Equal(t, 5*time.Minute, sweeper.interval)
}

func TestSweeperStopsOnContextCancel(t *testing.T) {
	svc := sandboxsvc.New(sandboxsvc.DefaultConfig(), failingProvider{})
	sweeper := NewSweeper(svc, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	sweeper.Start(ctx)
	cancel()

	// Exercises Start followed by an immediate cancel. run's goroutine is
	// not joined, so this test asserts nothing about when it exits.
	time.Sleep(20 * time.Millisecond)
}
