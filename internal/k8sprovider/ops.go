package k8sprovider

import (
	"context"
	"log/slog"
	"time"

	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/opensandbox/control-plane/internal/provider"
	"github.com/opensandbox/control-plane/internal/sandboxerr"
	"github.com/opensandbox/control-plane/internal/sandboxid"
)

// CreateWorkload creates the BatchSandbox CR for params. Readiness
// waiting is the sandbox service's responsibility (C8), not the
// provider's: the provider only ever reflects current CR state.
func (p *Provider) CreateWorkload(ctx context.Context, params provider.CreateParams) (provider.WorkloadRef, error) {
	namespace := namespaceOrDefault(p, params.Namespace)
	name := sandboxid.WorkloadName(params.SandboxID)

	labels := make(map[string]interface{}, len(params.Labels)+1)
	for k, v := range params.Labels {
		labels[k] = v
	}
	labels[sandboxid.IDLabel] = params.SandboxID

	obj := &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": Group + "/" + Version,
			"kind":       Kind,
			"metadata": map[string]interface{}{
				"name":      name,
				"namespace": namespace,
				"labels":    labels,
			},
			"spec": p.buildManifest(params),
		},
	}

	created, err := p.client.Resource(gvr).Namespace(namespace).Create(ctx, obj, metav1.CreateOptions{})
	if err != nil {
		return provider.WorkloadRef{}, sandboxerr.Wrap(sandboxerr.K8sAPIError, err, "failed to create BatchSandbox for sandbox %s", params.SandboxID)
	}
	return provider.WorkloadRef{Name: created.GetName(), UID: string(created.GetUID())}, nil
}

// GetWorkload returns the BatchSandbox object for id.
func (p *Provider) GetWorkload(ctx context.Context, id, namespace string) (provider.Workload, bool, error) {
	ns := namespaceOrDefault(p, namespace)
	obj, err := p.client.Resource(gvr).Namespace(ns).Get(ctx, sandboxid.WorkloadName(id), metav1.GetOptions{})
	if err != nil {
		if k8serrors.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, sandboxerr.Wrap(sandboxerr.K8sAPIError, err, "failed to get BatchSandbox for sandbox %s", id)
	}
	return obj, true, nil
}

// ListWorkloads lists every BatchSandbox matching labelSelector.
func (p *Provider) ListWorkloads(ctx context.Context, namespace, labelSelector string) ([]provider.Workload, error) {
	ns := namespaceOrDefault(p, namespace)
	list, err := p.client.Resource(gvr).Namespace(ns).List(ctx, metav1.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return nil, sandboxerr.Wrap(sandboxerr.K8sAPIError, err, "failed to list BatchSandbox objects")
	}
	out := make([]provider.Workload, 0, len(list.Items))
	for i := range list.Items {
		out = append(out, &list.Items[i])
	}
	return out, nil
}

// DeleteWorkload deletes the BatchSandbox for id.
func (p *Provider) DeleteWorkload(ctx context.Context, id, namespace string) error {
	ns := namespaceOrDefault(p, namespace)
	err := p.client.Resource(gvr).Namespace(ns).Delete(ctx, sandboxid.WorkloadName(id), metav1.DeleteOptions{})
	if err != nil {
		if k8serrors.IsNotFound(err) {
			return sandboxerr.New(sandboxerr.K8sSandboxNotFound, "sandbox %s not found", id)
		}
		return sandboxerr.Wrap(sandboxerr.K8sAPIError, err, "failed to delete BatchSandbox for sandbox %s", id)
	}
	return nil
}

// Terminate deletes the workload for id, ignoring not-found.
func (p *Provider) Terminate(ctx context.Context, id, namespace string) {
	if err := p.DeleteWorkload(ctx, id, namespace); err != nil {
		if se, ok := sandboxerr.As(err); !ok || se.Code != sandboxerr.K8sSandboxNotFound {
			slog.Error("failed to terminate sandbox on expiration", "sandbox_id", id, "error", err)
		}
	}
}

// UpdateExpiration patches spec.expireTime with the new RFC-3339 UTC
// timestamp.
func (p *Provider) UpdateExpiration(ctx context.Context, id, namespace string, expiresAt time.Time) error {
	ns := namespaceOrDefault(p, namespace)
	name := sandboxid.WorkloadName(id)

	obj, err := p.client.Resource(gvr).Namespace(ns).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if k8serrors.IsNotFound(err) {
			return sandboxerr.New(sandboxerr.K8sSandboxNotFound, "sandbox %s not found", id)
		}
		return sandboxerr.Wrap(sandboxerr.K8sAPIError, err, "failed to get BatchSandbox for sandbox %s", id)
	}

	if err := unstructured.SetNestedField(obj.Object, expiresAt.UTC().Format(time.RFC3339), "spec", "expireTime"); err != nil {
		return sandboxerr.Wrap(sandboxerr.K8sAPIError, err, "failed to set expireTime for sandbox %s", id)
	}

	if _, err := p.client.Resource(gvr).Namespace(ns).Update(ctx, obj, metav1.UpdateOptions{}); err != nil {
		return sandboxerr.Wrap(sandboxerr.ExpirationNotExtended, err, "failed to patch expireTime for sandbox %s", id)
	}
	return nil
}

// GetExpiration reads spec.expireTime off a workload snapshot.
func (p *Provider) GetExpiration(workload provider.Workload) (time.Time, bool) {
	obj, ok := workload.(*unstructured.Unstructured)
	if !ok || obj == nil {
		return time.Time{}, false
	}
	raw, found, err := unstructured.NestedString(obj.Object, "spec", "expireTime")
	if err != nil || !found || raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// Pause / Resume are unsupported on the Kubernetes provider.
func (p *Provider) Pause(ctx context.Context, id, namespace string) error {
	return sandboxerr.New(sandboxerr.APINotSupported, "pause is not supported on the kubernetes provider")
}

func (p *Provider) Resume(ctx context.Context, id, namespace string) error {
	return sandboxerr.New(sandboxerr.APINotSupported, "resume is not supported on the kubernetes provider")
}
