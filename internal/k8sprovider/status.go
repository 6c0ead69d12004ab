package k8sprovider

import (
	"encoding/json"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/opensandbox/control-plane/internal/provider"
	"github.com/opensandbox/control-plane/internal/sandboxid"
	"github.com/opensandbox/control-plane/internal/sandboxmodel"
)

// GetStatus projects status.{allocated,ready,phase} plus the
// endpoints annotation into the shared state set. A controller that
// sets status.phase == "Failed" (its own terminal-failure signal, e.g.
// a pod that crash-looped past its restart budget) maps directly to
// Failed/BATCHSANDBOX_FAILED; everything else follows the
// ready/allocated progression table.
func (p *Provider) GetStatus(workload provider.Workload) sandboxmodel.Status {
	obj, ok := workload.(*unstructured.Unstructured)
	if !ok || obj == nil {
		return sandboxmodel.Status{State: sandboxmodel.Unknown, Reason: "UNKNOWN", Message: "no workload snapshot"}
	}

	if phase, found, _ := unstructured.NestedString(obj.Object, "status", "phase"); found && phase == "Failed" {
		return sandboxmodel.Status{State: sandboxmodel.Failed, Reason: "BATCHSANDBOX_FAILED", Message: "batch sandbox reported a failed phase"}
	}

	ready, _, _ := unstructured.NestedInt64(obj.Object, "status", "ready")
	allocated, _, _ := unstructured.NestedInt64(obj.Object, "status", "allocated")
	_, hasEndpoint := p.endpointIP(obj)

	switch {
	case ready >= 1 && hasEndpoint:
		return sandboxmodel.Status{State: sandboxmodel.Running, Reason: "READY_WITH_IP", Message: "batch sandbox is ready with an assigned endpoint"}
	case ready >= 1:
		return sandboxmodel.Status{State: sandboxmodel.Pending, Reason: "POD_READY_NO_IP", Message: "batch sandbox is ready but has no assigned endpoint yet"}
	case allocated >= 1:
		return sandboxmodel.Status{State: sandboxmodel.Pending, Reason: "POD_SCHEDULED", Message: "batch sandbox has an allocated pod but it is not ready"}
	default:
		return sandboxmodel.Status{State: sandboxmodel.Pending, Reason: "BATCHSANDBOX_PENDING", Message: "batch sandbox has not yet allocated a pod"}
	}
}

// GetID reads the sandbox id label off a workload snapshot.
func (p *Provider) GetID(workload provider.Workload) (string, bool) {
	obj, ok := workload.(*unstructured.Unstructured)
	if !ok || obj == nil {
		return "", false
	}
	id, ok := obj.GetLabels()[sandboxid.IDLabel]
	return id, ok
}

// GetCreatedAt reads the BatchSandbox's creation timestamp.
func (p *Provider) GetCreatedAt(workload provider.Workload) time.Time {
	obj, ok := workload.(*unstructured.Unstructured)
	if !ok || obj == nil {
		return time.Time{}
	}
	return obj.GetCreationTimestamp().Time.UTC()
}

// GetMetadata projects a BatchSandbox's labels back into user-facing
// metadata, stripping the reserved opensandbox.io/ namespace.
func (p *Provider) GetMetadata(workload provider.Workload) map[string]string {
	obj, ok := workload.(*unstructured.Unstructured)
	if !ok || obj == nil {
		return nil
	}
	return sandboxid.StripReserved(obj.GetLabels())
}

// endpointIP parses the sandbox.opensandbox.io/endpoints annotation as a
// JSON array of pod IPs and returns the first non-empty one.
func (p *Provider) endpointIP(obj *unstructured.Unstructured) (string, bool) {
	raw, ok := obj.GetAnnotations()[sandboxid.EndpointsAnnotation]
	if !ok || raw == "" {
		return "", false
	}
	var ips []string
	if err := json.Unmarshal([]byte(raw), &ips); err != nil {
		return "", false
	}
	for _, ip := range ips {
		if ip != "" {
			return ip, true
		}
	}
	return "", false
}

// GetEndpointInfo resolves <ip>:<port> from the endpoints annotation;
// (.., false) if absent, unparseable, or empty — the service maps that
// to 404 K8sPodIPNotAvailable.
func (p *Provider) GetEndpointInfo(workload provider.Workload, port int) (string, bool) {
	obj, ok := workload.(*unstructured.Unstructured)
	if !ok || obj == nil {
		return "", false
	}
	ip, ok := p.endpointIP(obj)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%s:%d", ip, port), true
}

// GetInternalEndpointInfo ignores the internal/external distinction: a
// pod's address from the endpoints annotation is already internal-only,
// so this is identical to GetEndpointInfo.
func (p *Provider) GetInternalEndpointInfo(workload provider.Workload, port int) (string, bool) {
	return p.GetEndpointInfo(workload, port)
}
