package k8sprovider

import (
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensandbox/control-plane/internal/sandboxid"
	"github.com/opensandbox/control-plane/internal/sandboxmodel"
)

func newBatchSandbox(t *testing.T, status map[string]interface{}, annotations map[string]string) *unstructured.Unstructured {
	t.Helper()
	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"status": status,
	}}
	obj.SetLabels(map[string]string{sandboxid.IDLabel: "sbx-1"})
	obj.SetAnnotations(annotations)
	obj.SetCreationTimestamp(metav1.Now())
	return obj
}

func TestGetStatusFailedPhase(t *testing.T) {
	p := &Provider{}
	obj := newBatchSandbox(t, map[string]interface{}{"phase": "Failed"}, nil)

	status := p.GetStatus(obj)
	assert.Equal(t, sandboxmodel.Failed, status.State)
	assert.Equal(t, "BATCHSANDBOX_FAILED", status.Reason)
}

func TestGetStatusReadyWithEndpoint(t *testing.T) {
	p := &Provider{}
	obj := newBatchSandbox(t, map[string]interface{}{"ready": int64(1), "allocated": int64(1)}, map[string]string{
		sandboxid.EndpointsAnnotation: `["10.0.0.5"]`,
	})

	status := p.GetStatus(obj)
	assert.Equal(t, sandboxmodel.Running, status.State)
	assert.Equal(t, "READY_WITH_IP", status.Reason)
}

func TestGetStatusReadyWithoutEndpoint(t *testing.T) {
	p := &Provider{}
	obj := newBatchSandbox(t, map[string]interface{}{"ready": int64(1)}, nil)

	status := p.GetStatus(obj)
	assert.Equal(t, sandboxmodel.Pending, status.State)
	assert.Equal(t, "POD_READY_NO_IP", status.Reason)
}

func TestGetStatusAllocatedNotReady(t *testing.T) {
	p := &Provider{}
	obj := newBatchSandbox(t, map[string]interface{}{"allocated": int64(1)}, nil)

	status := p.GetStatus(obj)
	assert.Equal(t, sandboxmodel.Pending, status.State)
	assert.Equal(t, "POD_SCHEDULED", status.Reason)
}

func TestGetStatusNoAllocation(t *testing.T) {
	p := &Provider{}
	obj := newBatchSandbox(t, map[string]interface{}{}, nil)

	status := p.GetStatus(obj)
	assert.Equal(t, sandboxmodel.Pending, status.State)
	assert.Equal(t, "BATCHSANDBOX_PENDING", status.Reason)
}

func TestGetStatusNotUnstructured(t *testing.T) {
	p := &Provider{}
	status := p.GetStatus("not-a-workload")
	assert.Equal(t, sandboxmodel.Unknown, status.State)
}

func TestGetIDReadsLabel(t *testing.T) {
	p := &Provider{}
	obj := newBatchSandbox(t, nil, nil)

	id, ok := p.GetID(obj)
	assert.True(t, ok)
	assert.Equal(t, "sbx-1", id)
}

func TestGetCreatedAtReadsCreationTimestamp(t *testing.T) {
	p := &Provider{}
	obj := newBatchSandbox(t, nil, nil)
	assert.False(t, p.GetCreatedAt(obj).IsZero())
}

func TestGetMetadataStripsReservedLabels(t *testing.T) {
	p := &Provider{}
	obj := &unstructured.Unstructured{Object: map[string]interface{}{}}
	obj.SetLabels(map[string]string{
		sandboxid.IDLabel: "sbx-1",
		"team":            "platform",
	})

	meta := p.GetMetadata(obj)
	_, hasReserved := meta[sandboxid.IDLabel]
	assert.False(t, hasReserved)
	assert.Equal(t, "platform", meta["team"])
}

func TestGetEndpointInfoResolvesFirstIP(t *testing.T) {
	p := &Provider{}
	obj := newBatchSandbox(t, nil, map[string]string{
		sandboxid.EndpointsAnnotation: `["", "10.0.0.7"]`,
	})

	endpoint, ok := p.GetEndpointInfo(obj, 8080)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.7:8080", endpoint)
}

func TestGetEndpointInfoMissingAnnotation(t *testing.T) {
	p := &Provider{}
	obj := newBatchSandbox(t, nil, nil)

	_, ok := p.GetEndpointInfo(obj, 8080)
	assert.False(t, ok)
}

func TestGetInternalEndpointInfoMatchesExternal(t *testing.T) {
	p := &Provider{}
	obj := newBatchSandbox(t, nil, map[string]string{
		sandboxid.EndpointsAnnotation: `["10.0.0.7"]`,
	})

	external, _ := p.GetEndpointInfo(obj, 8080)
	internal, _ := p.GetInternalEndpointInfo(obj, 8080)
	assert.Equal(t, external, internal)
}
