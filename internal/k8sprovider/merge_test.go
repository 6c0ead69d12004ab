package k8sprovider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeepMergeDstWinsOnConflict(t *testing.T) {
	dst := map[string]interface{}{"spec": map[string]interface{}{"replicas": 1}}
	src := map[string]interface{}{"spec": map[string]interface{}{"replicas": 99, "extra": "kept"}}

	merged := deepMerge(dst, src)
	spec := merged["spec"].(map[string]interface{})
	assert.Equal(t, 1, spec["replicas"], "dst always wins on a scalar conflict")
	assert.Equal(t, "kept", spec["extra"], "src-only keys survive the merge")
}

func TestDeepMergeNilSrcReturnsDst(t *testing.T) {
	dst := map[string]interface{}{"a": 1}
	assert.Equal(t, dst, deepMerge(dst, nil))
}

func TestDeepMergeNonMapDstReplacesWholesale(t *testing.T) {
	dst := map[string]interface{}{"tags": []interface{}{"x", "y"}}
	src := map[string]interface{}{"tags": []interface{}{"default"}}

	merged := deepMerge(dst, src)
	assert.Equal(t, []interface{}{"x", "y"}, merged["tags"])
}

func TestLoadUserTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "template.yaml")
	require.NoError(t, os.WriteFile(path, []byte("spec:\n  replicas: 3\n"), 0o644))

	tmpl, err := loadUserTemplate(path)
	require.NoError(t, err)
	spec := tmpl["spec"].(map[string]interface{})
	assert.EqualValues(t, 3, spec["replicas"])
}

func TestLoadUserTemplateMissingFile(t *testing.T) {
	_, err := loadUserTemplate(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
