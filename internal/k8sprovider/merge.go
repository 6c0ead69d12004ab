package k8sprovider

import (
	"os"

	"gopkg.in/yaml.v3"
)

// loadUserTemplate parses a YAML file into a generic map for deep-merge
// under the runtime-generated manifest. Grounded on the teacher's own
// yaml.v3 template-loading idiom (internal/templates/loader.go), adapted
// here from a named-template registry to a single deep-merge source.
func loadUserTemplate(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// deepMerge merges src (the user template, providing defaults) under
// dst (the runtime-generated manifest, which always wins on conflict).
// Maps are merged key by key; any other type, including slices, is
// replaced wholesale by dst's value when both sides set it.
func deepMerge(dst, src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return dst
	}
	out := make(map[string]interface{}, len(src)+len(dst))
	for k, v := range src {
		out[k] = v
	}
	for k, v := range dst {
		existing, ok := out[k]
		if !ok {
			out[k] = v
			continue
		}
		dstMap, dstIsMap := v.(map[string]interface{})
		srcMap, srcIsMap := existing.(map[string]interface{})
		if dstIsMap && srcIsMap {
			out[k] = deepMerge(dstMap, srcMap)
		} else {
			out[k] = v
		}
	}
	return out
}
