package k8sprovider

import (
	"fmt"
	"time"

	"github.com/opensandbox/control-plane/internal/provider"
	"github.com/opensandbox/control-plane/internal/sandboxmodel"
	"github.com/opensandbox/control-plane/internal/validate"
)

const (
	opensandboxBinDir = "/opt/opensandbox/bin"
	bootstrapPath     = opensandboxBinDir + "/bootstrap.sh"
	execdPath         = opensandboxBinDir + "/execd"
	sharedVolumeName  = "opensandbox-bin"
)

// buildManifest returns the BatchSandbox spec body (everything under
// "spec") for params, in template mode or pool mode depending on
// whether Extensions["poolRef"] is set.
func (p *Provider) buildManifest(params provider.CreateParams) map[string]interface{} {
	if poolRef, ok := params.Extensions["poolRef"]; ok && poolRef != "" {
		return buildPoolSpec(params, poolRef)
	}
	return p.buildTemplateSpec(params)
}

// buildPoolSpec omits "template" entirely; image and resource fields are
// accepted in params but never referenced here, since the pool owns
// them.
func buildPoolSpec(params provider.CreateParams, poolRef string) map[string]interface{} {
	command := fmt.Sprintf("%s %s &", bootstrapPath, shellJoin(params.Entrypoint))
	return map[string]interface{}{
		"poolRef":    poolRef,
		"expireTime": params.ExpiresAt.UTC().Format(time.RFC3339),
		"taskTemplate": map[string]interface{}{
			"spec": map[string]interface{}{
				"process": map[string]interface{}{
					"command": []interface{}{"/bin/sh", "-c", command},
					"env":     envList(params.Env),
				},
			},
		},
	}
}

func (p *Provider) buildTemplateSpec(params provider.CreateParams) map[string]interface{} {
	runtimeSpec := map[string]interface{}{
		"replicas":   int64(1),
		"expireTime": params.ExpiresAt.UTC().Format(time.RFC3339),
		"template": map[string]interface{}{
			"spec": map[string]interface{}{
				"initContainers": []interface{}{execdInstaller(params)},
				"containers":     []interface{}{mainContainer(params)},
				"volumes":        volumes(params.VolumeMounts),
			},
		},
	}

	if p.userTemplate == nil {
		return runtimeSpec
	}
	return deepMerge(runtimeSpec, p.userTemplate)
}

func execdInstaller(params provider.CreateParams) map[string]interface{} {
	install := fmt.Sprintf("cp /execd %s && cp /bootstrap.sh %s && chmod 0755 %s %s", execdPath, bootstrapPath, execdPath, bootstrapPath)
	return map[string]interface{}{
		"name":    "execd-installer",
		"image":   params.ExecdImage,
		"command": []interface{}{"/bin/sh", "-c", install},
		"volumeMounts": []interface{}{
			map[string]interface{}{"name": sharedVolumeName, "mountPath": opensandboxBinDir},
		},
	}
}

// mainContainer wraps the user entrypoint with the bootstrap script and
// sets resources as both limits and requests, yielding Guaranteed QoS.
func mainContainer(params provider.CreateParams) map[string]interface{} {
	env := envList(params.Env)
	env = append(env, map[string]interface{}{"name": "EXECD", "value": execdPath})

	command := append([]interface{}{bootstrapPath}, stringsToAny(params.Entrypoint)...)

	mounts := []interface{}{
		map[string]interface{}{"name": sharedVolumeName, "mountPath": opensandboxBinDir},
	}
	for i, m := range params.VolumeMounts {
		mounts = append(mounts, map[string]interface{}{
			"name":      volumeName(i),
			"mountPath": m.ContainerPath,
			"readOnly":  m.ReadOnly,
		})
	}

	container := map[string]interface{}{
		"name":         "sandbox",
		"image":        params.Image.URI,
		"command":      command,
		"env":          env,
		"volumeMounts": mounts,
	}
	if resources := resourceRequirements(params.ResourceLimits); resources != nil {
		container["resources"] = resources
	}
	return container
}

// volumes builds the shared opensandbox-bin empty-dir plus one host-path
// volume per user mount.
func volumes(mounts []sandboxmodel.VolumeMount) []interface{} {
	out := []interface{}{
		map[string]interface{}{
			"name":     sharedVolumeName,
			"emptyDir": map[string]interface{}{},
		},
	}
	for i, m := range mounts {
		out = append(out, map[string]interface{}{
			"name": volumeName(i),
			"hostPath": map[string]interface{}{
				"path": m.HostPath,
			},
		})
	}
	return out
}

// resourceRequirements translates the cpu/memory resource-limit strings
// into a Kubernetes ResourceRequirements body, or nil if no recognized
// key is set.
func resourceRequirements(limits map[string]string) map[string]interface{} {
	quantities := map[string]interface{}{}
	if mem, ok := limits["memory"]; ok && mem != "" {
		if bytes, ok := validate.ParseMemoryLimit(mem); ok {
			quantities["memory"] = fmt.Sprintf("%d", bytes)
		}
	}
	if cpu, ok := limits["cpu"]; ok && cpu != "" {
		if nanoCPUs, ok := validate.ParseNanoCPUs(cpu); ok {
			quantities["cpu"] = fmt.Sprintf("%dn", nanoCPUs)
		}
	}
	if len(quantities) == 0 {
		return nil
	}
	return map[string]interface{}{
		"limits":   quantities,
		"requests": quantities,
	}
}

func stringsToAny(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func envList(env map[string]string) []interface{} {
	out := make([]interface{}, 0, len(env))
	for k, v := range env {
		out = append(out, map[string]interface{}{"name": k, "value": v})
	}
	return out
}

func volumeName(i int) string {
	return fmt.Sprintf("user-mount-%d", i)
}
