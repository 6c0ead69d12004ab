package dockerprovider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"

	"github.com/opensandbox/control-plane/internal/provider"
	"github.com/opensandbox/control-plane/internal/sandboxerr"
	"github.com/opensandbox/control-plane/internal/sandboxid"
	"github.com/opensandbox/control-plane/internal/sandboxmodel"
	"github.com/opensandbox/control-plane/internal/validate"
)

// CreateWorkload runs the full Docker lifecycle for create_sandbox:
// ensure image -> allocate ports (bridge) -> build configs -> create
// container with labels -> inject execd+bootstrap -> start. Any failure
// past container creation attempts a best-effort forced remove.
func (p *Provider) CreateWorkload(ctx context.Context, params provider.CreateParams) (provider.WorkloadRef, error) {
	if err := p.ensureImageAvailable(ctx, params.Image.URI, params.Image.Auth); err != nil {
		return provider.WorkloadRef{}, err
	}

	labels := make(map[string]string, len(params.Labels)+4)
	for k, v := range params.Labels {
		labels[k] = v
	}
	labels[sandboxid.IDLabel] = params.SandboxID
	labels[sandboxid.ExpiresAtLabel] = params.ExpiresAt.UTC().Format(time.RFC3339)

	var ports allocatedPorts
	exposedPorts := nat.PortSet{}
	portBindings := nat.PortMap{}

	if p.cfg.NetworkMode == NetworkModeBridge {
		var err error
		ports, err = p.allocateBridgePorts()
		if err != nil {
			return provider.WorkloadRef{}, err
		}
		labels[sandboxid.EmbeddingProxyPortLabel] = strconv.Itoa(ports.embeddingProxy)
		labels[sandboxid.HTTPPortLabel] = strconv.Itoa(ports.http)

		exposedPorts, portBindings = buildPortMaps(ports)
	}

	resources, err := p.buildResources(params.ResourceLimits)
	if err != nil {
		return provider.WorkloadRef{}, err
	}

	binds := buildBinds(params.VolumeMounts)

	containerCfg := &container.Config{
		Image:        params.Image.URI,
		Entrypoint:   []string{bootstrapPath},
		Cmd:          params.Entrypoint,
		Env:          buildEnvList(params.Env),
		Labels:       labels,
		ExposedPorts: exposedPorts,
	}

	hostCfg := &container.HostConfig{
		Resources:     resources,
		NetworkMode:   container.NetworkMode(p.cfg.NetworkMode),
		PortBindings:  portBindings,
		Binds:         binds,
		AutoRemove:    false,
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyDisabled},
	}
	p.applySecurityOpts(hostCfg)

	name := containerName(params.SandboxID)
	resp, err := p.client.ContainerCreate(ctx, containerCfg, hostCfg, &network.NetworkingConfig{}, nil, name)
	if err != nil {
		return provider.WorkloadRef{}, sandboxerr.Wrap(sandboxerr.ContainerStartFailed, err, "failed to create container for sandbox %s", params.SandboxID)
	}
	containerID := resp.ID

	if err := p.injectRuntimeAssets(ctx, containerID); err != nil {
		p.bestEffortRemove(containerID)
		return provider.WorkloadRef{}, err
	}

	if err := p.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		p.bestEffortRemove(containerID)
		return provider.WorkloadRef{}, sandboxerr.Wrap(sandboxerr.ContainerStartFailed, err, "failed to start container for sandbox %s", params.SandboxID)
	}

	return provider.WorkloadRef{Name: name, UID: containerID}, nil
}

func (p *Provider) bestEffortRemove(containerID string) {
	_ = p.client.ContainerRemove(context.Background(), containerID, container.RemoveOptions{Force: true})
}

func buildPortMaps(ports allocatedPorts) (nat.PortSet, nat.PortMap) {
	proxyPort := nat.Port(fmt.Sprintf("%d/tcp", sandboxid.EmbeddingProxyPort))
	httpPort := nat.Port(fmt.Sprintf("%d/tcp", sandboxid.HTTPPort))

	exposed := nat.PortSet{proxyPort: struct{}{}, httpPort: struct{}{}}
	bindings := nat.PortMap{
		proxyPort: []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: strconv.Itoa(ports.embeddingProxy)}},
		httpPort:  []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: strconv.Itoa(ports.http)}},
	}
	return exposed, bindings
}

// buildEnvList converts the env map to Docker's "KEY=VALUE" list form.
// Null-valued entries are dropped before this is invoked, when the HTTP
// layer decodes the request (see internal/api's
// createRequestDTO.toCreateRequest); empty-string values are preserved
// as "KEY=".
func buildEnvList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}

func (p *Provider) buildResources(limits map[string]string) (container.Resources, error) {
	var res container.Resources
	if mem, ok := limits["memory"]; ok && mem != "" {
		bytes, ok := validate.ParseMemoryLimit(mem)
		if !ok {
			return res, sandboxerr.New(sandboxerr.InvalidParameter, "invalid memory limit %q", mem)
		}
		res.Memory = bytes
	}
	if cpu, ok := limits["cpu"]; ok && cpu != "" {
		nanoCPUs, ok := validate.ParseNanoCPUs(cpu)
		if !ok {
			return res, sandboxerr.New(sandboxerr.InvalidParameter, "invalid cpu limit %q", cpu)
		}
		res.NanoCPUs = nanoCPUs
	}
	if p.cfg.Security.PidsLimit > 0 {
		limit := p.cfg.Security.PidsLimit
		res.PidsLimit = &limit
	}
	return res, nil
}

func (p *Provider) applySecurityOpts(hostCfg *container.HostConfig) {
	sec := p.cfg.Security
	var opts []string
	if sec.NoNewPrivileges {
		opts = append(opts, "no-new-privileges:true")
	}
	if sec.AppArmorProfile != "" {
		opts = append(opts, "apparmor="+sec.AppArmorProfile)
	}
	if sec.SeccompProfile != "" {
		opts = append(opts, "seccomp="+sec.SeccompProfile)
	}
	if len(opts) > 0 {
		hostCfg.SecurityOpt = opts
	}
	if len(sec.CapDrop) > 0 {
		hostCfg.CapDrop = sec.CapDrop
	}
}

func buildBinds(mounts []sandboxmodel.VolumeMount) []string {
	binds := make([]string, 0, len(mounts))
	for _, m := range mounts {
		mode := "rw"
		if m.ReadOnly {
			mode = "ro"
		}
		binds = append(binds, fmt.Sprintf("%s:%s:%s", m.HostPath, m.ContainerPath, mode))
	}
	return binds
}
