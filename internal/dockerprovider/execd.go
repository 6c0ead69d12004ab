package dockerprovider

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"

	"github.com/opensandbox/control-plane/internal/sandboxerr"
)

const (
	opensandboxDir  = "/opt/opensandbox"
	execdPath       = opensandboxDir + "/execd"
	bootstrapPath   = opensandboxDir + "/bootstrap.sh"
	execdSourcePath = "/execd" // path of the binary inside the platform image
)

// bootstrapScript is injected verbatim into every sandbox container. It
// starts execd in the background (logs redirected, never surfaced to the
// user process) and then exec-replaces itself with the user's entrypoint,
// so the user's process ends up PID-descended from this script with
// execd as a sibling.
func bootstrapScript() string {
	return fmt.Sprintf("#!/bin/sh\nset -e\n%s >/tmp/execd.log 2>&1 &\nexec \"$@\"\n", execdPath)
}

// fetchExecdArchive returns the cached execd binary bytes, populating the
// cache exactly once per process under double-checked locking: pull the
// configured platform image, create a throwaway container, stream out
// /execd, cache the bytes, delete the container.
func (p *Provider) fetchExecdArchive(ctx context.Context) ([]byte, error) {
	p.execdMu.Lock()
	loaded := p.execdLoaded
	cached := p.execdBytes
	p.execdMu.Unlock()
	if loaded {
		return cached, nil
	}

	p.execdMu.Lock()
	defer p.execdMu.Unlock()
	if p.execdLoaded {
		return p.execdBytes, nil
	}

	if err := p.ensureImageAvailable(ctx, p.cfg.ExecdImage, nil); err != nil {
		return nil, sandboxerr.Wrap(sandboxerr.ExecdDistributionFailed, err, "failed to pull execd image %s", p.cfg.ExecdImage)
	}

	resp, err := p.client.ContainerCreate(ctx, &container.Config{
		Image:      p.cfg.ExecdImage,
		Entrypoint: []string{"sleep"},
		Cmd:        []string{"3600"},
	}, nil, nil, nil, "")
	if err != nil {
		return nil, sandboxerr.Wrap(sandboxerr.ExecdDistributionFailed, err, "failed to create execd extraction container")
	}
	defer func() {
		_ = p.client.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true})
	}()

	reader, _, err := p.client.CopyFromContainer(ctx, resp.ID, execdSourcePath)
	if err != nil {
		return nil, sandboxerr.Wrap(sandboxerr.ExecdDistributionFailed, err, "failed to stream execd binary from extraction container")
	}
	defer reader.Close()

	data, err := extractSingleFileFromTar(reader)
	if err != nil {
		return nil, sandboxerr.Wrap(sandboxerr.ExecdDistributionFailed, err, "failed to read execd binary from tar stream")
	}

	p.execdBytes = data
	p.execdLoaded = true
	return p.execdBytes, nil
}

func extractSingleFileFromTar(r io.Reader) ([]byte, error) {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("tar stream contained no regular file")
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		return io.ReadAll(tr)
	}
}

// injectRuntimeAssets writes execd and bootstrap.sh into the
// created-but-not-started container at /opt/opensandbox/, mode 0755 with
// a current mtime, via a single tar archive passed to CopyToContainer.
func (p *Provider) injectRuntimeAssets(ctx context.Context, containerID string) error {
	execdBytes, err := p.fetchExecdArchive(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	now := time.Now()

	entries := []struct {
		name string
		body []byte
	}{
		{name: "opensandbox/execd", body: execdBytes},
		{name: "opensandbox/bootstrap.sh", body: []byte(bootstrapScript())},
	}
	for _, e := range entries {
		hdr := &tar.Header{
			Name:    e.name,
			Mode:    0755,
			Size:    int64(len(e.body)),
			ModTime: now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return sandboxerr.Wrap(sandboxerr.BootstrapInstallFailed, err, "failed to write tar header for %s", e.name)
		}
		if _, err := tw.Write(e.body); err != nil {
			return sandboxerr.Wrap(sandboxerr.BootstrapInstallFailed, err, "failed to write tar body for %s", e.name)
		}
	}
	if err := tw.Close(); err != nil {
		return sandboxerr.Wrap(sandboxerr.BootstrapInstallFailed, err, "failed to finalize asset archive")
	}

	if err := p.client.CopyToContainer(ctx, containerID, "/opt", &buf, types.CopyToContainerOptions{}); err != nil {
		return sandboxerr.Wrap(sandboxerr.BootstrapInstallFailed, err, "failed to copy runtime assets into container")
	}
	return nil
}
