package dockerprovider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"

	"github.com/docker/docker/api/types"

	"github.com/opensandbox/control-plane/internal/sandboxerr"
	"github.com/opensandbox/control-plane/internal/sandboxmodel"
)

// ensureImageAvailable inspects the image and pulls it if missing,
// attaching basic-auth from auth when provided. Pull failure surfaces as
// SANDBOX_IMAGE_PULL_FAILED; no credential is ever included in the
// resulting error message.
func (p *Provider) ensureImageAvailable(ctx context.Context, uri string, auth *sandboxmodel.ImageAuth) error {
	if _, _, err := p.client.ImageInspectWithRaw(ctx, uri); err == nil {
		return nil
	}

	pullOpts := types.ImagePullOptions{}
	if auth != nil {
		encoded, err := encodeRegistryAuth(auth)
		if err != nil {
			return sandboxerr.Wrap(sandboxerr.ImagePullFailed, err, "failed to encode registry credentials")
		}
		pullOpts.RegistryAuth = encoded
	}

	out, err := p.client.ImagePull(ctx, uri, pullOpts)
	if err != nil {
		return sandboxerr.Wrap(sandboxerr.ImagePullFailed, err, "failed to pull image %s", uri)
	}
	defer out.Close()

	if _, err := io.Copy(io.Discard, out); err != nil {
		return sandboxerr.Wrap(sandboxerr.ImagePullFailed, err, "failed to read pull progress for image %s", uri)
	}
	return nil
}

func encodeRegistryAuth(auth *sandboxmodel.ImageAuth) (string, error) {
	cfg := types.AuthConfig{
		Username: auth.Username,
		Password: auth.Password,
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}
