package api

import (
	"context"

	"github.com/opensandbox/control-plane/internal/authstore"
)

type contextKey string

const clientContextKey contextKey = "api_client"

// ClientFromContext extracts the authenticated client from ctx.
func ClientFromContext(ctx context.Context) *authstore.Client {
	client, ok := ctx.Value(clientContextKey).(*authstore.Client)
	if !ok {
		return nil
	}
	return client
}

// ContextWithClient returns a copy of ctx carrying client.
func ContextWithClient(ctx context.Context, client *authstore.Client) context.Context {
	return context.WithValue(ctx, clientContextKey, client)
}
