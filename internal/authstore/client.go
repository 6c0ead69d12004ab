// Package authstore is the Postgres-backed API-key client store: the
// "API-key store" collaborator that the HTTP layer consults on every
// request to resolve the OPEN-SANDBOX-API-KEY header into an active
// client, or reject it.
package authstore

import "time"

// Client is an API client authorized to call the control plane.
// Unlike the teacher's ApiClient, there is no permission/wildcard
// scheme here: spec.md's auth model is a binary active/inactive check
// on the key alone, so Permissions is dropped.
type Client struct {
	ID         int64
	Name       string
	IsActive   bool
	CreatedAt  time.Time
	LastUsedAt *time.Time
	Metadata   map[string]string
}
