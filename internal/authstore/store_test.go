package authstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.MonitorPingsOption(true),
	)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func TestGetClientByAPIKeyFound(t *testing.T) {
	store, mock := newMockStore(t)

	createdAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lastUsed := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	metadata, err := json.Marshal(map[string]string{"owner": "platform-team"})
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"id", "name", "is_active", "created_at", "last_used_at", "metadata"}).
		AddRow(int64(1), "ci-bot", true, createdAt, lastUsed, metadata)

	mock.ExpectQuery("SELECT id, name, is_active, created_at, last_used_at, metadata").
		WithArgs("sk-live-abc").
		WillReturnRows(rows)

	client, err := store.GetClientByAPIKey(context.Background(), "sk-live-abc")
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, int64(1), client.ID)
	assert.Equal(t, "ci-bot", client.Name)
	assert.True(t, client.IsActive)
	require.NotNil(t, client.LastUsedAt)
	assert.True(t, client.LastUsedAt.Equal(lastUsed))
	assert.Equal(t, "platform-team", client.Metadata["owner"])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetClientByAPIKeyNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, name, is_active, created_at, last_used_at, metadata").
		WithArgs("sk-unknown").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "is_active", "created_at", "last_used_at", "metadata"}))

	client, err := store.GetClientByAPIKey(context.Background(), "sk-unknown")
	assert.NoError(t, err)
	assert.Nil(t, client)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetClientByAPIKeyNoLastUsedOrMetadata(t *testing.T) {
	store, mock := newMockStore(t)

	createdAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "name", "is_active", "created_at", "last_used_at", "metadata"}).
		AddRow(int64(2), "fresh-client", true, createdAt, nil, nil)

	mock.ExpectQuery("SELECT id, name, is_active, created_at, last_used_at, metadata").
		WithArgs("sk-fresh").
		WillReturnRows(rows)

	client, err := store.GetClientByAPIKey(context.Background(), "sk-fresh")
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Nil(t, client.LastUsedAt)
	assert.Nil(t, client.Metadata)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLastUsed(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE api_clients SET last_used_at").
		WithArgs("sk-live-abc").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateLastUsed(context.Background(), "sk-live-abc")
	assert.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectPing()

	assert.NoError(t, store.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
