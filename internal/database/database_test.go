package database_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/casedesk-api/internal/database"
	"github.com/noah-isme/casedesk-api/internal/models"
)

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := database.ConnectRedis(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	require.NoError(t, client.Set(context.Background(), "chatroom:1", "5,9", 0).Err())
	require.True(t, mr.Exists("chatroom:1"))
	require.NoError(t, client.Close())

	_, err = database.ConnectRedis(context.Background(), "")
	require.Error(t, err)

	_, err = database.ConnectRedis(context.Background(), "not a url")
	require.Error(t, err)

	mr.Close()
	_, err = database.ConnectRedis(context.Background(), "redis://"+mr.Addr())
	require.Error(t, err)
}

func TestConnectSQLiteMigratesModels(t *testing.T) {
	db, err := database.Connect("sqlite", "file::memory:?cache=shared")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	for _, table := range []string{"cases", "chat_rooms", "messages", "message_statuses", "notifications"} {
		require.Truef(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := database.Connect("mysql", "dsn")
	require.Error(t, err)

	_, err = database.ConnectSQLite("")
	require.Error(t, err)

	_, err = database.ConnectNATS("", "casedesk")
	require.Error(t, err)
}
