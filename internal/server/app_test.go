package server

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/gophauth/internal/server/cache"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.ServerAddr = "127.0.0.1:0"
	c.DatabaseDSN = "memory://"
	c.LogLevel = "error"
	c.UploadDir = t.TempDir()
	c.S3RootUser = "user"
	c.S3RootPassword = "password"
	return c
}

func TestNewApp_Memory(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t))
	require.NoError(t, err)
	require.NotNil(t, app.accounts)

	n, err := app.accounts.GetActiveUserCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestNewApp_WithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	c := testConfig(t)
	c.RedisURL = "redis://" + mr.Addr()

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.profiles.Close() })

	_, ok := app.profiles.(*cache.RedisCache)
	assert.True(t, ok)
}

func TestNewApp_BadDSN(t *testing.T) {
	c := testConfig(t)
	c.DatabaseDSN = "mysql://localhost/db"

	_, err := NewApp(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db init error")
}

func TestNewApp_BadRedisURL(t *testing.T) {
	c := testConfig(t)
	c.RedisURL = "not-a-redis-url"

	_, err := NewApp(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache init error")
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}
