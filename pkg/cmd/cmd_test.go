package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/automation/pkg/persistence/file"
	"github.com/dukex/automation/pkg/persistence/memory"
	schedmemory "github.com/dukex/automation/pkg/scheduler/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestParsePersistenceProvider(t *testing.T) {
	assert.Equal(t, "memory", parsePersistenceProvider("memory://"))
	assert.Equal(t, "postgres", parsePersistenceProvider("postgres://user@localhost/db"))
	assert.Equal(t, "postgresql", parsePersistenceProvider("postgresql://user@localhost/db"))
	assert.Equal(t, "file", parsePersistenceProvider("file://./fixtures.yaml"))
	assert.Equal(t, "file", parsePersistenceProvider("./fixtures.yaml"))
	assert.Equal(t, "file", parsePersistenceProvider("mongodb://localhost"))
}

func TestNewPersistence(t *testing.T) {
	ctx := context.Background()

	p, err := NewPersistence(ctx, testLogger(), "memory://")
	require.NoError(t, err)
	assert.IsType(t, &memory.Persistence{}, p)

	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tenants:\n  - id: t1\n    name: Shop\n"), 0o600))

	p, err = NewPersistence(ctx, testLogger(), "file://"+path)
	require.NoError(t, err)
	assert.IsType(t, &file.Persistence{}, p)

	_, err = NewPersistence(ctx, testLogger(), "file://"+filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestNewEventBus(t *testing.T) {
	bus, err := NewEventBus("gochannel", "", "automation", testLogger())
	require.NoError(t, err)
	require.NoError(t, bus.Close())

	_, err = NewEventBus("kafka", "", "automation", testLogger())
	require.Error(t, err)

	_, err = NewEventBus("rabbitmq", "", "automation", testLogger())
	require.Error(t, err)
}

func TestNewJobQueue(t *testing.T) {
	q, err := NewJobQueue("memory", nil, 0, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &schedmemory.Queue{}, q)

	_, err = NewJobQueue("redis", nil, 0, testLogger())
	require.Error(t, err)

	_, err = NewJobQueue("sqs", nil, 0, testLogger())
	require.Error(t, err)
}

func TestNewRedisClient(t *testing.T) {
	client, err := NewRedisClient("redis://localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, 2, client.Options().DB)
	require.NoError(t, client.Close())

	_, err = NewRedisClient("http://localhost")
	require.Error(t, err)
}

func TestNewSenderOptions(t *testing.T) {
	opts := NewSenderOptions(testLogger(), SenderConfig{
		SharedMailURL: "https://mail.example.com",
		QuotaLimit:    100,
	}, nil)

	assert.Len(t, opts, 3)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("AUTOMATION_TEST_DOTENV=loaded\n"), 0o600))
	t.Chdir(dir)

	LoadDotEnv(testLogger())
	t.Cleanup(func() { _ = os.Unsetenv("AUTOMATION_TEST_DOTENV") })

	assert.Equal(t, "loaded", os.Getenv("AUTOMATION_TEST_DOTENV"))
}
