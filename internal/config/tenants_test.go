package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenantYAML = `
tenants:
  acme:
    chat_model: acme-chat
    top_k: 8
    strict_mode: false
    noise_markers: ["ad break"]
  globex:
    refusal_message: "Nothing found."
`

func writeTenantFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "tenants.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseTenantFile(t *testing.T) {
	f, err := ParseTenantFile([]byte(tenantYAML))
	require.NoError(t, err)
	require.Len(t, f.Tenants, 2)

	acme := f.Tenants["acme"]
	require.NotNil(t, acme.ChatModel)
	assert.Equal(t, "acme-chat", *acme.ChatModel)
	require.NotNil(t, acme.TopK)
	assert.Equal(t, 8, *acme.TopK)
	require.NotNil(t, acme.StrictMode)
	assert.False(t, *acme.StrictMode)
	assert.Equal(t, []string{"ad break"}, acme.NoiseMarkers)
	assert.Nil(t, acme.MinScore)
}

func TestParseTenantFile_Invalid(t *testing.T) {
	_, err := ParseTenantFile([]byte("tenants: [unclosed"))
	assert.Error(t, err)
}

func TestLoadTenantSettings(t *testing.T) {
	path := writeTenantFile(t, t.TempDir(), tenantYAML)

	ts, err := LoadTenantSettings(path)
	require.NoError(t, err)

	acme := ts.ForTenant("acme")
	require.NotNil(t, acme)
	assert.Equal(t, "acme-chat", *acme.ChatModel)
	assert.Nil(t, ts.ForTenant("unknown"))

	s, err := Resolve(DefaultSettings(), ts.ForTenant("globex"))
	require.NoError(t, err)
	assert.Equal(t, "Nothing found.", s.RefusalMessage)
}

func TestLoadTenantSettings_EmptyPath(t *testing.T) {
	ts, err := LoadTenantSettings("")
	require.NoError(t, err)
	assert.Nil(t, ts.ForTenant("acme"))
}

func TestLoadTenantSettings_MissingFile(t *testing.T) {
	_, err := LoadTenantSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestTenantSettings_ReloadKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeTenantFile(t, dir, tenantYAML)
	ts, err := LoadTenantSettings(path)
	require.NoError(t, err)

	writeTenantFile(t, dir, "tenants: [broken")
	assert.Error(t, ts.Reload())
	assert.NotNil(t, ts.ForTenant("acme"))
}

func TestTenantSettings_Watch(t *testing.T) {
	dir := t.TempDir()
	path := writeTenantFile(t, dir, tenantYAML)
	ts, err := LoadTenantSettings(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ts.Watch(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeTenantFile(t, dir, "tenants:\n  initech:\n    top_k: 2\n")

	assert.Eventually(t, func() bool {
		return ts.ForTenant("initech") != nil
	}, 3*time.Second, 50*time.Millisecond)
	assert.Nil(t, ts.ForTenant("acme"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
