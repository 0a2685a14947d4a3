package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "httpfetch.yaml")
	content := `
timeout: 5000
followRedirects: false
maxRedirects: 3
lowSpeedLimit: 100
lowSpeedWindow: 2000
rateLimit: 25
historyPath: /tmp/transfers.db
headers:
  User-Agent: httpfetch-test
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.GetTimeout())
	assert.False(t, cfg.GetFollowRedirects())
	assert.Equal(t, 3, cfg.MaxRedirects)
	assert.EqualValues(t, 100, cfg.LowSpeedLimit)
	assert.Equal(t, 2*time.Second, cfg.GetLowSpeedWindow())
	assert.Equal(t, 25.0, cfg.RateLimit)
	assert.Equal(t, "/tmp/transfers.db", cfg.HistoryPath)
	assert.Equal(t, "httpfetch-test", cfg.Headers["User-Agent"])
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := FindAndLoad(t.TempDir())
	require.NoError(t, err)

	assert.True(t, cfg.GetFollowRedirects())
	assert.False(t, cfg.GetNoColor())
	assert.False(t, cfg.GetVerbose())
	assert.Zero(t, cfg.GetTimeout())
	assert.Empty(t, cfg.Headers)
}

func TestLoad_SearchOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".httpfetch.yaml"), []byte("maxRedirects: 7"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "httpfetch.yaml"), []byte("maxRedirects: 9"), 0o644))

	cfg, err := FindAndLoad(dir)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxRedirects, "the dotted name wins")
}

func TestLoad_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: [not an int"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
