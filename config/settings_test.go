package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory so no stray .env is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestDefaultsAreValid(t *testing.T) {
	isolate(t)
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
}

func TestLoadYAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "sketchroom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9090"
db_path: presence.db
mdns: true
client:
  width: 800
  codec: cbor
  sync_timeout: 2s
`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", s.Addr)
	assert.Equal(t, "presence.db", s.DBPath)
	assert.True(t, s.MDNS)
	assert.Equal(t, 800, s.Client.Width)
	assert.Equal(t, 720, s.Client.Height, "untouched default")
	assert.Equal(t, "cbor", s.Client.Codec)
	assert.Equal(t, 2*time.Second, s.Client.SyncTimeout)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9090\"\n"), 0o644))

	t.Setenv("SKETCHROOM_ADDR", ":7070")
	t.Setenv("SKETCHROOM_SEND_BUFFER", "32")
	t.Setenv("SKETCHROOM_SYNC_TIMEOUT", "750ms")
	t.Setenv("ENV", "prod")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", s.Addr)
	assert.Equal(t, 32, s.SendBuffer)
	assert.Equal(t, 750*time.Millisecond, s.Client.SyncTimeout)
	assert.Equal(t, "prod", s.Env)
}

func TestDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SKETCHROOM_MDNS_NAME=studio\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SKETCHROOM_MDNS_NAME") })

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "studio", s.MDNSName)
}

func TestLoadErrors(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("addr: [unclosed\n"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Settings){
		"no addr":       func(s *Settings) { s.Addr = "" },
		"send buffer":   func(s *Settings) { s.SendBuffer = 0 },
		"message size":  func(s *Settings) { s.MaxMessageBytes = 10 },
		"mdns name":     func(s *Settings) { s.MDNS, s.MDNSName = true, "" },
		"canvas":        func(s *Settings) { s.Client.Width = 0 },
		"sync timeout":  func(s *Settings) { s.Client.SyncTimeout = 0 },
		"unknown codec": func(s *Settings) { s.Client.Codec = "xml" },
	} {
		t.Run(name, func(t *testing.T) {
			s := Defaults()
			mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestBadEnvValuesAreIgnored(t *testing.T) {
	isolate(t)
	t.Setenv("SKETCHROOM_SEND_BUFFER", "lots")
	t.Setenv("SKETCHROOM_MDNS", "maybe")

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults().SendBuffer, s.SendBuffer)
	assert.False(t, s.MDNS)
}
