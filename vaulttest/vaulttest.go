// Package vaulttest provides test fixtures for connectors and other code that
// uses the vault.
package vaulttest

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soarmock/soarmock/connector"
	"github.com/soarmock/soarmock/rules"
	"github.com/soarmock/soarmock/vault"
)

// New returns a store rooted under t.TempDir. It is closed when the test ends,
// whether the test passes, fails or panics.
func New(t testing.TB, opts ...vault.Option) *vault.Store {
	t.Helper()
	opts = append([]vault.Option{vault.WithRootDir(t.TempDir())}, opts...)
	s, err := vault.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing vault: %v", err)
		}
	})
	return s
}

// UseDefault installs a fresh store as the rules default for the duration of
// the test and restores the previous default afterwards. The store and the
// rules functions log to the test through Logger.
func UseDefault(t testing.TB, opts ...vault.Option) *vault.Store {
	t.Helper()
	logger := Logger(t)
	s := New(t, append([]vault.Option{vault.WithLogger(logger)}, opts...)...)
	prevLogger := rules.SetLogger(logger)
	prev := rules.SetDefault(s)
	t.Cleanup(func() {
		rules.SetDefault(prev)
		rules.SetLogger(prevLogger)
	})
	return s
}

// NewConnector returns a connector configured with config whose state lives
// under t.TempDir and whose logs go to the test. It is closed when the test ends.
func NewConnector(t testing.TB, config map[string]any, opts ...connector.Option) *connector.Connector {
	t.Helper()
	opts = append([]connector.Option{
		connector.WithConfig(config),
		connector.WithLogger(Logger(t)),
		connector.WithStateDir(t.TempDir()),
	}, opts...)
	c, err := connector.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Errorf("closing connector: %v", err)
		}
	})
	return c
}

// Logger returns a debug-level logger that writes through t.Log, so output
// only shows for failing tests or under -v.
func Logger(t testing.TB) *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

// WriteFile writes contents to dir/name and returns the path. An empty dir
// means a fresh t.TempDir.
func WriteFile(t testing.TB, dir, name, contents string) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}
