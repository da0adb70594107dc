package connector

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soarmock/soarmock"
	"github.com/soarmock/soarmock/action"
)

func TestNewDefaults(t *testing.T) {
	c := newTestConnector(t)

	require.Equal(t, map[string]any{}, c.Config())
	require.Equal(t, DefaultAssetID, c.AssetID())
	require.Equal(t, DefaultAppID, c.AppID())
	require.Equal(t, DefaultBaseURL, c.BaseURL())
	require.Equal(t, DefaultContainerID, c.ContainerID())
	require.Equal(t, "1234", c.ProductInstallationID())
	require.Equal(t, "4.5.15370", c.ProductVersion())
	require.False(t, c.IsPollNow())
	require.Len(t, c.ActionRunID(), 36)
	require.Empty(t, c.CurrentParam())
}

func TestOptions(t *testing.T) {
	config := map[string]any{"api_key": "secret"}
	c := newTestConnector(t,
		WithConfig(config),
		WithAssetID("asset-7"),
		WithAppID("app-7"),
		WithContainer(77, map[string]any{"name": "case 77"}),
		WithPollNow(true),
	)

	config["api_key"] = "changed"
	require.Equal(t, "secret", c.Config()["api_key"])
	require.Equal(t, "asset-7", c.AssetID())
	require.Equal(t, "app-7", c.AppID())
	require.Equal(t, 77, c.ContainerID())
	require.True(t, c.IsPollNow())

	info, err := c.ContainerInfo(0)
	require.NoError(t, err)
	require.Equal(t, "case 77", info["name"])
}

func TestContainerInfo(t *testing.T) {
	c := newTestConnector(t)

	info, err := c.ContainerInfo(2)
	require.NoError(t, err)
	require.Equal(t, true, info["container_info_would_go_here"])

	_, err = c.ContainerInfo(999)
	require.ErrorIs(t, err, ErrContainerNotFound)
}

func TestState(t *testing.T) {
	c := newTestConnector(t)

	state, err := c.LoadState()
	require.NoError(t, err)
	require.Empty(t, state)

	require.NoError(t, c.SaveState(map[string]any{"last_run": "2024-01-01"}))
	require.Equal(t, "2024-01-01", c.State()["last_run"])

	c.State()["cursor"] = float64(10)
	require.NoError(t, c.SaveState(nil))

	state, err = c.LoadState()
	require.NoError(t, err)
	require.Equal(t, map[string]any{"last_run": "2024-01-01", "cursor": float64(10)}, state)
}

func TestLoadStateEmptyAndCorrupt(t *testing.T) {
	c := newTestConnector(t)

	require.NoError(t, os.WriteFile(c.StateFilePath(), nil, 0o600))
	state, err := c.LoadState()
	require.NoError(t, err)
	require.Empty(t, state)

	require.NoError(t, os.WriteFile(c.StateFilePath(), []byte("{not json"), 0o600))
	_, err = c.LoadState()
	require.Error(t, err)
}

func TestSaveArtifacts(t *testing.T) {
	c := newTestConnector(t)

	first := c.SaveArtifact(soarmock.Artifact{Name: "one", Severity: soarmock.SeverityLow})
	require.Equal(t, SaveResult{Status: action.AppSuccess, Message: "Artifact saved", ID: 1}, first)

	rest := c.SaveArtifacts([]soarmock.Artifact{{Name: "two"}, {Name: "three"}})
	require.Equal(t, []int{2, 3}, []int{rest[0].ID, rest[1].ID})
	require.Len(t, c.Artifacts(), 3)
	require.Equal(t, "three", c.Artifacts()[2].Name)
}

func TestSaveContainers(t *testing.T) {
	c := newTestConnector(t)

	first := c.SaveContainer(map[string]any{"name": "a"})
	require.Equal(t, SaveResult{Status: action.AppSuccess, Message: "Container saved", ID: 2}, first)

	rest := c.SaveContainers([]map[string]any{{"name": "b"}, {"name": "c"}})
	require.Equal(t, []int{3, 4}, []int{rest[0].ID, rest[1].ID})
	require.Len(t, c.Containers(), 3)
}

func TestStatusAndProgress(t *testing.T) {
	var buf bytes.Buffer
	c := newTestConnector(t, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	require.True(t, c.IsFail())
	require.True(t, c.SetStatus(action.AppSuccess, "connected", nil))
	require.True(t, c.IsSuccess())
	require.False(t, c.IsFail())
	c.AppendToMessage(" to host")
	require.Equal(t, "connected to host", c.StatusMessage())

	c.SendProgress("sending")
	require.Equal(t, "sending", c.ProgressMessage())
	c.SaveProgress("step 1")
	c.SaveProgress("step 2")
	require.Equal(t, []string{"step 1", "step 2"}, c.Progress())

	require.False(t, c.SetStatusSaveProgress(action.AppError, "failed"))
	require.True(t, c.IsFail())
	require.Equal(t, "failed", c.ProgressMessage())

	c.ErrorPrint("lookup failed", map[string]any{"code": 500})
	require.Contains(t, buf.String(), "lookup failed")
}

func TestActionResults(t *testing.T) {
	var buf bytes.Buffer
	c := newTestConnector(t, WithLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))))

	a := c.AddActionResult(action.NewResult(nil))
	a.AddData("a")
	b := c.AddActionResult(action.NewResult(nil))
	b.AddData("b")
	require.Len(t, c.ActionResults(), 2)

	// Attached results log through the connector.
	require.Contains(t, buf.String(), "action result data added")

	c.RemoveActionResult(a)
	require.Equal(t, []*action.Result{b}, c.ActionResults())

	c.UpdateSummary(map[string]any{"total": 1})
	require.Equal(t, map[string]any{"total": 1}, c.Summary())
}

func TestCloseRemovesStateDir(t *testing.T) {
	c, err := New(WithStateDir(t.TempDir()))
	require.NoError(t, err)
	dir := c.StateDir()
	require.NoError(t, c.SaveState(map[string]any{"k": "v"}))

	require.NoError(t, c.Close())
	_, err = os.Stat(dir)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.NoError(t, c.Close())
}

// Helper functions

func newTestConnector(t *testing.T, opts ...Option) *Connector {
	t.Helper()
	opts = append([]Option{WithStateDir(t.TempDir())}, opts...)
	c, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}
