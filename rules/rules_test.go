package rules_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soarmock/soarmock/rules"
	"github.com/soarmock/soarmock/vaulttest"
)

const (
	sampleContents = "vault sample attachment\n"
	sampleVaultID  = "645e9c5d1d84fc2123cb719d7f0e4640"
)

func TestVaultAdd(t *testing.T) {
	vaulttest.UseDefault(t)
	src := vaulttest.WriteFile(t, "", "sample.txt", sampleContents)

	res := rules.VaultAdd(context.Background(), 123, src, rules.AddOptions{
		FileName: "test_name",
		Metadata: map[string]any{},
	})

	require.Equal(t, rules.AddResult{Success: true, Message: "Success", VaultID: sampleVaultID}, res)
}

func TestVaultAddDefaults(t *testing.T) {
	s := vaulttest.UseDefault(t)
	src := vaulttest.WriteFile(t, "", "defaults.txt", "defaults")

	res := rules.VaultAdd(context.Background(), map[string]any{"id": 1}, src, rules.AddOptions{})
	require.True(t, res.Success)

	rec, err := s.Info(context.Background(), res.VaultID)
	require.NoError(t, err)
	require.Equal(t, "defaults.txt", rec.FileName)
	require.Equal(t, map[string]any{}, rec.Metadata)
	require.Equal(t, filepath.Join(s.Root(), "1", "defaults.txt"), rec.Path)
}

func TestVaultAddFailure(t *testing.T) {
	vaulttest.UseDefault(t)

	res := rules.VaultAdd(context.Background(), 1, filepath.Join(t.TempDir(), "missing.txt"), rules.AddOptions{})
	require.False(t, res.Success)
	require.NotEmpty(t, res.Message)
	require.Empty(t, res.VaultID)
}

func TestVaultInfo(t *testing.T) {
	vaulttest.UseDefault(t)
	ctx := context.Background()
	src := vaulttest.WriteFile(t, "", "sample.txt", sampleContents)

	added := rules.VaultAdd(ctx, 123, src, rules.AddOptions{FileName: "test_name"})
	require.True(t, added.Success)

	res := rules.VaultInfo(ctx, added.VaultID, rules.InfoOptions{})
	require.True(t, res.Success)
	require.Equal(t, "successfully retrieved file from vault", res.Message)
	require.Len(t, res.Records, 1)
	require.Equal(t, "sample.txt", res.Records[0].FileName)
	require.Equal(t, sampleVaultID, res.Records[0].VaultID)

	require.NotNil(t, res.Record)
	require.Equal(t, res.Records[0], res.Record)
	require.Equal(t, "123", res.Record.Container.String())
}

func TestVaultInfoJSON(t *testing.T) {
	vaulttest.UseDefault(t)
	ctx := context.Background()
	src := vaulttest.WriteFile(t, "", "sample.txt", sampleContents)
	require.True(t, rules.VaultAdd(ctx, 1, src, rules.AddOptions{}).Success)

	hit, err := json.Marshal(rules.VaultInfo(ctx, sampleVaultID, rules.InfoOptions{}))
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(hit, &fields))
	require.Equal(t, sampleVaultID, fields["record"].(map[string]any)["vault_id"])
	require.Len(t, fields["data"], 1)

	miss, err := json.Marshal(rules.VaultInfo(ctx, "00000000000000000000000000000000", rules.InfoOptions{}))
	require.NoError(t, err)
	fields = nil
	require.NoError(t, json.Unmarshal(miss, &fields))
	require.NotContains(t, fields, "record")
	require.Equal(t, []any{}, fields["data"])
}

func TestVaultInfoMalformedID(t *testing.T) {
	vaulttest.UseDefault(t)

	res := rules.VaultInfo(context.Background(), "not-a-vault-id", rules.InfoOptions{})
	require.False(t, res.Success)
	require.Equal(t, "file not found in vault", res.Message)
	require.Nil(t, res.Record)
	require.Empty(t, res.Records)
}

func TestSetLoggerReturnsPrevious(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	vaulttest.UseDefault(t)
	prev := rules.SetLogger(logger)
	t.Cleanup(func() { rules.SetLogger(prev) })
	require.NotNil(t, prev)

	require.Same(t, logger, rules.SetLogger(logger))
	rules.VaultInfo(context.Background(), sampleVaultID, rules.InfoOptions{Trace: true})
	require.Contains(t, buf.String(), "vault_info")
}

func TestVaultInfoNotFound(t *testing.T) {
	vaulttest.UseDefault(t)

	// An empty vault answers with a miss rather than an uninitialized error.
	res := rules.VaultInfo(context.Background(), sampleVaultID, rules.InfoOptions{})
	require.False(t, res.Success)
	require.Equal(t, "file not found in vault", res.Message)
	require.Empty(t, res.Records)
	require.NotNil(t, res.Records)
}

func TestVaultDelete(t *testing.T) {
	vaulttest.UseDefault(t)
	ctx := context.Background()
	src := vaulttest.WriteFile(t, "", "sample.txt", sampleContents)

	added := rules.VaultAdd(ctx, 123, src, rules.AddOptions{FileName: "test_name"})
	require.True(t, added.Success)
	keep := rules.VaultAdd(ctx, 123, vaulttest.WriteFile(t, "", "keep.txt", "keep"), rules.AddOptions{})
	require.True(t, keep.Success)

	res := rules.VaultDelete(ctx, added.VaultID, rules.DeleteOptions{
		FileName:    "test_name",
		ContainerID: 123,
		RemoveAll:   true,
		Trace:       true,
	})
	require.True(t, res.Success)
	require.Equal(t, "deleted from vault", res.Message)
	require.Len(t, res.DeletedFiles, 1)
	require.Equal(t, added.VaultID, res.DeletedFiles[0].Hash)

	info := rules.VaultInfo(ctx, added.VaultID, rules.InfoOptions{})
	require.False(t, info.Success)
	require.Equal(t, "file not found in vault", info.Message)
}

func TestVaultDeleteNotFound(t *testing.T) {
	vaulttest.UseDefault(t)

	res := rules.VaultDelete(context.Background(), sampleVaultID, rules.DeleteOptions{})
	require.False(t, res.Success)
	require.Equal(t, "file not found in vault", res.Message)
	require.Empty(t, res.DeletedFiles)
}

func TestGetVaultTmpDir(t *testing.T) {
	s := vaulttest.UseDefault(t)

	dir, err := rules.GetVaultTmpDir()
	require.NoError(t, err)
	require.Equal(t, "tmpdir", filepath.Base(dir))
	require.Equal(t, s.Root(), filepath.Dir(dir))
}

func TestCreateAttachment(t *testing.T) {
	s := vaulttest.UseDefault(t)

	res := rules.CreateAttachment(context.Background(), []byte(sampleContents), 1, "sample.txt", map[string]any{})
	require.True(t, res.Success)
	require.Equal(t, sampleVaultID, res.VaultID)
	require.Equal(t, 1, s.Len())
}

func TestClosedStoreReportsFailure(t *testing.T) {
	s := vaulttest.UseDefault(t)
	require.NoError(t, s.Close())

	res := rules.VaultInfo(context.Background(), sampleVaultID, rules.InfoOptions{})
	require.False(t, res.Success)
	require.Equal(t, "vault has been destroyed", res.Message)
}

func TestDefaultLazyAndReset(t *testing.T) {
	prev := rules.SetDefault(nil)
	t.Cleanup(func() {
		_ = rules.ResetDefault()
		rules.SetDefault(prev)
	})

	api, err := rules.Default()
	require.NoError(t, err)
	again, err := rules.Default()
	require.NoError(t, err)
	require.Same(t, api, again)

	root := api.Store().Root()
	require.NoError(t, rules.ResetDefault())
	_, err = os.Stat(root)
	require.ErrorIs(t, err, os.ErrNotExist)

	fresh, err := rules.Default()
	require.NoError(t, err)
	require.NotSame(t, api, fresh)
}
