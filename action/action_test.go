package action

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusHelpers(t *testing.T) {
	require.True(t, IsSuccess(AppSuccess))
	require.False(t, IsFail(AppSuccess))
	require.True(t, IsFail(AppError))
	require.False(t, IsSuccess(AppError))
}

func TestRequiredValue(t *testing.T) {
	params := map[string]any{"ip": "  10.0.0.1\n", "blank": "   ", "port": 443}

	v, err := RequiredValue(params, "ip")
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1", v)

	for _, key := range []string{"missing", "blank", "port"} {
		t.Run(key, func(t *testing.T) {
			_, err := RequiredValue(params, key)
			require.ErrorIs(t, err, ErrRequiredParam)
		})
	}
}

func TestResultStatus(t *testing.T) {
	var buf bytes.Buffer
	r := NewResult(nil)
	r.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	require.False(t, r.Status())
	require.True(t, r.SetStatus(AppSuccess, "looked up", nil))
	require.True(t, r.Status())
	r.AppendToMessage(" 2 hosts")
	require.Equal(t, "looked up 2 hosts", r.Message())

	require.False(t, r.SetStatus(AppError, "lookup failed", errors.New("timeout")))
	require.Contains(t, buf.String(), "timeout")
}

func TestResultData(t *testing.T) {
	r := NewResult(map[string]any{"ip": "10.0.0.1"})

	r.AddData(map[string]any{"hostname": "a"})
	r.UpdateData([]any{"b", "c"})
	require.Equal(t, 3, r.DataSize())
	require.Equal(t, []any{map[string]any{"hostname": "a"}, "b", "c"}, r.Data())

	r.AddDebugData(42)
	require.Equal(t, []string{"42"}, r.DebugData())
	require.Equal(t, 1, r.DebugDataSize())

	r.AddExtraData("x")
	r.UpdateExtraData([]any{"y"})
	require.Equal(t, []any{"x", "y"}, r.ExtraData())
	require.Equal(t, 2, r.ExtraDataSize())
}

func TestResultSummaryAndParam(t *testing.T) {
	r := NewResult(map[string]any{"ip": "10.0.0.1"})

	got := r.UpdateSummary(map[string]any{"total": 1})
	require.Equal(t, map[string]any{"total": 1}, got)
	require.Equal(t, got, r.Summary())
	require.Equal(t, map[string]any{}, r.UpdateSummary(nil))

	r.UpdateParam(map[string]any{"port": 22})
	require.Equal(t, map[string]any{"ip": "10.0.0.1", "port": 22}, r.Param())

	r.SetParam(nil)
	require.Empty(t, r.Param())
}

func TestResultEqualComparesData(t *testing.T) {
	a := NewResult(nil)
	b := NewResult(map[string]any{"other": true})
	a.AddData("same")
	b.AddData("same")
	b.SetStatus(AppError, "different status", nil)

	require.True(t, a.Equal(b))
	b.AddData("more")
	require.False(t, a.Equal(b))
	require.False(t, a.Equal(nil))
}

func TestResultJSON(t *testing.T) {
	r := NewResult(map[string]any{"ip": "10.0.0.1"})
	r.SetStatus(AppSuccess, "done", nil)
	r.AddData(map[string]any{"hostname": "a"})
	r.AddExtraData("kept out")
	r.UpdateSummary(map[string]any{"total": 1})

	data, err := json.Marshal(r)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"context": {},
		"data": [{"hostname": "a"}],
		"extra_data": [],
		"message": "done",
		"parameter": {"ip": "10.0.0.1"},
		"summary": {"total": 1}
	}`, string(data))
}
