package action

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
)

// Result collects what one action run produced: a status and message, data
// items, a summary and the parameters it ran with.
//
// A Result is owned by the connector it was added to and is not safe for
// concurrent use.
type Result struct {
	param     map[string]any
	message   string
	status    bool
	data      []any
	debugData []string
	extraData []any
	summary   map[string]any
	logger    *slog.Logger
}

// NewResult returns a Result for an action run with param. A nil param is
// treated as empty.
func NewResult(param map[string]any) *Result {
	if param == nil {
		param = map[string]any{}
	}
	return &Result{
		param:   param,
		data:    []any{},
		summary: map[string]any{},
		logger:  slog.New(slog.DiscardHandler),
	}
}

// SetLogger sets the logger status, data and summary changes are reported to.
func (r *Result) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r.logger = logger
}

// SetStatus records the outcome of the action and returns status.
func (r *Result) SetStatus(status bool, message string, err error) bool {
	r.status = status
	r.message = message
	r.logger.Debug("action result status", "status", status, "message", message, "error", err)
	return status
}

func (r *Result) Status() bool {
	return r.status
}

func (r *Result) Message() string {
	return r.message
}

func (r *Result) AppendToMessage(s string) {
	r.message += s
}

// AddData appends one item to the result data.
func (r *Result) AddData(item any) {
	r.data = append(r.data, item)
	r.logger.Debug("action result data added", "size", len(r.data), "item", item)
}

// UpdateData appends every item in items.
func (r *Result) UpdateData(items []any) {
	r.data = append(r.data, items...)
}

func (r *Result) Data() []any {
	return r.data
}

func (r *Result) DataSize() int {
	return len(r.data)
}

// AddDebugData records the printed form of item.
func (r *Result) AddDebugData(item any) {
	r.debugData = append(r.debugData, fmt.Sprint(item))
}

func (r *Result) DebugData() []string {
	return r.debugData
}

func (r *Result) DebugDataSize() int {
	return len(r.debugData)
}

func (r *Result) AddExtraData(item any) {
	r.extraData = append(r.extraData, item)
}

func (r *Result) UpdateExtraData(items []any) {
	r.extraData = append(r.extraData, items...)
}

func (r *Result) ExtraData() []any {
	return r.extraData
}

func (r *Result) ExtraDataSize() int {
	return len(r.extraData)
}

// UpdateSummary replaces the summary and returns it.
func (r *Result) UpdateSummary(summary map[string]any) map[string]any {
	if summary == nil {
		summary = map[string]any{}
	}
	r.summary = summary
	r.logger.Debug("action result summary", "summary", summary)
	return r.summary
}

func (r *Result) Summary() map[string]any {
	return r.summary
}

func (r *Result) Param() map[string]any {
	return r.param
}

// UpdateParam merges param into the current parameters.
func (r *Result) UpdateParam(param map[string]any) {
	maps.Copy(r.param, param)
}

func (r *Result) SetParam(param map[string]any) {
	if param == nil {
		param = map[string]any{}
	}
	r.param = param
}

// Equal reports whether r and other hold the same data. Status, message and
// summary are not compared.
func (r *Result) Equal(other *Result) bool {
	if other == nil {
		return false
	}
	return reflect.DeepEqual(r.data, other.data)
}

// Dict is the serialised form of a Result as the platform reads it.
type Dict struct {
	Context   map[string]any `json:"context"`
	Data      []any          `json:"data"`
	ExtraData []any          `json:"extra_data"`
	Message   string         `json:"message"`
	Parameter map[string]any `json:"parameter"`
	Summary   map[string]any `json:"summary"`
}

// Dict returns the serialised form of r. Extra data is kept out of it.
func (r *Result) Dict() Dict {
	return Dict{
		Context:   map[string]any{},
		Data:      r.data,
		ExtraData: []any{},
		Message:   r.message,
		Parameter: r.param,
		Summary:   r.summary,
	}
}

// MarshalJSON implements json.Marshaler using Dict.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Dict())
}
