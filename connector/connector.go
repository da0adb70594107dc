// Package connector provides the base connector a connector under test runs
// against: asset configuration, persisted state, saved artifacts and
// containers, status and progress reporting, and action dispatch.
//
// Nothing leaves the process. Saved artifacts and containers get sequential
// ids and are kept for inspection; state is a JSON file in a private
// directory removed by Close.
package connector

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/soarmock/soarmock"
	"github.com/soarmock/soarmock/action"
)

// Defaults reported to connectors that ask about their environment.
const (
	DefaultAssetID          = "default-asset-id"
	DefaultAppID            = "default-app-id"
	DefaultContainerID      = 123
	DefaultProductInstallID = "1234"
	DefaultProductVersion   = "4.5.15370"
	DefaultBaseURL          = "https://127.0.0.1"

	firstArtifactID  = 1
	firstContainerID = 2
	stateFileName    = "statefile"
)

// Messages returned by the save calls.
const (
	MsgArtifactSaved  = "Artifact saved"
	MsgContainerSaved = "Container saved"
)

// ErrContainerNotFound is returned by ContainerInfo for unknown containers.
var ErrContainerNotFound = errors.New("container not found")

// SaveResult is the (status, message, id) triple returned for each saved
// artifact or container.
type SaveResult struct {
	Status  bool
	Message string
	ID      int
}

// Connector is the base a connector under test is driven through.
// Construct one with New and release it with Close. A Connector is not safe
// for concurrent use.
type Connector struct {
	config        map[string]any
	assetID       string
	appID         string
	containerID   int
	containerInfo map[string]map[string]any
	baseURL       string
	pollNow       bool
	logger        *slog.Logger

	parent   string
	stateDir string
	state    map[string]any

	status          bool
	message         string
	progressMessage string
	progress        []string
	summary         map[string]any

	actionResults    []*action.Result
	actionIdentifier string
	actionRunID      string
	currentParam     map[string]any
	cancelled        bool

	artifacts       []soarmock.Artifact
	containers      []map[string]any
	nextArtifactID  int
	nextContainerID int
}

// New returns a Connector with a fresh state directory.
func New(opts ...Option) (*Connector, error) {
	c := &Connector{
		config:      map[string]any{},
		assetID:     DefaultAssetID,
		appID:       DefaultAppID,
		containerID: DefaultContainerID,
		containerInfo: map[string]map[string]any{
			"1":   {"container_info_would_go_here": true},
			"2":   {"container_info_would_go_here": true},
			"123": {"container_info_would_go_here": true},
		},
		baseURL:         DefaultBaseURL,
		logger:          slog.New(slog.DiscardHandler),
		summary:         map[string]any{},
		actionRunID:     uuid.NewString(),
		nextArtifactID:  firstArtifactID,
		nextContainerID: firstContainerID,
	}
	for _, opt := range opts {
		opt(c)
	}

	dir, err := os.MkdirTemp(c.parent, "soarmock-state-")
	if err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	c.stateDir = dir

	c.logger.Debug("connector created", "asset_id", c.assetID, "state_dir", dir)
	return c, nil
}

// Close removes the state directory. It is safe to call more than once.
func (c *Connector) Close() error {
	if c.stateDir == "" {
		return nil
	}
	dir := c.stateDir
	c.stateDir = ""
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing state directory: %w", err)
	}
	return nil
}

func (c *Connector) Config() map[string]any {
	return c.config
}

func (c *Connector) AssetID() string {
	return c.assetID
}

func (c *Connector) AppID() string {
	return c.appID
}

func (c *Connector) BaseURL() string {
	return c.baseURL
}

func (c *Connector) ContainerID() int {
	return c.containerID
}

func (c *Connector) ProductInstallationID() string {
	return DefaultProductInstallID
}

func (c *Connector) ProductVersion() string {
	return DefaultProductVersion
}

func (c *Connector) IsPollNow() bool {
	return c.pollNow
}

func (c *Connector) ActionRunID() string {
	return c.actionRunID
}

// ContainerInfo returns the details of container id. Zero means the
// connector's current container.
func (c *Connector) ContainerInfo(id int) (map[string]any, error) {
	if id == 0 {
		id = c.containerID
	}
	info, ok := c.containerInfo[strconv.Itoa(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrContainerNotFound, id)
	}
	return info, nil
}

// StateDir returns the connector's private state directory.
func (c *Connector) StateDir() string {
	return c.stateDir
}

// StateFilePath returns the file LoadState and SaveState use.
func (c *Connector) StateFilePath() string {
	return filepath.Join(c.stateDir, stateFileName)
}

// LoadState reads the saved state. A missing or empty state file is an empty state.
func (c *Connector) LoadState() (map[string]any, error) {
	state := map[string]any{}
	bb, err := os.ReadFile(c.StateFilePath())
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading state: %w", err)
	case len(bb) > 0:
		if err := json.Unmarshal(bb, &state); err != nil {
			return nil, fmt.Errorf("decoding state: %w", err)
		}
	}
	c.state = state
	c.logger.Debug("state loaded", "state", state)
	return state, nil
}

// State returns the state last loaded or saved, or nil.
func (c *Connector) State() map[string]any {
	return c.state
}

// SaveState writes state to the state file. A nil state saves the current one.
func (c *Connector) SaveState(state map[string]any) error {
	if state != nil {
		c.state = state
	}
	bb, err := json.Marshal(c.state)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := os.WriteFile(c.StateFilePath(), bb, 0o600); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	c.logger.Debug("state saved", "state", c.state)
	return nil
}

// SaveArtifact keeps a and assigns it the next artifact id.
func (c *Connector) SaveArtifact(a soarmock.Artifact) SaveResult {
	id := c.nextArtifactID
	c.nextArtifactID++
	c.artifacts = append(c.artifacts, a)
	c.logger.Debug("artifact saved", "id", id, "name", a.Name)
	return SaveResult{Status: action.AppSuccess, Message: MsgArtifactSaved, ID: id}
}

// SaveArtifacts saves each artifact in order.
func (c *Connector) SaveArtifacts(artifacts []soarmock.Artifact) []SaveResult {
	results := make([]SaveResult, 0, len(artifacts))
	for _, a := range artifacts {
		results = append(results, c.SaveArtifact(a))
	}
	return results
}

// Artifacts returns every artifact saved so far.
func (c *Connector) Artifacts() []soarmock.Artifact {
	return c.artifacts
}

// SaveContainer keeps container and assigns it the next container id.
func (c *Connector) SaveContainer(container map[string]any) SaveResult {
	id := c.nextContainerID
	c.nextContainerID++
	c.containers = append(c.containers, container)
	c.logger.Debug("container saved", "id", id)
	return SaveResult{Status: action.AppSuccess, Message: MsgContainerSaved, ID: id}
}

// SaveContainers saves each container in order.
func (c *Connector) SaveContainers(containers []map[string]any) []SaveResult {
	results := make([]SaveResult, 0, len(containers))
	for _, container := range containers {
		results = append(results, c.SaveContainer(container))
	}
	return results
}

// Containers returns every container saved so far.
func (c *Connector) Containers() []map[string]any {
	return c.containers
}

// DebugPrint logs message and, if set, obj at debug level.
func (c *Connector) DebugPrint(message string, obj any) {
	c.logger.Debug(message, "object", obj)
}

// ErrorPrint logs message and, if set, obj at error level.
func (c *Connector) ErrorPrint(message string, obj any) {
	c.logger.Error(message, "object", obj)
}

// SetStatus records the connector status and returns status.
func (c *Connector) SetStatus(status bool, message string, err error) bool {
	c.status = status
	c.message = message
	c.logger.Info("status set", "status", status, "message", message, "error", err)
	return status
}

func (c *Connector) Status() bool {
	return c.status
}

func (c *Connector) StatusMessage() string {
	return c.message
}

func (c *Connector) AppendToMessage(message string) {
	c.message += message
}

// IsFail reports whether the connector status is a failure.
func (c *Connector) IsFail() bool {
	return action.IsFail(c.status)
}

// IsSuccess reports whether the connector status is a success.
func (c *Connector) IsSuccess() bool {
	return action.IsSuccess(c.status)
}

// SetStatusSaveProgress sets the status and the progress message together.
func (c *Connector) SetStatusSaveProgress(status bool, message string) bool {
	c.status = status
	c.progressMessage = message
	c.logger.Info("status set with progress", "status", status, "message", message)
	return status
}

// SendProgress replaces the progress message without recording it.
func (c *Connector) SendProgress(message string) {
	c.progressMessage = message
	c.logger.Info("progress", "message", message)
}

// SaveProgress replaces the progress message and records it.
func (c *Connector) SaveProgress(message string) {
	c.progressMessage = message
	c.progress = append(c.progress, message)
	c.logger.Info("progress saved", "message", message)
}

func (c *Connector) ProgressMessage() string {
	return c.progressMessage
}

// Progress returns every message passed to SaveProgress.
func (c *Connector) Progress() []string {
	return c.progress
}

func (c *Connector) UpdateSummary(summary map[string]any) {
	c.summary = summary
}

func (c *Connector) Summary() map[string]any {
	return c.summary
}

// AddActionResult attaches r to the connector and routes its logging through
// the connector's logger.
func (c *Connector) AddActionResult(r *action.Result) *action.Result {
	r.SetLogger(c.logger)
	c.actionResults = append(c.actionResults, r)
	return r
}

// RemoveActionResult removes every attached result equal to r.
func (c *Connector) RemoveActionResult(r *action.Result) {
	kept := c.actionResults[:0]
	for _, ar := range c.actionResults {
		if !ar.Equal(r) {
			kept = append(kept, ar)
		}
	}
	c.actionResults = kept
}

func (c *Connector) ActionResults() []*action.Result {
	return c.actionResults
}

// ActionIdentifier returns the identifier of the action being dispatched.
func (c *Connector) ActionIdentifier() string {
	return c.actionIdentifier
}

// CurrentParam returns the parameters of the action run being dispatched.
func (c *Connector) CurrentParam() map[string]any {
	if c.currentParam == nil {
		return map[string]any{}
	}
	return c.currentParam
}

// IsActionCancelled reports whether a dispatch was cancelled.
func (c *Connector) IsActionCancelled() bool {
	return c.cancelled
}
