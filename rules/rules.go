// Package rules exposes the vault as the playbook rules API does: free
// functions returning result values rather than errors.
//
// The package-level functions forward to a process-wide default store, built
// on first use. Tests that need isolation install their own with SetDefault or
// build an API around a private store.
package rules

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/soarmock/soarmock/vault"
)

// Result messages returned to connectors.
const (
	MsgAddSuccess    = "Success"
	MsgInfoSuccess   = "successfully retrieved file from vault"
	MsgNotFound      = "file not found in vault"
	MsgDeleteSuccess = "deleted from vault"
)

// AddOptions carries the optional vault_add parameters.
type AddOptions struct {
	// FileName defaults to the base name of the file location.
	FileName string
	// Metadata defaults to an empty mapping.
	Metadata map[string]any
	Trace    bool
}

// AddResult is the (success, message, vault id) triple of vault_add.
type AddResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	VaultID string `json:"vault_id"`
}

// InfoOptions carries the optional vault_info parameters. They are accepted
// for signature compatibility and only logged.
type InfoOptions struct {
	FileName    string
	ContainerID any
	Trace       bool
}

// InfoResult is the result of vault_info. On a hit Record is the matching
// record; on a miss it is nil. Records carries the same answer in the list
// form the platform returns: one record on a hit, empty on a miss.
type InfoResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Record  *vault.Record   `json:"record,omitempty"`
	Records []*vault.Record `json:"data"`
}

// DeleteOptions carries the remaining vault_delete parameters, logged only.
type DeleteOptions struct {
	FileName    string
	ContainerID any
	RemoveAll   bool
	Trace       bool
}

// DeleteResult mirrors the mapping returned by vault_delete.
type DeleteResult struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	DeletedFiles []*vault.Record `json:"deleted_files"`
}

// API binds the rules functions to one store.
type API struct {
	store  *vault.Store
	logger *slog.Logger
}

// NewAPI returns an API over store. A nil logger discards output.
func NewAPI(store *vault.Store, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &API{store: store, logger: logger}
}

// Store returns the store the API operates on.
func (a *API) Store() *vault.Store {
	return a.store
}

// VaultAdd adds the file at fileLocation to the vault under container.
// container may be an id or a mapping with an "id" field.
func (a *API) VaultAdd(ctx context.Context, container any, fileLocation string, opts AddOptions) AddResult {
	if opts.FileName == "" {
		opts.FileName = filepath.Base(fileLocation)
	}
	if opts.Metadata == nil {
		opts.Metadata = map[string]any{}
	}

	a.logger.Debug("vault_add",
		"container", container,
		"file_location", fileLocation,
		"file_name", opts.FileName,
		"trace", opts.Trace,
	)

	rec, err := a.store.Add(ctx, container, fileLocation, opts.FileName, opts.Metadata)
	if err != nil {
		a.logger.Warn("vault_add failed", "file_location", fileLocation, "error", err)
		return AddResult{Success: false, Message: err.Error()}
	}

	return AddResult{Success: true, Message: MsgAddSuccess, VaultID: rec.VaultID}
}

// VaultInfo looks up vaultID.
func (a *API) VaultInfo(ctx context.Context, vaultID string, opts InfoOptions) InfoResult {
	a.logger.Debug("vault_info",
		"vault_id", vaultID,
		"file_name", opts.FileName,
		"container_id", opts.ContainerID,
		"trace", opts.Trace,
	)

	rec, err := a.store.Info(ctx, vaultID)
	switch {
	case errors.Is(err, vault.ErrRecordNotFound):
		return InfoResult{Success: false, Message: MsgNotFound, Records: []*vault.Record{}}
	case err != nil:
		return InfoResult{Success: false, Message: err.Error(), Records: []*vault.Record{}}
	}

	return InfoResult{Success: true, Message: MsgInfoSuccess, Record: rec, Records: []*vault.Record{rec}}
}

// VaultDelete removes vaultID from the vault. A missing id is reported in the
// result rather than raised.
func (a *API) VaultDelete(ctx context.Context, vaultID string, opts DeleteOptions) DeleteResult {
	a.logger.Debug("vault_delete",
		"vault_id", vaultID,
		"file_name", opts.FileName,
		"container_id", opts.ContainerID,
		"remove_all", opts.RemoveAll,
		"trace", opts.Trace,
	)

	rec, err := a.store.Delete(ctx, vaultID)
	switch {
	case errors.Is(err, vault.ErrRecordNotFound):
		return DeleteResult{Success: false, Message: MsgNotFound, DeletedFiles: []*vault.Record{}}
	case err != nil:
		return DeleteResult{Success: false, Message: err.Error(), DeletedFiles: []*vault.Record{}}
	}

	return DeleteResult{Success: true, Message: MsgDeleteSuccess, DeletedFiles: []*vault.Record{rec}}
}

// GetVaultTmpDir returns the vault's scratch directory.
func (a *API) GetVaultTmpDir() (string, error) {
	return a.store.ScratchDir()
}

// CreateAttachment stores contents as fileName under container.
func (a *API) CreateAttachment(ctx context.Context, contents []byte, container any, fileName string, metadata map[string]any) AddResult {
	rec, err := vault.NewAttachments(a.store).CreateAttachment(ctx, contents, container, fileName, metadata)
	if err != nil {
		a.logger.Warn("create_attachment failed", "file_name", fileName, "error", err)
		return AddResult{Success: false, Message: err.Error()}
	}
	return AddResult{Success: true, Message: MsgAddSuccess, VaultID: rec.VaultID}
}
