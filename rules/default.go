package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soarmock/soarmock/vault"
)

var (
	defaultAPI    *API
	defaultLogger = slog.New(slog.DiscardHandler)
)

// SetLogger sets the logger used by the default store and API and returns the
// previous one. It applies to the next default built, and to the current one's API.
func SetLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	prev := defaultLogger
	defaultLogger = logger
	if defaultAPI != nil {
		defaultAPI.logger = logger
	}
	return prev
}

// Default returns the process-wide API, building its store on first use.
func Default() (*API, error) {
	if defaultAPI != nil {
		return defaultAPI, nil
	}
	store, err := vault.New(vault.WithLogger(defaultLogger))
	if err != nil {
		return nil, fmt.Errorf("creating default vault: %w", err)
	}
	defaultAPI = NewAPI(store, defaultLogger)
	return defaultAPI, nil
}

// SetDefault installs store as the default and returns the previous default
// store, or nil. The previous store is not closed.
func SetDefault(store *vault.Store) *vault.Store {
	var prev *vault.Store
	if defaultAPI != nil {
		prev = defaultAPI.store
	}
	defaultAPI = nil
	if store != nil {
		defaultAPI = NewAPI(store, defaultLogger)
	}
	return prev
}

// ResetDefault closes the default store, if any. The next call builds a fresh one.
func ResetDefault() error {
	if defaultAPI == nil {
		return nil
	}
	store := defaultAPI.store
	defaultAPI = nil
	return store.Close()
}

// VaultAdd forwards to the default API.
func VaultAdd(ctx context.Context, container any, fileLocation string, opts AddOptions) AddResult {
	api, err := Default()
	if err != nil {
		return AddResult{Success: false, Message: err.Error()}
	}
	return api.VaultAdd(ctx, container, fileLocation, opts)
}

// VaultInfo forwards to the default API.
func VaultInfo(ctx context.Context, vaultID string, opts InfoOptions) InfoResult {
	api, err := Default()
	if err != nil {
		return InfoResult{Success: false, Message: err.Error(), Records: []*vault.Record{}}
	}
	return api.VaultInfo(ctx, vaultID, opts)
}

// VaultDelete forwards to the default API.
func VaultDelete(ctx context.Context, vaultID string, opts DeleteOptions) DeleteResult {
	api, err := Default()
	if err != nil {
		return DeleteResult{Success: false, Message: err.Error(), DeletedFiles: []*vault.Record{}}
	}
	return api.VaultDelete(ctx, vaultID, opts)
}

// GetVaultTmpDir forwards to the default API.
func GetVaultTmpDir() (string, error) {
	api, err := Default()
	if err != nil {
		return "", err
	}
	return api.GetVaultTmpDir()
}

// CreateAttachment forwards to the default API.
func CreateAttachment(ctx context.Context, contents []byte, container any, fileName string, metadata map[string]any) AddResult {
	api, err := Default()
	if err != nil {
		return AddResult{Success: false, Message: err.Error()}
	}
	return api.CreateAttachment(ctx, contents, container, fileName, metadata)
}
