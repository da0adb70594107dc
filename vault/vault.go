// Package vault implements the in-memory vault that stands in for the
// platform's evidence storage during connector tests.
//
// Files added to a Store are copied into a per-container directory under a
// temporary root and indexed by the MD5 of their content. Identical content
// always maps to the same vault id, whichever container it was added under,
// and a second add of the same content replaces the earlier record.
//
// A Store is owned by a single test and is not safe for concurrent use.
package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/hashicorp/go-multierror"

	"github.com/soarmock/soarmock"
	"github.com/soarmock/soarmock/backend"
	"github.com/soarmock/soarmock/telemetry"
)

type state int

const (
	stateUninitialized state = iota
	stateActive
	stateDestroyed
)

// Store is a content-addressed file registry backed by a scratch directory.
// The zero value is unusable; construct one with New and release it with Close.
type Store struct {
	root    string
	backend backend.PathBackend
	index   map[string]*Record
	state   state
	logger  *slog.Logger

	parent         string
	instrument     string
	removeOnDelete bool
}

// New creates a Store with an exclusively owned temporary root directory.
func New(opts ...Option) (*Store, error) {
	s := &Store{
		logger:         slog.New(slog.DiscardHandler),
		removeOnDelete: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	root, err := os.MkdirTemp(s.parent, "soarmock-vault-")
	if err != nil {
		return nil, fmt.Errorf("creating vault root: %w", err)
	}

	fsb, err := backend.NewFilesystem(root)
	if err != nil {
		_ = os.RemoveAll(root)
		return nil, fmt.Errorf("creating vault backend: %w", err)
	}

	s.root = fsb.Root()
	s.backend = fsb
	if s.instrument != "" {
		s.backend = backend.NewInstrumentedBackend(fsb, s.instrument)
	}
	s.index = make(map[string]*Record)
	s.state = stateActive

	s.logger.Debug("vault created", "root", s.root)
	return s, nil
}

// Root returns the temporary root directory. All record paths live under it.
func (s *Store) Root() string {
	return s.root
}

// Add copies the file at sourcePath into the container's directory, hashes
// the copy and indexes it by that hash.
//
// The stored file keeps the base name of sourcePath. fileName is recorded in
// the trace log only; connectors written against the platform pass the same
// name in both places.
func (s *Store) Add(ctx context.Context, container any, sourcePath, fileName string, metadata map[string]any) (*Record, error) {
	if err := s.checkActive(); err != nil {
		return nil, err
	}

	ref, err := soarmock.ParseContainer(container)
	if err != nil {
		return nil, err
	}

	baseName := filepath.Base(sourcePath)
	if sourcePath == "" || baseName == "." || baseName == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: no file name in %q", ErrSourceUnreadable, sourcePath)
	}

	key := ref.String() + "/" + baseName
	path, err := s.backend.Path(key)
	if err != nil {
		return nil, fmt.Errorf("resolving storage path: %w", err)
	}

	if err := s.copyIn(ctx, key, sourcePath); err != nil {
		s.recordOp(ctx, "add", err)
		return nil, err
	}

	hash, size, err := s.hashStored(ctx, key)
	if err != nil {
		err = fmt.Errorf("%w: hashing %s: %w", ErrSourceUnreadable, path, err)
		s.recordOp(ctx, "add", err)
		return nil, err
	}

	metadata = maps.Clone(metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}

	vaultID := hash.String()
	_, replaced := s.index[vaultID]
	rec := &Record{
		FileName:  baseName,
		Metadata:  metadata,
		Path:      path,
		Hash:      vaultID,
		VaultID:   vaultID,
		Container: ref,
		Size:      size,
		key:       key,
	}
	s.index[vaultID] = rec

	telemetry.RecordBlobAdd(ctx, size, replaced)
	s.recordOp(ctx, "add", nil)
	s.logger.Debug("added file to vault",
		"vault_id", vaultID,
		"container", ref,
		"file_name", baseName,
		"requested_name", fileName,
		"size", size,
		"replaced", replaced,
	)

	return rec.clone(), nil
}

func (s *Store) copyIn(ctx context.Context, key, sourcePath string) error {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrSourceUnreadable, sourcePath)
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	defer func() { _ = src.Close() }()

	if err := s.backend.Write(ctx, key, src); err != nil {
		return fmt.Errorf("%w: copying %s: %w", ErrSourceUnreadable, sourcePath, err)
	}
	return nil
}

// hashStored streams the stored copy at key back through the hasher.
func (s *Store) hashStored(ctx context.Context, key string) (soarmock.Hash, int64, error) {
	rc, err := s.backend.Read(ctx, key)
	if err != nil {
		return soarmock.Hash{}, 0, err
	}
	defer func() { _ = rc.Close() }()

	return soarmock.HashReader(rc)
}

// Info returns the record indexed under vaultID.
// Returns ErrRecordNotFound if the id is not indexed or is not an MD5 hex digest.
func (s *Store) Info(ctx context.Context, vaultID string) (*Record, error) {
	if err := s.checkActive(); err != nil {
		return nil, err
	}

	rec, err := s.lookup(vaultID)
	if err != nil {
		s.recordOp(ctx, "info", err)
		return nil, err
	}

	s.recordOp(ctx, "info", nil)
	return rec.clone(), nil
}

// Delete removes the record indexed under vaultID and returns it.
// Returns ErrRecordNotFound if the id is not indexed or is not an MD5 hex digest.
//
// Unless the store was built with WithRemoveOnDelete(false), the backing file
// is unlinked as well, provided no remaining record points at the same path.
func (s *Store) Delete(ctx context.Context, vaultID string) (*Record, error) {
	if err := s.checkActive(); err != nil {
		return nil, err
	}

	rec, err := s.lookup(vaultID)
	if err != nil {
		s.recordOp(ctx, "delete", err)
		return nil, err
	}

	if s.removeOnDelete && !s.pathShared(vaultID, rec.Path) {
		if err := s.backend.Delete(ctx, rec.key); err != nil {
			err = fmt.Errorf("removing %s: %w", rec.Path, err)
			s.recordOp(ctx, "delete", err)
			return nil, err
		}
	}

	delete(s.index, vaultID)

	s.recordOp(ctx, "delete", nil)
	s.logger.Debug("deleted file from vault", "vault_id", vaultID, "path", rec.Path)

	return rec.clone(), nil
}

func (s *Store) lookup(vaultID string) (*Record, error) {
	if _, err := soarmock.ParseHash(vaultID); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrRecordNotFound, vaultID, err)
	}
	rec, ok := s.index[vaultID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, vaultID)
	}
	return rec, nil
}

// pathShared reports whether a record other than vaultID stores its bytes at path.
// Two different contents added from files with the same base name into the
// same container share a path; the later add overwrote the earlier bytes.
func (s *Store) pathShared(vaultID, path string) bool {
	for id, rec := range s.index {
		if id != vaultID && rec.Path == path {
			return true
		}
	}
	return false
}

// ScratchDir returns the scratch directory under the root, creating it if needed.
func (s *Store) ScratchDir() (string, error) {
	if err := s.checkActive(); err != nil {
		return "", err
	}

	path := filepath.Join(s.root, soarmock.ScratchDirName)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("creating scratch directory: %w", err)
	}
	return path, nil
}

// IsEmpty reports whether no records are indexed.
func (s *Store) IsEmpty() bool {
	return len(s.index) == 0
}

// Len returns the number of indexed records.
func (s *Store) Len() int {
	return len(s.index)
}

// List returns copies of all records ordered by vault id.
func (s *Store) List() []*Record {
	ids := make([]string, 0, len(s.index))
	for id := range s.index {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	recs := make([]*Record, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, s.index[id].clone())
	}
	return recs
}

// Close destroys the store: the root directory and every record path under it
// are removed. Close is safe to call more than once; only the first call does work.
func (s *Store) Close() error {
	if s.state != stateActive {
		return nil
	}
	s.state = stateDestroyed
	s.index = map[string]*Record{}

	ctx := context.Background()
	if s.logger.Enabled(ctx, slog.LevelDebug) {
		keys, err := s.backend.List(ctx, "")
		s.logger.Debug("vault destroyed", "root", s.root, "files", keys, "list_error", err)
	}
	return removeTree(s.root)
}

func (s *Store) checkActive() error {
	switch s.state {
	case stateActive:
		return nil
	case stateDestroyed:
		return ErrStoreDestroyed
	default:
		return ErrStoreUninitialized
	}
}

func (s *Store) recordOp(ctx context.Context, op string, err error) {
	outcome := "success"
	switch {
	case errors.Is(err, ErrRecordNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	telemetry.RecordVaultOp(ctx, op, outcome, len(s.index))
}

// removeTree deletes dir recursively. Directories a connector made read-only
// are made writable first so they do not block removal.
func removeTree(dir string) error {
	var result *multierror.Error

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				result = multierror.Append(result, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Mode().Perm()&0o700 != 0o700 {
			if err := os.Chmod(path, 0o700); err != nil {
				result = multierror.Append(result, err)
			}
		}
		return nil
	})
	if walkErr != nil {
		result = multierror.Append(result, walkErr)
	}

	// Chmod failures only matter if they left something behind.
	if err := os.RemoveAll(dir); err != nil {
		result = multierror.Append(result, fmt.Errorf("removing vault root: %w", err))
		return result.ErrorOrNil()
	}
	return nil
}
