package vault

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// defaultAttachmentName is used when CreateAttachment is given no file name.
const defaultAttachmentName = "tmpfile"

// Attachments creates vault entries from in-memory content, the way the
// platform's Vault API does for connectors that build files on the fly.
type Attachments struct {
	store *Store
}

// NewAttachments returns an Attachments bound to store.
func NewAttachments(store *Store) *Attachments {
	return &Attachments{store: store}
}

// CreateAttachment writes contents to a fresh file in the scratch directory
// and adds it to the vault under container. The stored file is named after
// fileName; the scratch copy is removed once the add completes.
func (a *Attachments) CreateAttachment(ctx context.Context, contents []byte, container any, fileName string, metadata map[string]any) (*Record, error) {
	scratch, err := a.store.ScratchDir()
	if err != nil {
		return nil, err
	}

	name := attachmentName(fileName)

	// Each call gets its own directory so the source keeps the requested base name.
	dir := filepath.Join(scratch, uuid.NewString())
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating attachment directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	src := filepath.Join(dir, name)
	if err := os.WriteFile(src, contents, 0o644); err != nil {
		return nil, fmt.Errorf("writing attachment: %w", err)
	}

	return a.store.Add(ctx, container, src, fileName, metadata)
}

// attachmentName reduces fileName to a usable base name.
func attachmentName(fileName string) string {
	name := filepath.Base(strings.TrimSpace(fileName))
	switch name {
	case "", ".", "..", string(filepath.Separator):
		return defaultAttachmentName
	}
	return name
}
