package vault

import (
	"maps"

	"github.com/soarmock/soarmock"
)

// Record describes one stored file. Hash and VaultID always hold the same
// value; connectors read one or the other depending on which API they were
// written against.
type Record struct {
	FileName  string                `json:"file_name"`
	Metadata  map[string]any        `json:"metadata"`
	Path      string                `json:"path"`
	Hash      string                `json:"hash"`
	VaultID   string                `json:"vault_id"`
	Container soarmock.ContainerRef `json:"container"`
	Size      int64                 `json:"size"`

	key string
}

// clone returns a copy so callers cannot mutate indexed records.
func (r *Record) clone() *Record {
	c := *r
	c.Metadata = maps.Clone(r.Metadata)
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	return &c
}
