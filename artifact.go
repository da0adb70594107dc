package soarmock

import "time"

// Severity ranks an artifact.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Artifact is a piece of evidence a connector saves into a container.
// Optional platform fields are omitted from JSON when unset.
type Artifact struct {
	ID                   *int           `json:"id"`
	Name                 string         `json:"name"`
	Label                string         `json:"label"`
	CreateTime           time.Time      `json:"create_time"`
	StartTime            time.Time      `json:"start_time"`
	EndTime              *time.Time     `json:"end_time"`
	Severity             Severity       `json:"severity"`
	Type                 string         `json:"type,omitempty"`
	KillChain            string         `json:"kill_chain,omitempty"`
	Hash                 string         `json:"hash"`
	CEF                  map[string]any `json:"cef"`
	Container            int            `json:"container"`
	Tags                 []string       `json:"tags,omitempty"`
	Data                 map[string]any `json:"data"`
	SourceDataIdentifier *string        `json:"source_data_identifier"`
	Version              int            `json:"version,omitempty"`
}
