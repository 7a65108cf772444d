package types

import "time"

// Resolved wraps a payload with provenance so callers can tell "got what I
// asked for" from "degraded to a fallback". DataSource always names the
// adapter that actually produced the data, never the preferred one.
type Resolved[T any] struct {
	Data       T          `json:"data"`
	DataSource SourceName `json:"dataSource"`
	Cached     bool       `json:"cached"`
	Timestamp  time.Time  `json:"timestamp"`
}

// NewResolved builds the wrapper. Cached is derived: the GitHub snapshot is
// the only source whose payload is served from a longer-lived cache tier.
func NewResolved[T any](data T, source SourceName) *Resolved[T] {
	return &Resolved[T]{
		Data:       data,
		DataSource: source,
		Cached:     source == SourceGitHub,
		Timestamp:  time.Now().UTC(),
	}
}
