// internal/workers/schemes/get-scheme-details/models.go
package getschemedetails

import "scheme-matcher/internal/models"

// Input names a scheme either by catalog id or by the user's own words
// ("scheme 2", "the second one", "stand-up india").
type Input struct {
	SessionID string `json:"sessionId,omitempty"`
	SchemeID  string `json:"schemeId,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// Source says where the returned details came from.
type Source string

const (
	SourceSession Source = "session"
	SourceCache   Source = "cache"
	SourceCatalog Source = "catalog"
)

type Output struct {
	Scheme models.Scheme `json:"scheme"`
	// Position is the 1-based place in the last shown list, 0 when the
	// scheme was looked up by id.
	Position   int    `json:"position"`
	MostRecent bool   `json:"assumedMostRecent"`
	Source     Source `json:"source"`
}
