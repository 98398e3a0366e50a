package mapping

import "time"

// Record mirrors one row in the `domain_mapping` table: an explicit,
// admin-created binding of a literal hostname to a site.  Hosts are
// stored normalized (see internal/host), but the lookup path still
// matches case-insensitively to tolerate hand-edited rows.
type Record struct {
	ID        uint64    `db:"id"         json:"id"`
	Host      string    `db:"host"       json:"host"`
	SiteID    uint64    `db:"site_id"    json:"site_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Source identifies which lookup strategy produced a Match.
type Source string

const (
	// SourceMapping means the authoritative domain_mapping table matched.
	SourceMapping Source = "mapping"
	// SourceLegacy means the legacy site.custom_domain column matched.
	SourceLegacy Source = "legacy"
)

// Match is the result of a successful host lookup: enough to route a
// request (subdomain) and to key diagnostics (site ID, matched host).
type Match struct {
	SiteID    uint64
	Subdomain string
	Host      string // the stored value that matched, lower-cased
	Source    Source
}
