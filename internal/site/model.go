package site

import (
	"database/sql"
	"time"
)

// Record mirrors one row in the persistent `site` table.  The operational
// state is captured by two nullable timestamps:
//
//   - SuspendedAt – site is temporarily disabled (e.g., billing).
//   - DeletedAt   – site is permanently removed.
//
// Either timestamp being non-NULL prevents the site from resolving.
//
// CustomDomain is the legacy single-custom-domain column: free-form text
// entered by customers before the domain_mapping table existed.  It is
// consulted only when no explicit mapping matches, and may still contain
// a scheme prefix from old data.
type Record struct {
	ID           uint64         `db:"id"`
	Subdomain    string         `db:"subdomain"`
	Name         string         `db:"name"`
	CustomDomain sql.NullString `db:"custom_domain"`
	SuspendedAt  *time.Time     `db:"suspended_at"`
	DeletedAt    *time.Time     `db:"deleted_at"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}
