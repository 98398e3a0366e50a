package site

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// activeFilter keeps suspended and deleted sites out of every read path.
const activeFilter = `suspended_at IS NULL AND deleted_at IS NULL`

// BySubdomain fetches a single active site row by its short name.  The
// caller supplies a context so the lookup respects request deadlines.
func BySubdomain(ctx context.Context, db *sqlx.DB, subdomain string) (*Record, error) {
	const q = `
        SELECT id, subdomain, name, custom_domain,
               suspended_at, deleted_at, created_at, updated_at
        FROM   site
        WHERE  subdomain = ?
          AND  ` + activeFilter + `
        LIMIT  1;`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, subdomain); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ByID fetches a single active site row.
func ByID(ctx context.Context, db *sqlx.DB, id uint64) (*Record, error) {
	const q = `
        SELECT id, subdomain, name, custom_domain,
               suspended_at, deleted_at, created_at, updated_at
        FROM   site
        WHERE  id = ?
          AND  ` + activeFilter + `
        LIMIT  1;`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, id); err != nil {
		return nil, err
	}
	return &rec, nil
}

// LegacyDomain is one row of the custom-domain audit view: every active
// site that still carries a non-empty legacy custom_domain value.
type LegacyDomain struct {
	SiteID       uint64 `db:"id"         json:"site_id"`
	Subdomain    string `db:"subdomain"  json:"subdomain"`
	CustomDomain string `db:"custom_domain" json:"custom_domain"`
}

// AllLegacyDomains returns every active site's legacy custom-domain
// field, for the collision-audit endpoint.  Sites with an empty value
// are skipped.
func AllLegacyDomains(ctx context.Context, db *sqlx.DB) ([]LegacyDomain, error) {
	const q = `
        SELECT id, subdomain, custom_domain
        FROM   site
        WHERE  custom_domain IS NOT NULL
          AND  custom_domain <> ''
          AND  ` + activeFilter
	var rows []LegacyDomain
	if err := db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateCustomDomain sets (or clears, with "") the legacy custom-domain
// field.  Callers must invalidate the resolution cache for both the old
// and new host variants afterwards.
func UpdateCustomDomain(ctx context.Context, db *sqlx.DB, siteID uint64, domain string) error {
	const q = `
        UPDATE site
        SET    custom_domain = NULLIF(?, ''), updated_at = NOW()
        WHERE  id = ?`
	_, err := db.ExecContext(ctx, q, domain, siteID)
	return err
}
