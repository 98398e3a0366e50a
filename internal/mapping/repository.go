// internal/mapping/repository.go
//
// Mutation and audit helpers for the `domain_mapping` table.  These are
// the admin-facing collaborators of the resolver: every caller that
// mutates a row must invalidate the resolution cache for the affected
// host variants (the admin handlers do this).

package mapping

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// AuditRow joins a mapping with its site's short name, for the
// introspection endpoint that audits collisions without direct DB
// access.
type AuditRow struct {
	ID        uint64    `db:"id"         json:"id"`
	Host      string    `db:"host"       json:"host"`
	SiteID    uint64    `db:"site_id"    json:"site_id"`
	Subdomain string    `db:"subdomain"  json:"subdomain"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// All returns every mapping joined with its site subdomain, ordered by
// host so www/bare pairs sit next to each other in audit output.
func All(ctx context.Context, db *sqlx.DB) ([]AuditRow, error) {
	const q = `
        SELECT dm.id, dm.host, dm.site_id, st.subdomain,
               dm.created_at, dm.updated_at
        FROM   domain_mapping dm
        JOIN   site st ON st.id = dm.site_id
        ORDER  BY dm.host`
	var rows []AuditRow
	if err := db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// ByID fetches one mapping row.
func ByID(ctx context.Context, db *sqlx.DB, id uint64) (*Record, error) {
	const q = `
        SELECT id, host, site_id, created_at, updated_at
        FROM   domain_mapping
        WHERE  id = ?
        LIMIT  1`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, id); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts a mapping.  The caller normalizes the host first.
func Create(ctx context.Context, db *sqlx.DB, hostName string, siteID uint64) (uint64, error) {
	const q = `
        INSERT INTO domain_mapping (host, site_id, created_at, updated_at)
        VALUES (?, ?, NOW(), NOW())`
	res, err := db.ExecContext(ctx, q, hostName, siteID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update rewrites a mapping's host and site reference (domain ownership
// changes land here).
func Update(ctx context.Context, db *sqlx.DB, id uint64, hostName string, siteID uint64) error {
	const q = `
        UPDATE domain_mapping
        SET    host = ?, site_id = ?, updated_at = NOW()
        WHERE  id = ?`
	_, err := db.ExecContext(ctx, q, hostName, siteID, id)
	return err
}

// Delete detaches a domain.
func Delete(ctx context.Context, db *sqlx.DB, id uint64) error {
	const q = `DELETE FROM domain_mapping WHERE id = ?`
	_, err := db.ExecContext(ctx, q, id)
	return err
}
