// internal/mapping/store.go
//
// Read-only host lookup over an ordered list of query strategies.
//
// Context
// -------
// Two collections can claim a host: the admin-managed `domain_mapping`
// table, and the legacy `site.custom_domain` column.  Historically the
// precedence between them was ad hoc; here it is an explicit ordered
// strategy list, so "explicit mapping wins over legacy field" is visible
// in one place and each phase is testable on its own.  The legacy phase
// runs only when the mapping phase found nothing.
//
// Both phases receive the same ordered variant list (see host.Variants)
// and return the first match in variant order.  When variants match rows
// pointing at *different* sites (typically a www/bare split) the lookup
// still resolves deterministically to the first variant's site, but the
// condition is logged and counted as a data-integrity warning.
//
// The Store owns no mutable state; it is a stateless query façade over
// the control-plane pool.

package mapping

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/siteforge-io/siteforge/internal/metrics"
)

// Store performs host→site lookups.  Safe for concurrent use.
type Store struct {
	db         *sqlx.DB
	strategies []strategy
}

// strategy is one lookup phase: nil Match means "no claim", error means
// the backing store could not answer.
type strategy func(ctx context.Context, variants []string) (*Match, error)

// NewStore wires the two phases in precedence order.
func NewStore(db *sqlx.DB) *Store {
	s := &Store{db: db}
	s.strategies = []strategy{s.byMapping, s.byLegacyField}
	return s
}

// FindByHost tries each strategy in order against the ordered variant
// list and returns the first match, (nil, nil) when no collection claims
// any variant, or an error when a query failed.
func (s *Store) FindByHost(ctx context.Context, variants []string) (*Match, error) {
	if len(variants) == 0 {
		return nil, nil
	}

	lowered := make([]string, len(variants))
	for i, v := range variants {
		lowered[i] = strings.ToLower(v)
	}

	for _, strat := range s.strategies {
		m, err := strat(ctx, lowered)
		if err != nil {
			return nil, err
		}
		if m != nil {
			return m, nil
		}
	}
	return nil, nil
}

//
// Phase 1: domain_mapping (authoritative)
//

func (s *Store) byMapping(ctx context.Context, variants []string) (*Match, error) {
	const q = `
        SELECT LOWER(dm.host) AS host, st.id AS site_id, st.subdomain
        FROM   domain_mapping dm
        JOIN   site st ON st.id = dm.site_id
        WHERE  LOWER(dm.host) IN (?)
          AND  st.suspended_at IS NULL
          AND  st.deleted_at   IS NULL`

	query, args, err := sqlx.In(q, variants)
	if err != nil {
		return nil, err
	}

	var rows []matchRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return pickFirst(rows, variants, SourceMapping), nil
}

//
// Phase 2: site.custom_domain (legacy convenience mirror)
//

func (s *Store) byLegacyField(ctx context.Context, variants []string) (*Match, error) {
	const q = `
        SELECT LOWER(custom_domain) AS host, id AS site_id, subdomain
        FROM   site
        WHERE  LOWER(custom_domain) IN (?)
          AND  suspended_at IS NULL
          AND  deleted_at   IS NULL`

	query, args, err := sqlx.In(q, variants)
	if err != nil {
		return nil, err
	}

	var rows []matchRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return pickFirst(rows, variants, SourceLegacy), nil
}

//
// shared row handling
//

type matchRow struct {
	Host      string `db:"host"`
	SiteID    uint64 `db:"site_id"`
	Subdomain string `db:"subdomain"`
}

// pickFirst returns the row whose stored host matches the earliest
// variant.  When the matched rows disagree on the site, the winner is
// still the first variant's row, but the collision is surfaced to
// operators (log + counter) instead of being silently swallowed.
func pickFirst(rows []matchRow, variants []string, src Source) *Match {
	if len(rows) == 0 {
		return nil
	}

	byHost := make(map[string]matchRow, len(rows))
	distinct := make(map[uint64]struct{}, 2)
	for _, r := range rows {
		if _, dup := byHost[r.Host]; !dup {
			byHost[r.Host] = r
		}
		distinct[r.SiteID] = struct{}{}
	}

	if len(distinct) > 1 {
		metrics.AmbiguousMappingTotal.Inc()
		zap.L().Warn("ambiguous host mapping: variants claim different sites",
			zap.String("source", string(src)),
			zap.Int("sites", len(distinct)),
			zap.Strings("variants", variants))
	}

	for _, v := range variants {
		if r, ok := byHost[v]; ok {
			return &Match{
				SiteID:    r.SiteID,
				Subdomain: r.Subdomain,
				Host:      r.Host,
				Source:    src,
			}
		}
	}
	return nil
}
