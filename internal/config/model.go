// internal/config/model.go
//
// Typed configuration model for SiteForge.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `conf/.env`                          – dotenv values,
//   • `conf/global.yaml`                            – primary static file,
//   • `SITEFORGE_`-prefixed environment overrides   – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client at boot, so consumers never see Vault URIs —
// only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"` — Koanf ignores `yaml`
//     tags unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables plus the platform's own identity.
// PrimaryHost is the first-party host (e.g., "siteforge.io"); requests
// arriving on it, or on its www form, bypass tenant resolution.
// BaseURL is where tenant and landing redirects are sent.
type HTTP struct {
	ListenAddr  string `koanf:"listen_addr"  validate:"required,hostname_port"`
	BaseURL     string `koanf:"base_url"     validate:"required,url"`
	PrimaryHost string `koanf:"primary_host" validate:"required,hostname"`
}

//
// Database section
//

// Database holds the control-plane DSN template and its secret.
//
// The *template* (`GlobalDSN`) is kept in YAML so operators can tweak
// host, port, or flags without touching Vault; it must contain exactly
// one %s verb where the password is spliced in.  The *secret*
// (`GlobalPassword`) may be a literal or a `vault:<path>#<key>`
// reference resolved at boot.
type Database struct {
	GlobalDSN      string `koanf:"global_dsn"      validate:"required,contains=%s"`
	GlobalPassword string `koanf:"global_password" validate:"required"`
}

//
// Resolver section
//

// Resolver tunes the host-resolution cache and the bound it places on
// mapping-store queries.  Negative TTL is intentionally much shorter
// than positive TTL so a newly provisioned domain goes live quickly.
type Resolver struct {
	PositiveTTL      time.Duration `koanf:"positive_ttl"`
	NegativeTTL      time.Duration `koanf:"negative_ttl"`
	MaxEntries       int           `koanf:"max_entries"`
	QueryTimeout     time.Duration `koanf:"query_timeout"`
	ReservedSuffixes []string      `koanf:"reserved_suffixes"`
}

//
// GeoIP section (optional)
//

// GeoIP points at a MaxMind city database; when DBPath is empty the
// request-enrichment middleware simply skips geolocation.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime — never set in YAML or env.  The loader
// discovers `Root` (repo root or SITEFORGE_ROOT override) so later code
// can build absolute file paths.
type Paths struct {
	Root string
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Resolver Resolver `koanf:"resolver"`
	GeoIP    GeoIP    `koanf:"geoip"`
	Paths    Paths    `koanf:"-"`
}

// Resolver defaults applied when the YAML leaves a field zero.
const (
	DefaultPositiveTTL  = 5 * time.Minute
	DefaultNegativeTTL  = 30 * time.Second
	DefaultMaxEntries   = 10_000
	DefaultQueryTimeout = 2 * time.Second
)

// applyDefaults fills zero-valued resolver tunables.
func (c *Config) applyDefaults() {
	if c.Resolver.PositiveTTL <= 0 {
		c.Resolver.PositiveTTL = DefaultPositiveTTL
	}
	if c.Resolver.NegativeTTL <= 0 {
		c.Resolver.NegativeTTL = DefaultNegativeTTL
	}
	if c.Resolver.MaxEntries <= 0 {
		c.Resolver.MaxEntries = DefaultMaxEntries
	}
	if c.Resolver.QueryTimeout <= 0 {
		c.Resolver.QueryTimeout = DefaultQueryTimeout
	}
}
