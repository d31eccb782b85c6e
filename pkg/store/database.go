package store

import (
	"net/url"
	"strings"

	"github.com/dw-outreach/outreach/backend/internal/util"
)

// DefaultSQLitePath is used when neither a PostgreSQL URL nor SQLITE_PATH is set.
const DefaultSQLitePath = "./instance/outreach.db"

// ServerlessSQLitePath is the writable fallback on Vercel.
const ServerlessSQLitePath = "/tmp/outreach.db"

// DatabaseConfig selects the backend. A non-empty PostgresURL wins over
// SQLitePath.
type DatabaseConfig struct {
	PostgresURL string
	SQLitePath  string
}

// UsesPostgres reports whether the PostgreSQL backend is selected.
func (c DatabaseConfig) UsesPostgres() bool {
	return c.PostgresURL != ""
}

// DatabaseConfigFromEnv reads the first configured PostgreSQL URL among
// DATABASE_URL, POSTGRES_URL, POSTGRES_PRISMA_URL and SUPABASE_DB_URL. Without
// one the SQLite path comes from SQLITE_PATH.
func DatabaseConfigFromEnv() DatabaseConfig {
	raw := util.GetEnvFirst("DATABASE_URL", "POSTGRES_URL", "POSTGRES_PRISMA_URL", "SUPABASE_DB_URL")
	if raw != "" {
		return DatabaseConfig{PostgresURL: NormalizePostgresURL(raw)}
	}

	path := util.GetEnv("SQLITE_PATH")
	if path == "" {
		path = DefaultSQLitePath
		if util.GetEnv("VERCEL") == "1" {
			path = ServerlessSQLitePath
		}
	}
	return DatabaseConfig{SQLitePath: path}
}

// NormalizePostgresURL rewrites the postgres:// scheme to postgresql:// and
// requires TLS for Vercel and Neon hosts unless an sslmode is already set.
func NormalizePostgresURL(raw string) string {
	if rest, ok := strings.CutPrefix(raw, "postgres://"); ok {
		raw = "postgresql://" + rest
	}

	lower := strings.ToLower(raw)
	if !strings.Contains(lower, "vercel") && !strings.Contains(lower, "neon") {
		return raw
	}
	query := ""
	if _, q, ok := strings.Cut(raw, "?"); ok {
		query = q
	}
	values, err := url.ParseQuery(query)
	if err == nil && values.Has("sslmode") {
		return raw
	}
	if query != "" {
		return raw + "&sslmode=require"
	}
	if strings.HasSuffix(raw, "?") {
		return raw + "sslmode=require"
	}
	return raw + "?sslmode=require"
}
