package store

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dw-outreach/outreach/backend/pkg/accessmap"
)

func TestNormalizePostgresURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "scheme rewritten",
			in:   "postgres://u:p@localhost:5432/db",
			want: "postgresql://u:p@localhost:5432/db",
		},
		{
			name: "neon gets sslmode",
			in:   "postgres://u:p@ep-1.neon.tech/db",
			want: "postgresql://u:p@ep-1.neon.tech/db?sslmode=require",
		},
		{
			name: "vercel with query appends",
			in:   "postgresql://u:p@db.vercel-storage.com/db?connect_timeout=5",
			want: "postgresql://u:p@db.vercel-storage.com/db?connect_timeout=5&sslmode=require",
		},
		{
			name: "existing sslmode kept",
			in:   "postgresql://u:p@ep-1.neon.tech/db?sslmode=disable",
			want: "postgresql://u:p@ep-1.neon.tech/db?sslmode=disable",
		},
		{
			name: "other hosts untouched",
			in:   "postgresql://u:p@db.supabase.co/postgres",
			want: "postgresql://u:p@db.supabase.co/postgres",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizePostgresURL(tc.in); got != tc.want {
				t.Fatalf("NormalizePostgresURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDatabaseConfigFromEnv(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "POSTGRES_URL", "POSTGRES_PRISMA_URL", "SUPABASE_DB_URL", "SQLITE_PATH", "VERCEL"} {
		t.Setenv(key, "")
	}

	cfg := DatabaseConfigFromEnv()
	if cfg.UsesPostgres() || cfg.SQLitePath != DefaultSQLitePath {
		t.Fatalf("expected sqlite fallback, got %+v", cfg)
	}

	t.Setenv("VERCEL", "1")
	if cfg := DatabaseConfigFromEnv(); cfg.SQLitePath != ServerlessSQLitePath {
		t.Fatalf("expected serverless path, got %+v", cfg)
	}

	t.Setenv("SQLITE_PATH", "/data/outreach.db")
	if cfg := DatabaseConfigFromEnv(); cfg.SQLitePath != "/data/outreach.db" {
		t.Fatalf("expected SQLITE_PATH, got %+v", cfg)
	}

	t.Setenv("SUPABASE_DB_URL", "postgres://u:p@db.supabase.co/postgres")
	t.Setenv("POSTGRES_URL", "postgres://u:p@primary/db")
	cfg = DatabaseConfigFromEnv()
	if cfg.PostgresURL != "postgresql://u:p@primary/db" {
		t.Fatalf("expected POSTGRES_URL to win over SUPABASE_DB_URL, got %+v", cfg)
	}
}

func TestChunkRange(t *testing.T) {
	var got [][2]int
	err := ChunkRange(5, 2, func(start, end int) error {
		got = append(got, [2]int{start, end})
		return nil
	})
	if err != nil {
		t.Fatalf("ChunkRange: %v", err)
	}
	want := [][2]int{{0, 2}, {2, 4}, {4, 5}}
	if len(got) != len(want) {
		t.Fatalf("chunks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("chunks = %v, want %v", got, want)
		}
	}
}

func TestNormalizeEdgeAndClientIDs(t *testing.T) {
	e := NormalizeEdge(accessmap.Edge{From: "1", To: "2", Clients: []string{"c1", "", "c1", "c2"}})
	if e.Strength != 1.0 {
		t.Fatalf("Strength = %v, want 1.0", e.Strength)
	}
	if !reflect.DeepEqual(e.Clients, []string{"c1", "c2"}) {
		t.Fatalf("Clients = %v", e.Clients)
	}

	raw, err := EncodeClientIDs(nil)
	if err != nil || raw != "[]" {
		t.Fatalf("EncodeClientIDs(nil) = %q, %v", raw, err)
	}
	decoded, err := DecodeClientIDs([]byte(`["1","2"]`))
	if err != nil || !reflect.DeepEqual(decoded, []string{"1", "2"}) {
		t.Fatalf("DecodeClientIDs = %v, %v", decoded, err)
	}
	if _, err := DecodeClientIDs([]byte(`{`)); err == nil {
		t.Fatal("expected error for malformed client ids")
	}
	if got := RemapClients([]string{"a", "b"}, map[string]string{"a": "10"}); !reflect.DeepEqual(got, []string{"10", "b"}) {
		t.Fatalf("RemapClients = %v", got)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "42", want: 42},
		{in: " 7 ", want: 7},
		{in: "0", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseID(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidID) {
					t.Fatalf("ParseID(%q) error = %v, want ErrInvalidID", tc.in, err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("ParseID(%q) = %d, %v", tc.in, got, err)
			}
		})
	}
}
