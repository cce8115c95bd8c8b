package mysql

import (
	"context"
	"strings"
	"testing"

	"pdsreader/internal/storage"
)

// TestMyIdent verifies that myIdent backtick-quotes identifiers and escapes
// backticks by doubling them.
func TestMyIdent(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"simple", "`simple`"},
		{"tick`name", "`tick``name`"},
		{"weird``x", "`weird````x`"},
	}
	for _, tc := range cases {
		if got := myIdent(tc.in); got != tc.want {
			t.Fatalf("myIdent(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestMyFQN(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"table", "`table`"},
		{"pds.conversions", "`pds`.`conversions`"},
	}
	for _, tc := range cases {
		if got := myFQN(tc.in); got != tc.want {
			t.Fatalf("myFQN(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildDeleteCondition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		keys []string
		want string
	}{
		{nil, ""},
		{[]string{"job"}, "`job` = ?"},
		{[]string{"job", "output"}, "`job` = ? AND `output` = ?"},
	}
	for _, tc := range cases {
		if got := buildDeleteCondition(tc.keys); got != tc.want {
			t.Fatalf("buildDeleteCondition(%v) = %q; want %q", tc.keys, got, tc.want)
		}
	}
}

func TestBuildInsert(t *testing.T) {
	t.Parallel()

	got := buildInsert("pds.conv", []string{"job", "output"}, 2)
	want := "INSERT INTO `pds`.`conv` (`job`,`output`) VALUES (?,?),(?,?)"
	if got != want {
		t.Fatalf("buildInsert = %q; want %q", got, want)
	}
}

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	got, err := BuildCreateTableSQL(storage.CatalogTable("conv"))
	if err != nil {
		t.Fatalf("BuildCreateTableSQL() error = %v", err)
	}
	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS `conv` (",
		"`job` VARCHAR(255) NOT NULL",
		"`layout` LONGTEXT NOT NULL",
		"PRIMARY KEY (`job`, `output`)",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("statement missing %q:\n%s", want, got)
		}
	}
}

func TestNewRepository_BadDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := NewRepository(context.Background(), Config{DSN: "not a dsn"}); err == nil {
		t.Fatalf("NewRepository(bad DSN) = nil error")
	}
}

func TestAdapterUsesNewRepositoryHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var gotCfg Config
	closed := false
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return &Repository{}, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{
		Kind: "mysql", DSN: "u:p@tcp(db:3306)/pds", Table: "conv",
		Columns: []string{"job", "output"}, KeyColumns: []string{"job"},
	})
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	if gotCfg.Table != "conv" || len(gotCfg.Columns) != 2 {
		t.Fatalf("hook cfg = %+v", gotCfg)
	}
	repo.Close()
	if !closed {
		t.Fatalf("Close() did not invoke closeFn")
	}
}
