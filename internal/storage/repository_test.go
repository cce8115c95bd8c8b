package storage

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

// fakeRepo is a minimal Repository implementation for tests.
type fakeRepo struct {
	closed   bool
	execs    []string
	replaced [][]any
	err      error
}

func (f *fakeRepo) Replace(ctx context.Context, rows [][]any) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.replaced = append(f.replaced, rows...)
	return int64(len(rows)), nil
}
func (f *fakeRepo) Close() { f.closed = true }

func (f *fakeRepo) Exec(ctx context.Context, sql string) error {
	f.execs = append(f.execs, sql)
	return nil
}

// TestRegisterAndNew_Success verifies that registering a backend enables New()
// to return the corresponding repository.
func TestRegisterAndNew_Success(t *testing.T) {
	t.Parallel()

	kind := "fake"
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		return &fakeRepo{}, nil
	})

	repo, err := New(context.Background(), Config{Kind: kind})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if repo == nil {
		t.Fatalf("New returned nil repo")
	}

	found := false
	for _, k := range ListKinds() {
		if k == kind {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("registered kind %q not present in ListKinds: %v", kind, ListKinds())
	}
}

// TestNew_Unsupported verifies that unsupported kinds return a helpful error.
func TestNew_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "does-not-exist"})
	if err == nil {
		t.Fatalf("expected error for unsupported kind")
	}
	if got, want := err.Error(), "unsupported storage.kind=does-not-exist"; got != want {
		t.Fatalf("error = %q, want %q", got, want)
	}
}

// TestRegister_Override verifies that re-registering a kind overrides the
// previous factory.
func TestRegister_Override(t *testing.T) {
	t.Parallel()

	kind := "override"
	calls := 0

	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		calls++
		return &fakeRepo{}, nil
	})
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		calls += 10
		return &fakeRepo{}, nil
	})

	if _, err := New(context.Background(), Config{Kind: kind}); err != nil {
		t.Fatalf("New error: %v", err)
	}
	if calls != 10 {
		t.Fatalf("factory call count = %d, want 10", calls)
	}
}

// TestListKinds_Snapshot checks that ListKinds returns a sorted copy.
func TestListKinds_Snapshot(t *testing.T) {
	t.Parallel()

	Register("snap", func(ctx context.Context, cfg Config) (Repository, error) { return &fakeRepo{}, nil })

	a := ListKinds()
	if len(a) == 0 {
		t.Fatalf("ListKinds empty after registration")
	}
	for i := 1; i < len(a); i++ {
		if a[i-1] > a[i] {
			t.Fatalf("ListKinds not sorted: %v", a)
		}
	}
	a[0] = "mutated"

	b := ListKinds()
	if reflect.DeepEqual(a, b) {
		t.Fatalf("ListKinds returned same slice; want snapshot copy")
	}
}

// TestRegister_AllowsErrors shows factories can return errors that bubble up.
func TestRegister_AllowsErrors(t *testing.T) {
	t.Parallel()

	kind := "errkind"
	want := errors.New("boom")

	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		return nil, want
	})

	_, err := New(context.Background(), Config{Kind: kind})
	if !errors.Is(err, want) {
		t.Fatalf("want %v, got %v", want, err)
	}
}

func TestKeyIndexesAndValues(t *testing.T) {
	t.Parallel()

	cols := []string{"job", "output", "source", "records"}
	idx, err := KeyIndexes(cols, []string{"output", "job"})
	if err != nil {
		t.Fatalf("KeyIndexes() error = %v", err)
	}
	if want := []int{1, 0}; !reflect.DeepEqual(idx, want) {
		t.Fatalf("KeyIndexes() = %v, want %v", idx, want)
	}
	got := KeyValues([]any{"fips", "/out/20230145.bin", "/in/a.DAT", int64(3)}, idx)
	if want := []any{"/out/20230145.bin", "fips"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("KeyValues() = %v, want %v", got, want)
	}

	if _, err := KeyIndexes(cols, []string{"missing"}); err == nil || !strings.Contains(err.Error(), `"missing"`) {
		t.Fatalf("KeyIndexes(missing) error = %v", err)
	}
}

func TestCheckRows(t *testing.T) {
	t.Parallel()

	cols := []string{"a", "b"}
	if err := CheckRows(cols, [][]any{{1, 2}, {3, 4}}); err != nil {
		t.Fatalf("CheckRows(valid) = %v", err)
	}
	if err := CheckRows(cols, [][]any{{1, 2}, {3}}); err == nil || !strings.Contains(err.Error(), "row 1") {
		t.Fatalf("CheckRows(short) = %v, want row 1 error", err)
	}
}

func TestEnsureTable(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	if err := EnsureTable(context.Background(), "no-ddl-kind", repo, CatalogTable("t")); err == nil {
		t.Fatalf("EnsureTable(unregistered) = nil, want error")
	}

	RegisterDDL("ddl-kind", func(td ddlTable) (string, error) {
		return "CREATE " + td.FQN, nil
	})
	if err := EnsureTable(context.Background(), "ddl-kind", repo, CatalogTable("t")); err != nil {
		t.Fatalf("EnsureTable() error = %v", err)
	}
	if want := []string{"CREATE t"}; !reflect.DeepEqual(repo.execs, want) {
		t.Fatalf("execs = %v, want %v", repo.execs, want)
	}
}
