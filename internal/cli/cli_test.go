package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/trujjo/neurotome/internal/domain"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-mode", "nop"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestQueryDryRunPrintsCypher(t *testing.T) {
	out, err := run(t, "query", "--dry-run", "--label", "bone", "--tier", "intermediate")
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	for _, want := range []string{"MATCH (n)", "ANY(l IN labels(n) WHERE l IN $labels)", "labels+tiers", `"intermediate"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestQueryRejectsUnknownTier(t *testing.T) {
	_, err := run(t, "query", "--dry-run", "--tier", "enormous")
	if !errors.Is(err, domain.ErrInvalidTier) {
		t.Fatalf("want ErrInvalidTier got=%v", err)
	}
}

func TestQuerySearchAndRandomDryRun(t *testing.T) {
	out, err := run(t, "query", "--dry-run", "--search", "Trigeminal")
	if err != nil {
		t.Fatalf("search dry run: %v", err)
	}
	for _, want := range []string{"CONTAINS $term", "shape search", `"trigeminal"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("search output missing %q:\n%s", want, out)
		}
	}
	out, err = run(t, "query", "--dry-run", "--random", "3")
	if err != nil || !strings.Contains(out, "rand()") {
		t.Fatalf("random dry run: err=%v\n%s", err, out)
	}
	if _, err := run(t, "query", "--dry-run", "--search", "x", "--random", "2"); err == nil {
		t.Fatalf("--search with --random should fail")
	}
	if _, err := run(t, "query", "--dry-run", "--search", " "); !errors.Is(err, domain.ErrEmptySearch) {
		t.Fatalf("blank search: want ErrEmptySearch got=%v", err)
	}
}

func TestFacetsFailsWithoutDatabase(t *testing.T) {
	t.Setenv("NEO4J_URI", "bolt://127.0.0.1:1")
	_, err := run(t, "facets")
	if !domain.IsConnectionError(err) {
		t.Fatalf("want ConnectionError got=%v", err)
	}
}
