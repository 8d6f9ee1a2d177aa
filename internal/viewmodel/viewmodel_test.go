package viewmodel

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/templar-app/templar/internal/backend"
	"github.com/templar-app/templar/internal/debounce"
)

func tpl(id int64, name string, created time.Time) backend.Template {
	return backend.Template{ID: id, DisplayName: name, TemplateType: backend.TypeContract, CreatedAt: created}
}

func names(templates []backend.Template) []string {
	out := make([]string, len(templates))
	for i, t := range templates {
		out[i] = t.DisplayName
	}
	return out
}

func TestFilterCaseInsensitiveSubstring(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []backend.Template{
		tpl(1, "Alpha Contract", base),
		tpl(2, "Beta Spec", base),
		tpl(3, "gamma contract", base),
	}

	got := Filter(in, "spec")
	if diff := cmp.Diff([]string{"Beta Spec"}, names(got)); diff != "" {
		t.Errorf("filter \"spec\" mismatch (-want +got):\n%s", diff)
	}

	got = Filter(in, "CONTRACT")
	if diff := cmp.Diff([]string{"Alpha Contract", "gamma contract"}, names(got)); diff != "" {
		t.Errorf("filter \"CONTRACT\" mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterBlankQueryMatchesAll(t *testing.T) {
	base := time.Now()
	in := []backend.Template{tpl(1, "One", base), tpl(2, "Two", base)}
	if got := Filter(in, "   "); len(got) != 2 {
		t.Errorf("blank query returned %d templates, want 2", len(got))
	}
}

func TestSortByDateNewestFirst(t *testing.T) {
	in := []backend.Template{
		tpl(1, "T1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		tpl(2, "T2", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
		tpl(3, "T3", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)),
	}
	got := Sort(in, SortByDate)
	if diff := cmp.Diff([]string{"T2", "T3", "T1"}, names(got)); diff != "" {
		t.Errorf("date sort mismatch (-want +got):\n%s", diff)
	}
}

func TestSortByNameIgnoresCase(t *testing.T) {
	base := time.Now()
	in := []backend.Template{
		tpl(1, "delta", base),
		tpl(2, "Alpha", base),
		tpl(3, "charlie", base),
		tpl(4, "Bravo", base),
	}
	got := Sort(in, SortByName)
	if diff := cmp.Diff([]string{"Alpha", "Bravo", "charlie", "delta"}, names(got)); diff != "" {
		t.Errorf("name sort mismatch (-want +got):\n%s", diff)
	}
}

func TestSortDoesNotMutateInput(t *testing.T) {
	in := []backend.Template{
		tpl(1, "B", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		tpl(2, "A", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)),
	}
	Sort(in, SortByName)
	Derive(in, "a", SortByDate)
	if in[0].DisplayName != "B" || in[1].DisplayName != "A" {
		t.Errorf("input mutated: %v", names(in))
	}
}

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		raw  string
		want SortKey
	}{
		{"name", SortByName},
		{" Name ", SortByName},
		{"date", SortByDate},
		{"", SortByDate},
		{"bogus", SortByDate},
	}
	for _, tt := range tests {
		if got := ParseSortKey(tt.raw); got != tt.want {
			t.Errorf("ParseSortKey(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestDeriveFiltersThenSorts(t *testing.T) {
	in := []backend.Template{
		tpl(1, "Alpha Contract", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		tpl(2, "Beta Contract", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)),
		tpl(3, "Unrelated", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
	}
	got := Derive(in, "contract", SortByDate)
	if diff := cmp.Diff([]string{"Beta Contract", "Alpha Contract"}, names(got)); diff != "" {
		t.Errorf("derive mismatch (-want +got):\n%s", diff)
	}
}

func TestDebouncedSearchFiltersOnce(t *testing.T) {
	// Rapid keystrokes within the settle window must produce exactly one
	// filter pass, on the final query.
	base := time.Now()
	in := []backend.Template{tpl(1, "Alpha", base), tpl(2, "Beta Spec", base)}

	var mu sync.Mutex
	var results [][]string
	d := debounce.New(20*time.Millisecond, func(query string) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, names(Filter(in, query)))
	})
	defer d.Stop()

	for _, q := range []string{"s", "sp", "spe", "spec"} {
		d.Update(q)
	}

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(results) != 1 {
		t.Fatalf("filter ran %d times, want 1", len(results))
	}
	if diff := cmp.Diff([]string{"Beta Spec"}, results[0]); diff != "" {
		t.Errorf("debounced filter mismatch (-want +got):\n%s", diff)
	}
}
