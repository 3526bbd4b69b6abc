package catalog_repo

import (
	"testing"
)

// Column extraction runs over the real model, so a renamed db tag here
// breaks every query the repo builds. Pin the columns valuation depends on.
func TestItemRepoColumns(t *testing.T) {
	repo := NewItemRepo()

	want := []string{
		"id", "code", "name", "category",
		"units_per_container", "container_ml", "serving_ml", "unit_cost",
		"scheme_override", "aliases", "is_active",
		"deletion_mark", "version",
	}

	have := make(map[string]bool, len(repo.selectCols))
	for _, col := range repo.selectCols {
		have[col] = true
	}

	for _, col := range want {
		if !have[col] {
			t.Errorf("expected column %q in item select list, got %v", col, repo.selectCols)
		}
	}
}
