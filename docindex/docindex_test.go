package docindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/irtaza129/datashare/tasks"
	"github.com/irtaza129/datashare/worker"
)

func newIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := OpenMemory()
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestAddAndSearch(t *testing.T) {
	idx := newIndex(t)

	docs := []Document{
		{ID: "d1", Content: "the quick brown fox"},
		{ID: "d2", Content: "jumped over the lazy dog"},
		{ID: "d3", Content: "a fox in the henhouse"},
	}
	for _, doc := range docs {
		if err := idx.Add(doc); err != nil {
			t.Fatalf("add %s: %v", doc.ID, err)
		}
	}

	hits, total, err := idx.Search("fox", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 hits, got %d", total)
	}
	found := map[string]bool{}
	for _, hit := range hits {
		found[hit.ID] = true
	}
	if !found["d1"] || !found["d3"] {
		t.Errorf("expected d1 and d3, got %v", hits)
	}
}

func TestAddRequiresID(t *testing.T) {
	idx := newIndex(t)
	if err := idx.Add(Document{Content: "no id"}); err == nil {
		t.Error("expected rejection for missing id")
	}
}

func TestDelete(t *testing.T) {
	idx := newIndex(t)
	if err := idx.Add(Document{ID: "d1", Content: "ephemeral"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := idx.Delete("d1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	count, err := idx.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty index, got %d", count)
	}
}

func TestScanBody(t *testing.T) {
	idx := newIndex(t)
	dir := t.TempDir()
	for name, content := range map[string]string{
		"a.txt": "alpha document",
		"b.txt": "beta document",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	factory := worker.NewFactory()
	Register(factory, idx)

	task := &tasks.Task{ID: "t1", Name: TaskScan,
		Properties: map[string]interface{}{"dataDir": dir}}
	work, err := factory.Build(task)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var lastRate float64
	result, err := work(context.Background(), func(rate float64) { lastRate = rate })
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	out := result.(map[string]interface{})
	if out["count"] != float64(2) {
		t.Errorf("expected count 2, got %v", out["count"])
	}
	if lastRate != 1 {
		t.Errorf("expected final progress 1, got %v", lastRate)
	}

	count, _ := idx.Count()
	if count != 2 {
		t.Errorf("expected 2 indexed documents, got %d", count)
	}
}

func TestScanBodyRequiresDataDir(t *testing.T) {
	idx := newIndex(t)
	factory := worker.NewFactory()
	Register(factory, idx)

	task := &tasks.Task{ID: "t1", Name: TaskScan}
	if _, err := factory.Build(task); err == nil {
		t.Error("expected rejection for missing dataDir")
	}
}

func TestIndexAndSearchBodies(t *testing.T) {
	idx := newIndex(t)
	factory := worker.NewFactory()
	Register(factory, idx)

	indexTask := &tasks.Task{ID: "t1", Name: TaskIndex,
		Properties: map[string]interface{}{
			"documents": []interface{}{
				map[string]interface{}{"id": "d1", "content": "needle in a haystack"},
				map[string]interface{}{"id": "d2", "content": "plain hay"},
			},
		}}
	work, err := factory.Build(indexTask)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	result, err := work(context.Background(), func(float64) {})
	if err != nil {
		t.Fatalf("run index: %v", err)
	}
	if result.(map[string]interface{})["indexed"] != float64(2) {
		t.Errorf("expected 2 indexed, got %v", result)
	}

	searchTask := &tasks.Task{ID: "t2", Name: TaskSearch,
		Properties: map[string]interface{}{"query": "needle", "limit": float64(5)}}
	work, err = factory.Build(searchTask)
	if err != nil {
		t.Fatalf("build search: %v", err)
	}
	result, err = work(context.Background(), func(float64) {})
	if err != nil {
		t.Fatalf("run search: %v", err)
	}
	out := result.(map[string]interface{})
	if out["total"] != float64(1) {
		t.Errorf("expected 1 hit, got %v", out)
	}
}
