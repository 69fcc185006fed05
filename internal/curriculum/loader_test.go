package curriculum_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/pai-classroom/internal/curriculum"
	"github.com/p-n-ai/pai-classroom/internal/platform/errs"
)

func TestLoader_ListCurriculums(t *testing.T) {
	dir := setupTestCurriculum(t)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	list, err := loader.ListCurriculums(context.Background())
	if err != nil {
		t.Fatalf("ListCurriculums() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListCurriculums() = %d entries, want 2", len(list))
	}
	// Sorted by name, case-insensitively.
	if list[0].ID != "igcse-0580" || list[1].ID != "kssm-f1" {
		t.Errorf("ListCurriculums() order = [%s %s], want [igcse-0580 kssm-f1]", list[0].ID, list[1].ID)
	}
}

func TestLoader_TopicTree(t *testing.T) {
	dir := setupTestCurriculum(t)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	tree, err := loader.TopicTree(context.Background(), "igcse-0580")
	if err != nil {
		t.Fatalf("TopicTree() error = %v", err)
	}
	if len(tree) != 1 || tree[0].ID != "p1" {
		t.Fatalf("TopicTree() roots = %+v, want single root p1", tree)
	}
	if len(tree[0].Children) != 2 {
		t.Errorf("p1 children = %d, want 2", len(tree[0].Children))
	}
}

func TestLoader_TopicTree_NotFound(t *testing.T) {
	dir := setupTestCurriculum(t)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	_, err = loader.TopicTree(context.Background(), "NONEXISTENT")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("TopicTree(NONEXISTENT) error = %v, want ErrNotFound", err)
	}
}

func TestLoader_ListExams(t *testing.T) {
	dir := setupTestCurriculum(t)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	exams, err := loader.ListExams(context.Background(), "p1-algebra")
	if err != nil {
		t.Fatalf("ListExams() error = %v", err)
	}
	if len(exams) != 1 || exams[0].Title != "Algebra Paper 1 2023" {
		t.Errorf("ListExams(p1-algebra) = %+v, want the 2023 algebra paper", exams)
	}
}

func TestLoader_SkipsInvalidYAML(t *testing.T) {
	dir := setupTestCurriculum(t)
	os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("id: [unterminated"), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.yaml"), []byte("title: not a curriculum"), 0o644)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	list, _ := loader.ListCurriculums(context.Background())
	if len(list) != 2 {
		t.Errorf("ListCurriculums() = %d, want 2 (invalid YAML should be skipped)", len(list))
	}
}

func TestLoader_EmptyDir(t *testing.T) {
	loader, err := curriculum.NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	list, _ := loader.ListCurriculums(context.Background())
	if len(list) != 0 {
		t.Errorf("ListCurriculums() = %d, want 0 for empty dir", len(list))
	}
}

func setupTestCurriculum(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	sub := filepath.Join(dir, "cambridge")
	os.MkdirAll(sub, 0o755)

	os.WriteFile(filepath.Join(sub, "igcse-0580.yaml"), []byte(`
id: igcse-0580
name: "IGCSE Mathematics 0580"
topics:
  - id: p1
    name: "Paper 1"
    children:
      - id: p1-algebra
        name: "Algebra"
        children:
          - id: p1-algebra-linear
            name: "Linear equations"
      - id: p1-number
        name: "Number"
exams:
  - id: ex-2023-p1-alg
    title: "Algebra Paper 1 2023"
    topic_id: p1-algebra
    level: core
    paper_number: 1
`), 0o644)

	os.WriteFile(filepath.Join(dir, "kssm-f1.yml"), []byte(`
id: kssm-f1
name: "kssm Matematik Tingkatan 1"
topics:
  - id: F1-01
    name: "Variables & Algebraic Expressions"
`), 0o644)

	return dir
}
