package curriculum

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-classroom/internal/platform/errs"
)

// Loader loads curriculum trees from YAML files on disk and serves them as a
// Catalog. Each file describes one curriculum with its nested topics and the
// exams filed under them.
type Loader struct {
	rootDir     string
	curriculums []Curriculum
	trees       map[string][]TopicNode
	exams       map[string][]Exam // topic id -> exams
	mu          sync.RWMutex
}

// NewLoader creates a new curriculum loader and loads all content.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir: rootDir,
		trees:   make(map[string][]TopicNode),
		exams:   make(map[string][]Exam),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	collate.New(language.English, collate.IgnoreCase).Sort(curriculumsByName(l.curriculums))

	slog.Info("curriculum loaded", "curriculums", len(l.curriculums))
	return l, nil
}

func (l *Loader) ListCurriculums(_ context.Context) ([]Curriculum, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Curriculum{}, l.curriculums...), nil
}

func (l *Loader) TopicTree(_ context.Context, curriculumID string) ([]TopicNode, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tree, ok := l.trees[curriculumID]
	if !ok {
		return nil, notFound("curriculum", curriculumID)
	}
	return tree, nil
}

func (l *Loader) ListExams(_ context.Context, topicID string) ([]Exam, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Exam{}, l.exams[topicID]...), nil
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			return l.loadCurriculum(path)
		}
		return nil
	})
}

func (l *Loader) loadCurriculum(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		slog.Warn("skipping invalid curriculum YAML", "path", path, "error", err)
		return nil
	}

	if doc.ID == "" || len(doc.Topics) == 0 {
		return nil // Not a curriculum file
	}

	if _, err := NewIndex(doc.Topics); err != nil {
		slog.Warn("curriculum tree has integrity problems", "path", path, "curriculum_id", doc.ID, "error", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.trees[doc.ID]; dup {
		slog.Warn("duplicate curriculum id, keeping first", "path", path, "curriculum_id", doc.ID)
		return nil
	}
	l.curriculums = append(l.curriculums, Curriculum{ID: doc.ID, Name: doc.Name})
	l.trees[doc.ID] = doc.Topics
	for _, e := range doc.Exams {
		l.exams[e.TopicID] = append(l.exams[e.TopicID], e)
	}

	return nil
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, errs.ErrNotFound)
}

// curriculumsByName adapts a slice for collate.Collator.Sort.
type curriculumsByName []Curriculum

func (c curriculumsByName) Len() int           { return len(c) }
func (c curriculumsByName) Swap(i, j int)      { c[i], c[j] = c[j], c[i] }
func (c curriculumsByName) Bytes(i int) []byte { return []byte(c[i].Name) }
