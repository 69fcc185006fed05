package curriculum

import "context"

// Catalog is the Catalog Service: curriculum lists, topic trees and the
// exams filed under each topic.
type Catalog interface {
	ListCurriculums(ctx context.Context) ([]Curriculum, error)
	TopicTree(ctx context.Context, curriculumID string) ([]TopicNode, error)
	ListExams(ctx context.Context, topicID string) ([]Exam, error)
}

// StaticCatalog is a fixed in-memory Catalog, used by tests and demos.
type StaticCatalog struct {
	Curriculums []Curriculum
	Trees       map[string][]TopicNode
	Exams       []Exam
	Err         error
}

func (c *StaticCatalog) ListCurriculums(_ context.Context) ([]Curriculum, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return append([]Curriculum{}, c.Curriculums...), nil
}

func (c *StaticCatalog) TopicTree(_ context.Context, curriculumID string) ([]TopicNode, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	tree, ok := c.Trees[curriculumID]
	if !ok {
		return nil, notFound("curriculum", curriculumID)
	}
	return tree, nil
}

func (c *StaticCatalog) ListExams(_ context.Context, topicID string) ([]Exam, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	var out []Exam
	for _, e := range c.Exams {
		if e.TopicID == topicID {
			out = append(out, e)
		}
	}
	return out, nil
}
