package attempt

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// seedDocument is the YAML layout of an attempt fixture file.
type seedDocument struct {
	Attempts []seedAttempt `yaml:"attempts"`
}

type seedAttempt struct {
	ID          string         `yaml:"id"`
	ExamID      string         `yaml:"exam_id"`
	ExamTitle   string         `yaml:"exam_title"`
	TopicID     string         `yaml:"topic_id"`
	Level       string         `yaml:"level"`
	PaperNumber int            `yaml:"paper_number"`
	StudentID   string         `yaml:"student_id"`
	Username    string         `yaml:"username"`
	Email       string         `yaml:"email"`
	StartedAt   *time.Time     `yaml:"started_at"`
	FinishedAt  *time.Time     `yaml:"finished_at"`
	State       GradingState   `yaml:"state"`
	FinalizedAt *time.Time     `yaml:"finalized_at"`
	Responses   []seedResponse `yaml:"responses"`
}

type seedResponse struct {
	ID          string   `yaml:"id"`
	QuestionID  string   `yaml:"question_id"`
	Answer      string   `yaml:"answer"`
	MaxMarks    float64  `yaml:"max_marks"`
	TeacherMark *float64 `yaml:"teacher_mark"`
	Remarks     string   `yaml:"remarks"`
}

// SeedFromFile adds the attempts listed in a YAML fixture file to s and
// returns how many were added.
func (s *MemoryStore) SeedFromFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var doc seedDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	for i, a := range doc.Attempts {
		switch a.State {
		case "", StateInProgress, StateFinalized:
		default:
			return i, fmt.Errorf("seed attempt %d: unknown state %q", i, a.State)
		}
		if _, err := s.AddAttempt(a.detail()); err != nil {
			return i, fmt.Errorf("seed attempt %d: %w", i, err)
		}
	}
	return len(doc.Attempts), nil
}

func (a seedAttempt) detail() Detail {
	d := Detail{
		Attempt: Record{
			ID:          a.ID,
			ExamID:      a.ExamID,
			ExamTitle:   a.ExamTitle,
			TopicID:     a.TopicID,
			Level:       a.Level,
			PaperNumber: a.PaperNumber,
			StudentID:   a.StudentID,
			Username:    a.Username,
			Email:       a.Email,
			StartedAt:   a.StartedAt,
			FinishedAt:  a.FinishedAt,
		},
		State:       a.State,
		FinalizedAt: a.FinalizedAt,
	}
	for _, r := range a.Responses {
		d.Responses = append(d.Responses, Response(r))
	}
	return d
}
