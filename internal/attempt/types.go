// Package attempt defines the Attempt Service: attempt records, grading
// detail and the writes that grade an attempt, with in-memory and PostgreSQL
// backed implementations.
package attempt

import (
	"context"
	"io"
	"time"
)

// GradingState is the grading lifecycle state of one attempt.
type GradingState string

const (
	StateInProgress GradingState = "in_progress"
	StateFinalized  GradingState = "finalized"
)

// Record is a flat attempt record as listed by the Attempt Service.
type Record struct {
	ID          string     `json:"id"`
	ExamID      string     `json:"exam_id"`
	ExamTitle   string     `json:"exam_title"`
	TopicID     string     `json:"topic_id,omitempty"`
	Level       string     `json:"level,omitempty"`
	PaperNumber int        `json:"paper_number,omitempty"`
	StudentID   string     `json:"student_id,omitempty"`
	Username    string     `json:"username,omitempty"`
	Email       string     `json:"email,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// Completed reports whether the student finished the attempt.
func (r Record) Completed() bool {
	return r.FinishedAt != nil
}

// Filters scopes ListAttempts. Zero values mean "no filter".
type Filters struct {
	TopicID       string `json:"topic_id,omitempty"`
	CompletedOnly bool   `json:"completed_only,omitempty"`
	Level         string `json:"level,omitempty"`
	PaperNumber   int    `json:"paper_number,omitempty"`
}

// Match reports whether r passes every active filter.
func (f Filters) Match(r Record) bool {
	if f.TopicID != "" && r.TopicID != f.TopicID {
		return false
	}
	if f.CompletedOnly && !r.Completed() {
		return false
	}
	if f.Level != "" && r.Level != f.Level {
		return false
	}
	if f.PaperNumber != 0 && r.PaperNumber != f.PaperNumber {
		return false
	}
	return true
}

// Response is one graded question response inside an attempt.
type Response struct {
	ID          string   `json:"id"`
	QuestionID  string   `json:"question_id"`
	Answer      string   `json:"answer,omitempty"`
	MaxMarks    float64  `json:"max_marks,omitempty"` // advisory
	TeacherMark *float64 `json:"teacher_mark"`
	Remarks     string   `json:"remarks"`
}

// Detail is an attempt together with its responses and grading state.
type Detail struct {
	Attempt           Record       `json:"attempt"`
	State             GradingState `json:"state"`
	Responses         []Response   `json:"responses"`
	EvaluatedDocument string       `json:"evaluated_document,omitempty"`
	FinalizedAt       *time.Time   `json:"finalized_at,omitempty"`
}

// Locked reports whether grading writes are refused.
func (d Detail) Locked() bool {
	return d.State == StateFinalized
}

// FinalizeAck acknowledges a finalize request.
type FinalizeAck struct {
	AttemptID        string    `json:"attempt_id"`
	AlreadyFinalized bool      `json:"already_finalized"`
	FinalizedAt      time.Time `json:"finalized_at"`
}

// Service is the Attempt Service consumed by the navigator and the grading
// workflow. Writes on a finalized attempt fail with errs.ErrLocked.
type Service interface {
	ListAttempts(ctx context.Context, filters Filters) ([]Record, error)
	GetAttemptDetail(ctx context.Context, attemptID string) (Detail, error)
	SetResponseGrade(ctx context.Context, responseID string, mark *float64, remarks string) error
	FinalizeGrading(ctx context.Context, attemptID string) (FinalizeAck, error)
	UploadEvaluatedDocument(ctx context.Context, attemptID, filename string, r io.Reader) error
}
