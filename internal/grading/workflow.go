// Package grading enforces the per-attempt grading lifecycle: marks, remarks
// and evaluated documents may be written while grading is in progress, and
// finalizing locks the attempt for good.
package grading

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/p-n-ai/pai-classroom/internal/attempt"
	"github.com/p-n-ai/pai-classroom/internal/platform/errs"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// GradeInput is a teacher's edit to one question, as typed into the form.
// An empty Mark clears the mark.
type GradeInput struct {
	QuestionID string `validate:"required"`
	Mark       string `validate:"omitempty,numeric"`
	Remarks    string `validate:"max=4000"`
}

// Parse validates the input and returns the mark (nil when absent).
func (in GradeInput) Parse() (*float64, error) {
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]errs.FieldError, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, errs.FieldError{Field: fe.Field(), Error: "failed " + fe.Tag()})
			}
			return nil, errs.NewValidationError(fields...)
		}
		return nil, fmt.Errorf("validate grade: %w", err)
	}
	if in.Mark == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(in.Mark, 64)
	if err != nil {
		return nil, errs.NewValidationError(errs.FieldError{Field: "Mark", Error: "not a number"})
	}
	return &v, nil
}

// Config holds dependencies for a Workflow.
type Config struct {
	Service attempt.Service
	Events  EventLogger // optional
	Actor   string      // recorded on audit events
}

// Workflow is the grading state machine of one attempt. The local copy of the
// attempt is only ever replaced by a full re-fetch from the service.
type Workflow struct {
	svc       attempt.Service
	events    EventLogger
	actor     string
	attemptID string

	mu     sync.RWMutex
	detail attempt.Detail
}

// Load fetches the attempt and returns its workflow.
func Load(ctx context.Context, cfg Config, attemptID string) (*Workflow, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("grading: service is nil")
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	w := &Workflow{
		svc:       cfg.Service,
		events:    events,
		actor:     cfg.Actor,
		attemptID: attemptID,
	}
	if err := w.Refresh(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// Refresh replaces the local copy with the service's current state.
func (w *Workflow) Refresh(ctx context.Context) error {
	d, err := w.svc.GetAttemptDetail(ctx, w.attemptID)
	if err != nil {
		return fmt.Errorf("fetch attempt %s: %w", w.attemptID, err)
	}
	if d.State == "" {
		d.State = attempt.StateInProgress
	}

	w.mu.Lock()
	w.detail = d
	w.mu.Unlock()
	return nil
}

// AttemptID returns the attempt this workflow grades.
func (w *Workflow) AttemptID() string {
	return w.attemptID
}

// State returns the current grading state.
func (w *Workflow) State() attempt.GradingState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.detail.State
}

// Locked reports whether writes are refused.
func (w *Workflow) Locked() bool {
	return w.State() == attempt.StateFinalized
}

// Detail returns the last fetched attempt state.
func (w *Workflow) Detail() attempt.Detail {
	w.mu.RLock()
	defer w.mu.RUnlock()
	d := w.detail
	d.Responses = append([]attempt.Response{}, w.detail.Responses...)
	return d
}

// Total sums the awarded teacher marks and the advisory maximums.
func (w *Workflow) Total() (awarded, possible float64) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, r := range w.detail.Responses {
		if r.TeacherMark != nil {
			awarded += *r.TeacherMark
		}
		possible += r.MaxMarks
	}
	return awarded, possible
}

// SetGrade writes the mark and remarks for one question, then re-fetches.
func (w *Workflow) SetGrade(ctx context.Context, in GradeInput) error {
	if w.Locked() {
		return fmt.Errorf("set grade on %s: %w", w.attemptID, errs.ErrLocked)
	}

	mark, err := in.Parse()
	if err != nil {
		return err
	}
	resp, ok := w.response(in.QuestionID)
	if !ok {
		return errs.NewValidationError(errs.FieldError{Field: "QuestionID", Error: "not part of this attempt"})
	}
	if mark != nil && resp.MaxMarks > 0 && *mark > resp.MaxMarks {
		slog.Warn("mark exceeds question maximum",
			"attempt_id", w.attemptID,
			"question_id", in.QuestionID,
			"mark", *mark,
			"max_marks", resp.MaxMarks,
		)
	}

	if err := w.svc.SetResponseGrade(ctx, resp.ID, mark, in.Remarks); err != nil {
		return w.writeFailed(ctx, "set grade", err)
	}

	data := map[string]any{"question_id": in.QuestionID, "response_id": resp.ID}
	if mark != nil {
		data["mark"] = *mark
	}
	w.logEvent(EventGradeSet, data)
	return w.Refresh(ctx)
}

// UploadEvaluatedDocument stores the marked-up document, then re-fetches.
func (w *Workflow) UploadEvaluatedDocument(ctx context.Context, filename string, r io.Reader) error {
	if w.Locked() {
		return fmt.Errorf("upload document for %s: %w", w.attemptID, errs.ErrLocked)
	}
	if filename == "" {
		return errs.NewValidationError(errs.FieldError{Field: "filename", Error: "required"})
	}

	if err := w.svc.UploadEvaluatedDocument(ctx, w.attemptID, filename, r); err != nil {
		return w.writeFailed(ctx, "upload document", err)
	}

	w.logEvent(EventDocumentUploaded, map[string]any{"filename": filename})
	return w.Refresh(ctx)
}

// Finalize locks the attempt. Finalizing an already finalized attempt is
// acknowledged with AlreadyFinalized set and no error.
func (w *Workflow) Finalize(ctx context.Context) (attempt.FinalizeAck, error) {
	if w.Locked() {
		ack := attempt.FinalizeAck{AttemptID: w.attemptID, AlreadyFinalized: true}
		if d := w.Detail(); d.FinalizedAt != nil {
			ack.FinalizedAt = *d.FinalizedAt
		}
		return ack, nil
	}

	ack, err := w.svc.FinalizeGrading(ctx, w.attemptID)
	if err != nil {
		return attempt.FinalizeAck{}, fmt.Errorf("finalize %s: %w", w.attemptID, err)
	}
	if !ack.AlreadyFinalized {
		w.logEvent(EventGradingFinalized, nil)
	}
	if err := w.Refresh(ctx); err != nil {
		return ack, err
	}
	return ack, nil
}

func (w *Workflow) response(questionID string) (attempt.Response, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, r := range w.detail.Responses {
		if r.QuestionID == questionID {
			return r, true
		}
	}
	return attempt.Response{}, false
}

// writeFailed handles a rejected write. When the service reports the attempt
// as locked, another session finalized it; re-fetch so the local state agrees.
func (w *Workflow) writeFailed(ctx context.Context, op string, err error) error {
	if errors.Is(err, errs.ErrLocked) {
		if rerr := w.Refresh(ctx); rerr != nil {
			slog.Warn("refresh after locked write failed", "attempt_id", w.attemptID, "error", rerr)
		}
	}
	return fmt.Errorf("%s on %s: %w", op, w.attemptID, err)
}

func (w *Workflow) logEvent(eventType string, data map[string]any) {
	if err := w.events.LogEvent(Event{
		AttemptID: w.attemptID,
		Actor:     w.actor,
		EventType: eventType,
		Data:      data,
	}); err != nil {
		slog.Warn("failed to log grading event", "type", eventType, "attempt_id", w.attemptID, "error", err)
	}
}
