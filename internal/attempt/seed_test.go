package attempt_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/pai-classroom/internal/attempt"
)

const seedYAML = `attempts:
  - id: att-1
    exam_id: ex1
    exam_title: Algebra P1
    topic_id: alg
    level: core
    paper_number: 1
    student_id: s1
    started_at: 2024-01-01T09:00:00Z
    finished_at: 2024-01-01T10:00:00Z
    responses:
      - id: r1
        question_id: q1
        max_marks: 4
        teacher_mark: 3
        remarks: show working
      - question_id: q2
        max_marks: 6
  - id: att-2
    exam_title: Geometry P2
    topic_id: geo
    username: badrul
    state: finalized
`

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "attempts.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestMemoryStore_SeedFromFile(t *testing.T) {
	store := attempt.NewMemoryStore(nil)
	ctx := context.Background()

	n, err := store.SeedFromFile(writeSeed(t, seedYAML))
	if err != nil {
		t.Fatalf("SeedFromFile() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("SeedFromFile() = %d, want 2", n)
	}

	d, err := store.GetAttemptDetail(ctx, "att-1")
	if err != nil {
		t.Fatalf("GetAttemptDetail(att-1) error = %v", err)
	}
	if d.State != attempt.StateInProgress || d.Attempt.PaperNumber != 1 || !d.Attempt.Completed() {
		t.Errorf("att-1 = %+v", d)
	}
	if len(d.Responses) != 2 || d.Responses[1].ID == "" {
		t.Fatalf("responses = %+v, want 2 with generated ids", d.Responses)
	}
	if m := d.Responses[0].TeacherMark; m == nil || *m != 3 || d.Responses[0].Remarks != "show working" {
		t.Errorf("r1 = %+v", d.Responses[0])
	}

	final, _ := store.GetAttemptDetail(ctx, "att-2")
	if !final.Locked() || final.FinalizedAt == nil {
		t.Errorf("att-2 = %+v, want finalized with timestamp", final)
	}
	ack, err := store.FinalizeGrading(ctx, "att-2")
	if err != nil || !ack.AlreadyFinalized {
		t.Errorf("FinalizeGrading(att-2) = %+v, %v; want AlreadyFinalized", ack, err)
	}
}

func TestMemoryStore_SeedFromFileErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed", body: "attempts: [\n"},
		{name: "unknown state", body: "attempts:\n  - id: a\n    state: archived\n"},
		{name: "duplicate id", body: "attempts:\n  - id: a\n  - id: a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := attempt.NewMemoryStore(nil)
			if _, err := store.SeedFromFile(writeSeed(t, tt.body)); err == nil {
				t.Error("SeedFromFile() error = nil, want error")
			}
		})
	}

	if _, err := attempt.NewMemoryStore(nil).SeedFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("SeedFromFile(missing) error = nil, want error")
	}
}
