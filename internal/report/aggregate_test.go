package report

import (
	"errors"
	"testing"
	"time"

	"github.com/p-n-ai/pai-classroom/internal/attempt"
	"github.com/p-n-ai/pai-classroom/internal/platform/errs"
)

func ts(s string) *time.Time {
	t, err := time.Parse("2006-01-02T15:04", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestAggregate_Example(t *testing.T) {
	records := []attempt.Record{
		{StudentID: "A", ExamTitle: "P1 2023", FinishedAt: ts("2024-01-01T10:00")},
		{StudentID: "A", ExamTitle: "P1 2024", FinishedAt: ts("2024-01-02T10:00")},
		{StudentID: "B", ExamTitle: "P2 2023", StartedAt: ts("2024-01-01T09:00")},
	}

	rows, err := Aggregate(records)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Aggregate() = %d rows, want 2", len(rows))
	}

	tests := []struct {
		student string
		count   int
		last    *time.Time
		title   string
	}{
		{"A", 2, ts("2024-01-02T10:00"), "P1 2024"},
		{"B", 1, ts("2024-01-01T09:00"), "P2 2023"},
	}
	for i, tt := range tests {
		r := rows[i]
		if r.StudentID != tt.student || r.AttemptCount != tt.count || !r.LastActivityAt.Equal(*tt.last) || r.LastExamTitle != tt.title {
			t.Errorf("rows[%d] = {%s %d %v %q}, want {%s %d %v %q}",
				i, r.StudentID, r.AttemptCount, r.LastActivityAt, r.LastExamTitle,
				tt.student, tt.count, tt.last, tt.title)
		}
	}
}

func TestAggregate_Empty(t *testing.T) {
	rows, err := Aggregate(nil)
	if err != nil {
		t.Fatalf("Aggregate(nil) error = %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("Aggregate(nil) = %v, want empty non-nil slice", rows)
	}
}

func TestAggregate_FinishedBeatsStarted(t *testing.T) {
	rows, _ := Aggregate([]attempt.Record{
		{StudentID: "A", ExamTitle: "late start", StartedAt: ts("2024-03-01T08:00")},
		{StudentID: "A", ExamTitle: "finished", StartedAt: ts("2024-02-01T08:00"), FinishedAt: ts("2024-03-02T08:00")},
	})
	if rows[0].LastExamTitle != "finished" {
		t.Errorf("LastExamTitle = %q, want finished (finish time is the activity time)", rows[0].LastExamTitle)
	}
}

func TestAggregate_TieGoesToLaterRecord(t *testing.T) {
	rows, _ := Aggregate([]attempt.Record{
		{StudentID: "A", ExamTitle: "first", FinishedAt: ts("2024-01-01T10:00")},
		{StudentID: "A", ExamTitle: "second", FinishedAt: ts("2024-01-01T10:00")},
	})
	if rows[0].LastExamTitle != "second" {
		t.Errorf("LastExamTitle = %q, want second", rows[0].LastExamTitle)
	}
}

func TestAggregate_MissingTimestampsSortLastStable(t *testing.T) {
	rows, _ := Aggregate([]attempt.Record{
		{StudentID: "N1", ExamTitle: "x"},
		{StudentID: "T", ExamTitle: "y", StartedAt: ts("2024-01-01T09:00")},
		{StudentID: "N2", ExamTitle: "z"},
		{StudentID: "N3", ExamTitle: "w"},
	})

	want := []string{"T", "N1", "N2", "N3"}
	for i, id := range want {
		if rows[i].StudentID != id {
			t.Errorf("rows[%d] = %s, want %s", i, rows[i].StudentID, id)
		}
	}
	if rows[1].LastActivityAt != nil {
		t.Error("row without timestamps should have nil LastActivityAt")
	}
}

func TestAggregate_TimestampedRecordBeatsMissing(t *testing.T) {
	rows, _ := Aggregate([]attempt.Record{
		{StudentID: "A", ExamTitle: "dated", StartedAt: ts("2024-01-01T09:00")},
		{StudentID: "A", ExamTitle: "undated"},
	})
	if rows[0].LastExamTitle != "dated" || rows[0].AttemptCount != 2 {
		t.Errorf("row = %+v, want 2 attempts with last exam dated", rows[0])
	}
}

func TestAggregate_IdentityFallback(t *testing.T) {
	rows, err := Aggregate([]attempt.Record{
		{Username: "Aisyah", ExamTitle: "a"},
		{Username: "aisyah", ExamTitle: "b"},
		{Email: "Bo@School.edu", ExamTitle: "c"},
		{Email: "bo@school.edu", ExamTitle: "d"},
		{ID: "att-9", ExamTitle: "e"},
		{StudentID: "S1", Username: "aisyah", ExamTitle: "f"},
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	counts := map[string]int{}
	for _, r := range rows {
		counts[r.StudentKey] = r.AttemptCount
	}
	want := map[string]int{"user:aisyah": 2, "email:bo@school.edu": 2, "attempt:att-9": 1, "id:S1": 1}
	if len(counts) != len(want) {
		t.Fatalf("keys = %v, want %v", counts, want)
	}
	for k, v := range want {
		if counts[k] != v {
			t.Errorf("count[%s] = %d, want %d", k, counts[k], v)
		}
	}
}

func TestAggregate_RecordWithoutIdentityIsExcluded(t *testing.T) {
	rows, err := Aggregate([]attempt.Record{
		{StudentID: "A", ExamTitle: "ok", StartedAt: ts("2024-01-01T09:00")},
		{ExamTitle: "orphan", StartedAt: ts("2024-01-05T09:00")},
	})
	if !errors.Is(err, errs.ErrDataIntegrity) {
		t.Fatalf("Aggregate() error = %v, want ErrDataIntegrity", err)
	}
	var idErr *IdentityError
	if !errors.As(err, &idErr) || idErr.Index != 1 {
		t.Errorf("IdentityError = %+v, want index 1", idErr)
	}
	if len(rows) != 1 || rows[0].StudentID != "A" {
		t.Errorf("rows = %+v, want only student A", rows)
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		row  Row
		want string
	}{
		{Row{StudentKey: "id:1", StudentID: "1", Username: "ali"}, "ali"},
		{Row{StudentKey: "id:1", StudentID: "1", Email: "a@b.c"}, "a@b.c"},
		{Row{StudentKey: "id:1", StudentID: "1"}, "1"},
		{Row{StudentKey: "attempt:9"}, "attempt:9"},
	}
	for _, tt := range tests {
		if got := tt.row.DisplayName(); got != tt.want {
			t.Errorf("DisplayName() = %q, want %q", got, tt.want)
		}
	}
}
