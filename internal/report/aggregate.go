// Package report reduces flat attempt records into one rollup row per student.
package report

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/p-n-ai/pai-classroom/internal/attempt"
	"github.com/p-n-ai/pai-classroom/internal/platform/errs"
)

// Row is one aggregated summary per student for a scope/filter.
type Row struct {
	StudentKey     string     `json:"student_key"`
	StudentID      string     `json:"student_id,omitempty"`
	Username       string     `json:"username,omitempty"`
	Email          string     `json:"email,omitempty"`
	AttemptCount   int        `json:"attempt_count"`
	LastActivityAt *time.Time `json:"last_activity_at"`
	LastExamTitle  string     `json:"last_exam_title"`
}

// DisplayName is the most human-readable identity available for the row.
func (r Row) DisplayName() string {
	switch {
	case r.Username != "":
		return r.Username
	case r.Email != "":
		return r.Email
	case r.StudentID != "":
		return r.StudentID
	default:
		return r.StudentKey
	}
}

// IdentityError reports an attempt record with no usable student identity.
type IdentityError struct {
	Index int // position in the input
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("attempt record %d has no student identity", e.Index)
}

func (e *IdentityError) Unwrap() error {
	return errs.ErrDataIntegrity
}

// StudentKey returns the grouping key of a record: student id, then username,
// then email, then a synthetic key derived from the attempt id. ok is false
// when none of them is present.
func StudentKey(r attempt.Record) (key string, ok bool) {
	switch {
	case strings.TrimSpace(r.StudentID) != "":
		return "id:" + strings.TrimSpace(r.StudentID), true
	case strings.TrimSpace(r.Username) != "":
		return "user:" + cases.Fold().String(strings.TrimSpace(r.Username)), true
	case strings.TrimSpace(r.Email) != "":
		return "email:" + cases.Fold().String(strings.TrimSpace(r.Email)), true
	case strings.TrimSpace(r.ID) != "":
		return "attempt:" + strings.TrimSpace(r.ID), true
	}
	return "", false
}

// activityAt is the record's most recent timestamp: finish time if present,
// else start time.
func activityAt(r attempt.Record) *time.Time {
	if r.FinishedAt != nil {
		return r.FinishedAt
	}
	return r.StartedAt
}

// Aggregate groups records by student and returns one row per student,
// most recent activity first. Rows without any timestamp come last in input
// order. Records with no usable identity are skipped and reported through the
// returned error (which wraps errs.ErrDataIntegrity); the rows are valid
// either way.
func Aggregate(records []attempt.Record) ([]Row, error) {
	rows := []Row{}
	byKey := make(map[string]int)
	var problems []error

	for i, rec := range records {
		key, ok := StudentKey(rec)
		if !ok {
			problems = append(problems, &IdentityError{Index: i})
			continue
		}

		pos, seen := byKey[key]
		if !seen {
			pos = len(rows)
			byKey[key] = pos
			rows = append(rows, Row{StudentKey: key})
		}
		row := &rows[pos]
		row.AttemptCount++
		if row.StudentID == "" {
			row.StudentID = rec.StudentID
		}
		if row.Username == "" {
			row.Username = rec.Username
		}
		if row.Email == "" {
			row.Email = rec.Email
		}

		// Later records win ties on the same timestamp.
		at := activityAt(rec)
		switch {
		case at == nil && row.LastActivityAt == nil:
			row.LastExamTitle = rec.ExamTitle
		case at == nil:
			// keep the timestamped record
		case row.LastActivityAt == nil || !at.Before(*row.LastActivityAt):
			t := *at
			row.LastActivityAt = &t
			row.LastExamTitle = rec.ExamTitle
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].LastActivityAt, rows[j].LastActivityAt
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.After(*b)
	})

	return rows, errors.Join(problems...)
}
