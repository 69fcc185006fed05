package navigator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/pai-classroom/internal/attempt"
	"github.com/p-n-ai/pai-classroom/internal/curriculum"
	"github.com/p-n-ai/pai-classroom/internal/report"
)

// ReportView is the teacher surface: per-student rollups for the selected topic.
type ReportView = View[[]report.Row]

// LibraryView is the student surface: exams filed under the selected topic.
type LibraryView = View[[]curriculum.Exam]

// ReportOption configures a ReportView.
type ReportOption func(*reportOptions)

type reportOptions struct {
	subtopics bool
}

// WithSubtopics widens the rollup from the selected topic to the topic and
// every topic below it.
func WithSubtopics() ReportOption {
	return func(o *reportOptions) { o.subtopics = true }
}

// NewReportView creates a view that aggregates the attempts under the
// selected topic. Records without a usable identity are excluded from the
// rows and reported through Snapshot.Integrity.
func NewReportView(catalog curriculum.Catalog, attempts attempt.Service, opts ...ReportOption) *ReportView {
	var o reportOptions
	for _, opt := range opts {
		opt(&o)
	}

	return NewView(catalog, func(ctx context.Context, scope Scope) ([]report.Row, error) {
		filters := scope.Filters
		filters.TopicID = scope.NodeID
		if o.subtopics {
			filters.TopicID = ""
		}

		records, err := attempts.ListAttempts(ctx, filters)
		if err != nil {
			return nil, err
		}
		if o.subtopics {
			records = inSubtree(records, scope.Subtree)
		}

		rows, err := report.Aggregate(records)
		if err != nil {
			slog.Warn("attempt records excluded from rollup",
				"topic_id", scope.NodeID,
				"error", err,
			)
			return rows, fmt.Errorf("aggregate attempts: %w", err)
		}
		return rows, nil
	})
}

func inSubtree(records []attempt.Record, subtree []string) []attempt.Record {
	ids := make(map[string]bool, len(subtree))
	for _, id := range subtree {
		ids[id] = true
	}
	out := make([]attempt.Record, 0, len(records))
	for _, r := range records {
		if ids[r.TopicID] {
			out = append(out, r)
		}
	}
	return out
}

// NewLibraryView creates a view that lists the exams under the selected
// topic, narrowed by the level and paper filters.
func NewLibraryView(catalog curriculum.Catalog) *LibraryView {
	return NewView(catalog, func(ctx context.Context, scope Scope) ([]curriculum.Exam, error) {
		exams, err := catalog.ListExams(ctx, scope.NodeID)
		if err != nil {
			return nil, err
		}
		out := make([]curriculum.Exam, 0, len(exams))
		for _, e := range exams {
			if scope.Filters.Level != "" && e.Level != scope.Filters.Level {
				continue
			}
			if scope.Filters.PaperNumber != 0 && e.PaperNumber != scope.Filters.PaperNumber {
				continue
			}
			out = append(out, e)
		}
		return out, nil
	})
}
