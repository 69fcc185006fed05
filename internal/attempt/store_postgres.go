package attempt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-classroom/internal/platform/errs"
	"github.com/p-n-ai/pai-classroom/internal/storage"
)

const dbTimeout = 5 * time.Second

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS exam_attempts (
	id                 TEXT PRIMARY KEY,
	exam_id            TEXT NOT NULL,
	exam_title         TEXT NOT NULL DEFAULT '',
	topic_id           TEXT,
	level              TEXT,
	paper_number       INT,
	student_id         TEXT,
	username           TEXT,
	email              TEXT,
	started_at         TIMESTAMPTZ,
	finished_at        TIMESTAMPTZ,
	grading_state      TEXT NOT NULL DEFAULT 'in_progress',
	evaluated_document TEXT,
	finalized_at       TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS exam_attempts_topic_idx ON exam_attempts (topic_id);

CREATE TABLE IF NOT EXISTS attempt_responses (
	id           TEXT PRIMARY KEY,
	attempt_id   TEXT NOT NULL REFERENCES exam_attempts (id) ON DELETE CASCADE,
	position     INT NOT NULL,
	question_id  TEXT NOT NULL,
	answer       TEXT,
	max_marks    DOUBLE PRECISION,
	teacher_mark DOUBLE PRECISION,
	remarks      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS grading_events (
	id         BIGSERIAL PRIMARY KEY,
	attempt_id TEXT NOT NULL,
	actor      TEXT,
	event_type TEXT NOT NULL,
	data       JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PostgresStore is a PostgreSQL-backed Service implementation.
type PostgresStore struct {
	pool  *pgxpool.Pool
	blobs storage.BlobStore
}

// NewPostgresStore creates a PostgreSQL-backed attempt store. Evaluated
// documents are written to blobs.
func NewPostgresStore(pool *pgxpool.Pool, blobs storage.BlobStore) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store is nil")
	}
	return &PostgresStore{pool: pool, blobs: blobs}, nil
}

// EnsureSchema creates the attempt tables when they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaPostgres); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// AddAttempt inserts an attempt with its responses in one transaction.
func (s *PostgresStore) AddAttempt(ctx context.Context, d Detail) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if d.Attempt.ID == "" {
		d.Attempt.ID = uuid.NewString()
	}
	if d.State == "" {
		d.State = StateInProgress
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	a := d.Attempt
	if _, err := tx.Exec(ctx,
		`INSERT INTO exam_attempts
		   (id, exam_id, exam_title, topic_id, level, paper_number, student_id, username, email,
		    started_at, finished_at, grading_state, finalized_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.ExamID, a.ExamTitle,
		nullIfEmpty(a.TopicID), nullIfEmpty(a.Level), nullIfZero(a.PaperNumber),
		nullIfEmpty(a.StudentID), nullIfEmpty(a.Username), nullIfEmpty(a.Email),
		a.StartedAt, a.FinishedAt, string(d.State), d.FinalizedAt,
	); err != nil {
		return "", fmt.Errorf("insert attempt: %w", err)
	}

	for i, r := range d.Responses {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO attempt_responses
			   (id, attempt_id, position, question_id, answer, max_marks, teacher_mark, remarks)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			r.ID, a.ID, i, r.QuestionID, nullIfEmpty(r.Answer), r.MaxMarks, r.TeacherMark, r.Remarks,
		); err != nil {
			return "", fmt.Errorf("insert response: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return a.ID, nil
}

func (s *PostgresStore) ListAttempts(ctx context.Context, filters Filters) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id, exam_id, exam_title, topic_id, level, paper_number, student_id, username, email,
		        started_at, finished_at
		 FROM exam_attempts
		 WHERE ($1 = '' OR topic_id = $1)
		   AND (NOT $2 OR finished_at IS NOT NULL)
		   AND ($3 = '' OR level = $3)
		   AND ($4 = 0 OR paper_number = $4)
		 ORDER BY started_at DESC NULLS LAST, id`,
		filters.TopicID, filters.CompletedOnly, filters.Level, filters.PaperNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetAttemptDetail(ctx context.Context, attemptID string) (Detail, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var d Detail
	var state string
	var doc *string
	row := s.pool.QueryRow(ctx,
		`SELECT id, exam_id, exam_title, topic_id, level, paper_number, student_id, username, email,
		        started_at, finished_at, grading_state, evaluated_document, finalized_at
		 FROM exam_attempts
		 WHERE id = $1`,
		attemptID,
	)
	rec, err := scanRecord(row, &state, &doc, &d.FinalizedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Detail{}, fmt.Errorf("attempt %s: %w", attemptID, errs.ErrNotFound)
		}
		return Detail{}, err
	}
	d.Attempt = rec
	d.State = GradingState(state)
	if doc != nil {
		d.EvaluatedDocument = *doc
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, question_id, answer, max_marks, teacher_mark, remarks
		 FROM attempt_responses
		 WHERE attempt_id = $1
		 ORDER BY position ASC`,
		attemptID,
	)
	if err != nil {
		return Detail{}, fmt.Errorf("query responses: %w", err)
	}
	defer rows.Close()

	d.Responses = []Response{}
	for rows.Next() {
		var r Response
		var answer *string
		var maxMarks *float64
		if err := rows.Scan(&r.ID, &r.QuestionID, &answer, &maxMarks, &r.TeacherMark, &r.Remarks); err != nil {
			return Detail{}, fmt.Errorf("scan response: %w", err)
		}
		if answer != nil {
			r.Answer = *answer
		}
		if maxMarks != nil {
			r.MaxMarks = *maxMarks
		}
		d.Responses = append(d.Responses, r)
	}
	if err := rows.Err(); err != nil {
		return Detail{}, fmt.Errorf("iterate responses: %w", err)
	}

	return d, nil
}

func (s *PostgresStore) SetResponseGrade(ctx context.Context, responseID string, mark *float64, remarks string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE attempt_responses r
		 SET teacher_mark = $2, remarks = $3
		 FROM exam_attempts a
		 WHERE r.id = $1
		   AND a.id = r.attempt_id
		   AND a.grading_state = 'in_progress'`,
		responseID, mark, remarks,
	)
	if err != nil {
		return fmt.Errorf("set grade: %w", err)
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}

	var state string
	err = s.pool.QueryRow(ctx,
		`SELECT a.grading_state
		 FROM attempt_responses r
		 JOIN exam_attempts a ON a.id = r.attempt_id
		 WHERE r.id = $1`,
		responseID,
	).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("response %s: %w", responseID, errs.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lookup response: %w", err)
	}
	return fmt.Errorf("grade response %s: %w", responseID, errs.ErrLocked)
}

func (s *PostgresStore) FinalizeGrading(ctx context.Context, attemptID string) (FinalizeAck, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var at time.Time
	err := s.pool.QueryRow(ctx,
		`UPDATE exam_attempts
		 SET grading_state = 'finalized', finalized_at = NOW()
		 WHERE id = $1 AND grading_state = 'in_progress'
		 RETURNING finalized_at`,
		attemptID,
	).Scan(&at)
	if err == nil {
		return FinalizeAck{AttemptID: attemptID, FinalizedAt: at}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return FinalizeAck{}, fmt.Errorf("finalize: %w", err)
	}

	var finalizedAt *time.Time
	err = s.pool.QueryRow(ctx,
		`SELECT finalized_at FROM exam_attempts WHERE id = $1`,
		attemptID,
	).Scan(&finalizedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return FinalizeAck{}, fmt.Errorf("attempt %s: %w", attemptID, errs.ErrNotFound)
	}
	if err != nil {
		return FinalizeAck{}, fmt.Errorf("lookup attempt: %w", err)
	}
	ack := FinalizeAck{AttemptID: attemptID, AlreadyFinalized: true}
	if finalizedAt != nil {
		ack.FinalizedAt = *finalizedAt
	}
	return ack, nil
}

func (s *PostgresStore) UploadEvaluatedDocument(ctx context.Context, attemptID, filename string, r io.Reader) error {
	key, err := storage.DocumentKey(attemptID, filename)
	if err != nil {
		return fmt.Errorf("%s: %w", err, errs.ErrValidation)
	}

	d, err := s.GetAttemptDetail(ctx, attemptID)
	if err != nil {
		return err
	}
	if d.Locked() {
		return fmt.Errorf("upload document for %s: %w", attemptID, errs.ErrLocked)
	}

	if _, err := s.blobs.Put(key, r); err != nil {
		return fmt.Errorf("store document: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE exam_attempts
		 SET evaluated_document = $2
		 WHERE id = $1 AND grading_state = 'in_progress'`,
		attemptID, key,
	)
	if err != nil {
		return fmt.Errorf("record document: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		// Finalized between the check and the update.
		return fmt.Errorf("upload document for %s: %w", attemptID, errs.ErrLocked)
	}
	return nil
}

func scanRecord(row pgx.Row, extra ...any) (Record, error) {
	var r Record
	var topicID, level, studentID, username, email *string
	var paper *int
	dest := []any{
		&r.ID, &r.ExamID, &r.ExamTitle, &topicID, &level, &paper,
		&studentID, &username, &email, &r.StartedAt, &r.FinishedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan attempt: %w", err)
	}
	r.TopicID = deref(topicID)
	r.Level = deref(level)
	r.StudentID = deref(studentID)
	r.Username = deref(username)
	r.Email = deref(email)
	if paper != nil {
		r.PaperNumber = *paper
	}
	return r, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullIfZero(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
