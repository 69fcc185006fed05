package attempt

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-classroom/internal/platform/errs"
	"github.com/p-n-ai/pai-classroom/internal/storage"
)

// MemoryStore is an in-memory implementation of Service.
type MemoryStore struct {
	attempts  map[string]*Detail
	order     []string          // attempt ids in insertion order
	responses map[string]string // response id -> attempt id
	blobs     storage.BlobStore
	mu        sync.RWMutex
}

// NewMemoryStore creates a new in-memory attempt store. blobs may be nil, in
// which case uploads are counted but not kept.
func NewMemoryStore(blobs storage.BlobStore) *MemoryStore {
	return &MemoryStore{
		attempts:  make(map[string]*Detail),
		responses: make(map[string]string),
		blobs:     blobs,
	}
}

// AddAttempt stores an attempt with its responses. Missing attempt and
// response ids are generated, and a finalized attempt without a timestamp is
// stamped with the current time. It returns the stored attempt id.
func (s *MemoryStore) AddAttempt(d Detail) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.Attempt.ID == "" {
		d.Attempt.ID = uuid.NewString()
	}
	if _, exists := s.attempts[d.Attempt.ID]; exists {
		return "", fmt.Errorf("attempt %s already exists", d.Attempt.ID)
	}
	if d.State == "" {
		d.State = StateInProgress
	}
	if d.State == StateFinalized && d.FinalizedAt == nil {
		now := time.Now().UTC()
		d.FinalizedAt = &now
	}
	d.Responses = append([]Response{}, d.Responses...)
	for i := range d.Responses {
		if d.Responses[i].ID == "" {
			d.Responses[i].ID = uuid.NewString()
		}
		s.responses[d.Responses[i].ID] = d.Attempt.ID
	}

	s.attempts[d.Attempt.ID] = &d
	s.order = append(s.order, d.Attempt.ID)
	return d.Attempt.ID, nil
}

func (s *MemoryStore) ListAttempts(_ context.Context, filters Filters) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Record{}
	for _, id := range s.order {
		r := s.attempts[id].Attempt
		if filters.Match(r) {
			out = append(out, r)
		}
	}
	// Newest first by start time, as the list endpoint does.
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].StartedAt, out[j].StartedAt
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.After(*b)
	})
	return out, nil
}

func (s *MemoryStore) GetAttemptDetail(_ context.Context, attemptID string) (Detail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.attempts[attemptID]
	if !ok {
		return Detail{}, fmt.Errorf("attempt %s: %w", attemptID, errs.ErrNotFound)
	}
	return copyDetail(d), nil
}

func (s *MemoryStore) SetResponseGrade(_ context.Context, responseID string, mark *float64, remarks string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	attemptID, ok := s.responses[responseID]
	if !ok {
		return fmt.Errorf("response %s: %w", responseID, errs.ErrNotFound)
	}
	d := s.attempts[attemptID]
	if d.Locked() {
		return fmt.Errorf("grade response %s: %w", responseID, errs.ErrLocked)
	}
	for i := range d.Responses {
		if d.Responses[i].ID == responseID {
			d.Responses[i].TeacherMark = copyMark(mark)
			d.Responses[i].Remarks = remarks
		}
	}
	return nil
}

func (s *MemoryStore) FinalizeGrading(_ context.Context, attemptID string) (FinalizeAck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.attempts[attemptID]
	if !ok {
		return FinalizeAck{}, fmt.Errorf("attempt %s: %w", attemptID, errs.ErrNotFound)
	}
	if d.Locked() {
		ack := FinalizeAck{AttemptID: attemptID, AlreadyFinalized: true}
		if d.FinalizedAt != nil {
			ack.FinalizedAt = *d.FinalizedAt
		}
		return ack, nil
	}
	now := time.Now().UTC()
	d.State = StateFinalized
	d.FinalizedAt = &now
	return FinalizeAck{AttemptID: attemptID, FinalizedAt: now}, nil
}

func (s *MemoryStore) UploadEvaluatedDocument(_ context.Context, attemptID, filename string, r io.Reader) error {
	key, err := storage.DocumentKey(attemptID, filename)
	if err != nil {
		return fmt.Errorf("%s: %w", err, errs.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.attempts[attemptID]
	if !ok {
		return fmt.Errorf("attempt %s: %w", attemptID, errs.ErrNotFound)
	}
	if d.Locked() {
		return fmt.Errorf("upload document for %s: %w", attemptID, errs.ErrLocked)
	}
	if s.blobs != nil {
		if _, err := s.blobs.Put(key, r); err != nil {
			return fmt.Errorf("store document: %w", err)
		}
	} else if _, err := io.Copy(io.Discard, r); err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	d.EvaluatedDocument = key
	return nil
}

func copyDetail(d *Detail) Detail {
	out := *d
	out.Responses = make([]Response, len(d.Responses))
	for i, r := range d.Responses {
		r.TeacherMark = copyMark(r.TeacherMark)
		out.Responses[i] = r
	}
	return out
}

func copyMark(m *float64) *float64 {
	if m == nil {
		return nil
	}
	v := *m
	return &v
}
