package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/p-n-ai/pai-classroom/internal/attempt"
	"github.com/p-n-ai/pai-classroom/internal/curriculum"
	"github.com/p-n-ai/pai-classroom/internal/wire"
)

func newTestRouter(t *testing.T, opts Options) (http.Handler, *attempt.MemoryStore, string) {
	t.Helper()
	store := attempt.NewMemoryStore(nil)
	id, err := store.AddAttempt(attempt.Detail{
		Attempt:   attempt.Record{ExamID: "ex1", ExamTitle: "Algebra P1", TopicID: "alg", StudentID: "s1"},
		Responses: []attempt.Response{{ID: "r1", QuestionID: "q1"}},
	})
	if err != nil {
		t.Fatalf("AddAttempt() error = %v", err)
	}
	opts.Attempts = store
	if opts.Catalog == nil {
		opts.Catalog = &curriculum.StaticCatalog{
			Curriculums: []curriculum.Curriculum{{ID: "igcse", Name: "IGCSE"}},
			Trees:       map[string][]curriculum.TopicNode{"igcse": {{ID: "p1", Name: "Paper 1"}}},
		}
	}
	return NewRouter(opts), store, id
}

func serve(h http.Handler, method, path string, body []byte, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h, _, _ := newTestRouter(t, Options{})
	rec := serve(h, http.MethodGet, "/healthz", nil, nil)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want %q", body["status"], "ok")
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]ReadyCheck
		want   int
	}{
		{name: "no checks", want: http.StatusOK},
		{name: "healthy", checks: map[string]ReadyCheck{"database": func(context.Context) error { return nil }}, want: http.StatusOK},
		{name: "failing", checks: map[string]ReadyCheck{"cache": func(context.Context) error { return errors.New("down") }}, want: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _ := newTestRouter(t, Options{ReadyChecks: tt.checks})
			if rec := serve(h, http.MethodGet, "/readyz", nil, nil); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequireToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword() error = %v", err)
	}
	h, _, _ := newTestRouter(t, Options{TokenHash: string(hash)})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing", want: http.StatusUnauthorized},
		{name: "wrong", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "valid", header: "Bearer s3cret", want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.header != "" {
				header.Set("Authorization", tt.header)
			}
			if rec := serve(h, http.MethodGet, "/api/curriculums", nil, header); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	// Health endpoints stay open.
	if rec := serve(h, http.MethodGet, "/healthz", nil, nil); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}
}

func TestTopicTree(t *testing.T) {
	h, _, _ := newTestRouter(t, Options{})

	rec := serve(h, http.MethodGet, "/api/curriculums/igcse/tree", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if err := curriculum.ValidateTreeJSON(rec.Body.Bytes()); err != nil {
		t.Fatalf("tree document fails schema: %v", err)
	}

	if rec := serve(h, http.MethodGet, "/api/curriculums/nope/tree", nil, nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown curriculum status = %d, want 404", rec.Code)
	}
}

func TestListAttempts_BadQuery(t *testing.T) {
	h, _, _ := newTestRouter(t, Options{})
	for _, q := range []string{"paper_number=x", "paper_number=-1", "completed_only=maybe"} {
		if rec := serve(h, http.MethodGet, "/api/attempts?"+q, nil, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestGradingEndpoints(t *testing.T) {
	h, store, id := newTestRouter(t, Options{})

	rec := serve(h, http.MethodPut, "/api/responses/r1/grade", []byte(`{"mark":2.5,"remarks":"fine"}`), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("grade status = %d, body = %s", rec.Code, rec.Body)
	}
	d, _ := store.GetAttemptDetail(context.Background(), id)
	if m := d.Responses[0].TeacherMark; m == nil || *m != 2.5 {
		t.Fatalf("TeacherMark = %v, want 2.5", m)
	}

	if rec := serve(h, http.MethodPut, "/api/responses/nope/grade", []byte(`{"mark":1}`), nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown response status = %d, want 404", rec.Code)
	}
	if rec := serve(h, http.MethodPut, "/api/responses/r1/grade", []byte(`{"mark":"abc"}`), nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad mark status = %d, want 400", rec.Code)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile(wire.DocumentField, "marked.pdf")
	part.Write([]byte("%PDF"))
	mw.Close()
	rec = serve(h, http.MethodPost, "/api/attempts/"+id+"/document", buf.Bytes(), http.Header{"Content-Type": {mw.FormDataContentType()}})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("upload status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = serve(h, http.MethodPost, "/api/attempts/"+id+"/finalize", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("finalize status = %d", rec.Code)
	}
	var ack attempt.FinalizeAck
	if err := json.NewDecoder(rec.Body).Decode(&ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.AlreadyFinalized {
		t.Error("first finalize should not report AlreadyFinalized")
	}

	if rec := serve(h, http.MethodPut, "/api/responses/r1/grade", []byte(`{"mark":1}`), nil); rec.Code != http.StatusConflict {
		t.Errorf("grade after finalize status = %d, want 409", rec.Code)
	}
}
