package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/p-n-ai/pai-classroom/internal/attempt"
	"github.com/p-n-ai/pai-classroom/internal/curriculum"
	"github.com/p-n-ai/pai-classroom/internal/wire"
)

type handlers struct {
	catalog  curriculum.Catalog
	attempts attempt.Service
}

// GET /api/curriculums
func (h *handlers) listCurriculums(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.ListCurriculums(r.Context())
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/curriculums/{curriculumID}/tree
func (h *handlers) topicTree(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "curriculumID")
	topics, err := h.catalog.TopicTree(r.Context(), id)
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	if topics == nil {
		topics = []curriculum.TopicNode{}
	}
	writeJSON(w, http.StatusOK, wire.TreeDocument{CurriculumID: id, Topics: topics})
}

// GET /api/topics/{topicID}/exams
func (h *handlers) listExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.catalog.ListExams(r.Context(), chi.URLParam(r, "topicID"))
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	if exams == nil {
		exams = []curriculum.Exam{}
	}
	writeJSON(w, http.StatusOK, exams)
}

// GET /api/attempts?topic_id=...&completed_only=true&level=...&paper_number=1
func (h *handlers) listAttempts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := attempt.Filters{
		TopicID: strings.TrimSpace(q.Get("topic_id")),
		Level:   strings.TrimSpace(q.Get("level")),
	}
	if v := q.Get("completed_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "completed_only must be a boolean")
			return
		}
		filters.CompletedOnly = b
	}
	if v := q.Get("paper_number"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeErr(w, http.StatusBadRequest, "paper_number must be a non-negative integer")
			return
		}
		filters.PaperNumber = n
	}

	list, err := h.attempts.ListAttempts(r.Context(), filters)
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	if list == nil {
		list = []attempt.Record{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/attempts/{attemptID}
func (h *handlers) getAttempt(w http.ResponseWriter, r *http.Request) {
	d, err := h.attempts.GetAttemptDetail(r.Context(), chi.URLParam(r, "attemptID"))
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// PUT /api/responses/{responseID}/grade
func (h *handlers) setGrade(w http.ResponseWriter, r *http.Request) {
	var req wire.GradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	if req.Mark != nil && (math.IsNaN(*req.Mark) || math.IsInf(*req.Mark, 0)) {
		writeErr(w, http.StatusBadRequest, "mark must be a finite number")
		return
	}

	if err := h.attempts.SetResponseGrade(r.Context(), chi.URLParam(r, "responseID"), req.Mark, req.Remarks); err != nil {
		writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/attempts/{attemptID}/finalize
func (h *handlers) finalize(w http.ResponseWriter, r *http.Request) {
	ack, err := h.attempts.FinalizeGrading(r.Context(), chi.URLParam(r, "attemptID"))
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

// POST /api/attempts/{attemptID}/document (multipart field "file")
func (h *handlers) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentSize)
	file, header, err := r.FormFile(wire.DocumentField)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "missing file: "+err.Error())
		return
	}
	defer file.Close()

	if err := h.attempts.UploadEvaluatedDocument(r.Context(), chi.URLParam(r, "attemptID"), header.Filename, file); err != nil {
		writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
