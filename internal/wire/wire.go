// Package wire holds the JSON bodies and form fields shared by the HTTP API
// and its client.
package wire

import "github.com/p-n-ai/pai-classroom/internal/curriculum"

// TreeDocument is the body of GET /api/curriculums/{id}/tree.
type TreeDocument struct {
	CurriculumID string                 `json:"curriculum_id"`
	Topics       []curriculum.TopicNode `json:"topics"`
}

// GradeRequest is the body of PUT /api/responses/{id}/grade. A null mark
// clears the mark.
type GradeRequest struct {
	Mark    *float64 `json:"mark"`
	Remarks string   `json:"remarks"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DocumentField is the multipart field carrying an evaluated document.
const DocumentField = "file"
