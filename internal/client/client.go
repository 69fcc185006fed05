// Package client is the HTTP client for the Catalog and Attempt services.
// Credentials are supplied at construction and sent on every request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/p-n-ai/pai-classroom/internal/attempt"
	"github.com/p-n-ai/pai-classroom/internal/curriculum"
	"github.com/p-n-ai/pai-classroom/internal/platform/errs"
	"github.com/p-n-ai/pai-classroom/internal/wire"
)

// Client implements curriculum.Catalog and attempt.Service over HTTP.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

var (
	_ curriculum.Catalog = (*Client)(nil)
	_ attempt.Service    = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client = &http.Client{Timeout: d}
	}
}

// New creates a client for the API at baseURL. An empty token sends no
// Authorization header.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListCurriculums(ctx context.Context) ([]curriculum.Curriculum, error) {
	var out []curriculum.Curriculum
	if err := c.getJSON(ctx, "/api/curriculums", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TopicTree fetches a topic tree. The payload is checked against the tree
// schema before it is decoded.
func (c *Client) TopicTree(ctx context.Context, curriculumID string) ([]curriculum.TopicNode, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/curriculums/"+url.PathEscape(curriculumID)+"/tree", nil, "")
	if err != nil {
		return nil, err
	}
	if err := curriculum.ValidateTreeJSON(body); err != nil {
		return nil, err
	}
	var doc wire.TreeDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal topic tree: %w", err)
	}
	return doc.Topics, nil
}

func (c *Client) ListExams(ctx context.Context, topicID string) ([]curriculum.Exam, error) {
	var out []curriculum.Exam
	if err := c.getJSON(ctx, "/api/topics/"+url.PathEscape(topicID)+"/exams", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListAttempts(ctx context.Context, filters attempt.Filters) ([]attempt.Record, error) {
	q := url.Values{}
	if filters.TopicID != "" {
		q.Set("topic_id", filters.TopicID)
	}
	if filters.CompletedOnly {
		q.Set("completed_only", "true")
	}
	if filters.Level != "" {
		q.Set("level", filters.Level)
	}
	if filters.PaperNumber != 0 {
		q.Set("paper_number", strconv.Itoa(filters.PaperNumber))
	}
	path := "/api/attempts"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []attempt.Record
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetAttemptDetail(ctx context.Context, attemptID string) (attempt.Detail, error) {
	var d attempt.Detail
	if err := c.getJSON(ctx, "/api/attempts/"+url.PathEscape(attemptID), &d); err != nil {
		return attempt.Detail{}, err
	}
	return d, nil
}

func (c *Client) SetResponseGrade(ctx context.Context, responseID string, mark *float64, remarks string) error {
	body, err := json.Marshal(wire.GradeRequest{Mark: mark, Remarks: remarks})
	if err != nil {
		return fmt.Errorf("marshal grade: %w", err)
	}
	_, err = c.do(ctx, http.MethodPut, "/api/responses/"+url.PathEscape(responseID)+"/grade", bytes.NewReader(body), "application/json")
	return err
}

func (c *Client) FinalizeGrading(ctx context.Context, attemptID string) (attempt.FinalizeAck, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/attempts/"+url.PathEscape(attemptID)+"/finalize", nil, "")
	if err != nil {
		return attempt.FinalizeAck{}, err
	}
	var ack attempt.FinalizeAck
	if err := json.Unmarshal(body, &ack); err != nil {
		return attempt.FinalizeAck{}, fmt.Errorf("unmarshal finalize ack: %w", err)
	}
	return ack, nil
}

func (c *Client) UploadEvaluatedDocument(ctx context.Context, attemptID, filename string, r io.Reader) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(wire.DocumentField, filename)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	_, err = c.do(ctx, http.MethodPost, "/api/attempts/"+url.PathEscape(attemptID)+"/document", &buf, mw.FormDataContentType())
	return err
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	body, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// do sends a request and returns the response body of a 2xx reply. Failures
// are mapped onto the error taxonomy; anything unexpected is a transport error.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w: %w", errs.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w: %w", errs.ErrTransport, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}
	return nil, statusError(method, path, resp.StatusCode, respBody)
}

func statusError(method, path string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var er wire.ErrorResponse
	if json.Unmarshal(body, &er) == nil && er.Error != "" {
		msg = er.Error
	}

	var kind error
	switch status {
	case http.StatusNotFound:
		kind = errs.ErrNotFound
	case http.StatusConflict:
		kind = errs.ErrLocked
	case http.StatusBadRequest:
		kind = errs.ErrValidation
	case http.StatusUnprocessableEntity:
		kind = errs.ErrDataIntegrity
	default:
		kind = errs.ErrTransport
	}
	return fmt.Errorf("%s %s (status %d): %s: %w", method, path, status, msg, kind)
}
