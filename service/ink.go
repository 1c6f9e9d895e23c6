package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/aimariscal90-maker/ink-v1/config"
	"github.com/aimariscal90-maker/ink-v1/model"
)

// InkService is a thin facade over the four Ink API operations. It owns no
// job state: every method takes the job ID explicitly and returns whatever
// the server reported.
type InkService struct {
	config     *config.APIConfig
	httpClient *http.Client
}

func NewInkService(cfg *config.APIConfig) *InkService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &InkService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Submit uploads a document and creates a processing job. Only PDF and
// CBR/CBZ files are accepted; empty payloads are rejected before any
// network traffic happens.
func (s *InkService) Submit(ctx context.Context, filename string, r io.Reader) (*model.SubmitReceipt, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".pdf" && ext != ".cbr" && ext != ".cbz" {
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/api/v1/jobs", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	respBody, err := s.do(req, "submit")
	if err != nil {
		return nil, err
	}

	var receipt model.SubmitReceipt
	if err := json.Unmarshal(respBody, &receipt); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w, body: %s", err, string(respBody))
	}

	return &receipt, nil
}

// Trigger asks the server to start processing an already-submitted job.
// The pipeline runs server-side from here on; the returned snapshot is
// whatever the server reported at accept time.
func (s *InkService) Trigger(ctx context.Context, jobID string) (*model.Snapshot, error) {
	url := fmt.Sprintf("%s/api/v1/jobs/%s/process", s.config.BaseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return s.snapshot(req, "trigger")
}

// GetStatus reads the current status of a job. It is side-effect free and
// may be called any number of times.
func (s *InkService) GetStatus(ctx context.Context, jobID string) (*model.Snapshot, error) {
	url := fmt.Sprintf("%s/api/v1/jobs/%s", s.config.BaseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return s.snapshot(req, "status")
}

// Download retrieves the processed artifact. The caller is expected to
// have observed status=completed first; the facade does not guard it.
func (s *InkService) Download(ctx context.Context, jobID string) ([]byte, error) {
	url := fmt.Sprintf("%s/api/v1/jobs/%s/download", s.config.BaseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return s.do(req, "download")
}

func (s *InkService) snapshot(req *http.Request, op string) (*model.Snapshot, error) {
	body, err := s.do(req, op)
	if err != nil {
		return nil, err
	}

	var snap model.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}

	return &snap, nil
}

// do executes a request and splits failures into the two transport kinds:
// NetworkError when no response arrived, APIError for non-2xx responses.
func (s *InkService) do(req *http.Request, op string) ([]byte, error) {
	req.Header.Set("Accept", "*/*")
	if s.config.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
