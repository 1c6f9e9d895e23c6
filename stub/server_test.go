package stub

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aimariscal90-maker/ink-v1/config"
	"github.com/aimariscal90-maker/ink-v1/model"
)

func testServer() *Server {
	return NewServer(&config.StubConfig{
		Port:        0,
		PageCount:   2,
		StepDelayMS: 1,
		MaxJobs:     10,
	})
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("Failed to build multipart body: %v", err)
	}
	part.Write([]byte(content))
	writer.Close()

	return &body, writer.FormDataContentType()
}

func uploadJob(t *testing.T, router http.Handler, filename, content string) model.SubmitReceipt {
	t.Helper()

	body, contentType := multipartUpload(t, filename, content)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/jobs", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Upload failed with %d: %s", w.Code, w.Body.String())
	}

	var receipt model.SubmitReceipt
	if err := json.Unmarshal(w.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("Failed to parse receipt: %v", err)
	}
	return receipt
}

func TestCreateJobPDF(t *testing.T) {
	router := testServer().Router()
	receipt := uploadJob(t, router, "chapter.pdf", "%PDF-1.4 content")

	if receipt.JobID == "" {
		t.Error("Expected a job ID")
	}
	if receipt.Status != model.StatusUploaded {
		t.Errorf("Expected uploaded, got %s", receipt.Status)
	}
	if receipt.Type != model.TypePDF || receipt.OutputFormat != model.FormatPDF {
		t.Errorf("Expected pdf/pdf, got %s/%s", receipt.Type, receipt.OutputFormat)
	}
}

func TestCreateJobComic(t *testing.T) {
	router := testServer().Router()
	receipt := uploadJob(t, router, "volume1.cbz", "PK comic bytes")

	if receipt.Type != model.TypeComic || receipt.OutputFormat != model.FormatCBZ {
		t.Errorf("Expected comic/cbz, got %s/%s", receipt.Type, receipt.OutputFormat)
	}
}

func TestCreateJobUnsupportedType(t *testing.T) {
	router := testServer().Router()

	body, contentType := multipartUpload(t, "notes.txt", "plain text")
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/jobs", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Unsupported file type") {
		t.Errorf("Unexpected body: %s", w.Body.String())
	}
}

func TestCreateJobEmptyFile(t *testing.T) {
	router := testServer().Router()

	body, contentType := multipartUpload(t, "empty.pdf", "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/jobs", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "empty") {
		t.Errorf("Unexpected body: %s", w.Body.String())
	}
}

func TestGetJobNotFound(t *testing.T) {
	router := testServer().Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/jobs/no-such-job", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestProcessJobNotFound(t *testing.T) {
	router := testServer().Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/jobs/no-such-job/process", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestDownloadBeforeOutput(t *testing.T) {
	router := testServer().Router()
	receipt := uploadJob(t, router, "chapter.pdf", "%PDF-1.4 content")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/jobs/"+receipt.JobID+"/download", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "no output yet") {
		t.Errorf("Unexpected body: %s", w.Body.String())
	}
}

func waitForStatus(t *testing.T, router http.Handler, jobID string, want model.JobStatus) model.Snapshot {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/jobs/"+jobID, nil)
		router.ServeHTTP(w, req)

		var snap model.Snapshot
		if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
			t.Fatalf("Failed to parse snapshot: %v", err)
		}
		if snap.Status == want {
			return snap
		}
		if snap.Status.Terminal() {
			t.Fatalf("Job reached %s while waiting for %s (error: %s)", snap.Status, want, snap.ErrorMessage)
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Job %s never reached %s", jobID, want)
	return model.Snapshot{}
}

func TestProcessJobToCompletion(t *testing.T) {
	router := testServer().Router()
	receipt := uploadJob(t, router, "chapter.pdf", "%PDF-1.4 content")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/jobs/"+receipt.JobID+"/process", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", w.Code)
	}
	var accepted model.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("Failed to parse snapshot: %v", err)
	}
	if accepted.Status != model.StatusProcessing {
		t.Errorf("Expected processing at accept time, got %s", accepted.Status)
	}

	snap := waitForStatus(t, router, receipt.JobID, model.StatusCompleted)

	if snap.NumPages != 2 {
		t.Errorf("Expected 2 pages, got %d", snap.NumPages)
	}
	if snap.ProgressStage != model.StageCompleted {
		t.Errorf("Expected completed stage, got %s", snap.ProgressStage)
	}
	if snap.ProgressCurrent != snap.ProgressTotal {
		t.Errorf("Expected counters snapped to total, got %d/%d", snap.ProgressCurrent, snap.ProgressTotal)
	}
	if snap.RegionsTotal == 0 {
		t.Error("Expected regions_total to be filled in")
	}

	// Artifact download
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/v1/jobs/"+receipt.JobID+"/download", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("Expected application/pdf, got %s", got)
	}
	if !strings.HasPrefix(w.Body.String(), "%PDF") {
		t.Errorf("Artifact does not look like a PDF: %q", w.Body.String()[:8])
	}
}

func TestProcessJobSimulatedFailure(t *testing.T) {
	router := testServer().Router()
	receipt := uploadJob(t, router, "please-fail.pdf", "%PDF-1.4 content")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/jobs/"+receipt.JobID+"/process", nil)
	router.ServeHTTP(w, req)

	snap := waitForStatus(t, router, receipt.JobID, model.StatusFailed)
	if snap.ErrorMessage != "OCR engine unavailable" {
		t.Errorf("Unexpected error message: %q", snap.ErrorMessage)
	}
}

func TestProcessJobIdempotent(t *testing.T) {
	router := testServer().Router()
	receipt := uploadJob(t, router, "chapter.pdf", "%PDF-1.4 content")

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/jobs/"+receipt.JobID+"/process", nil)
		router.ServeHTTP(w, req)
		if w.Code != http.StatusAccepted {
			t.Errorf("Trigger %d: expected 202, got %d", i+1, w.Code)
		}
	}

	snap := waitForStatus(t, router, receipt.JobID, model.StatusCompleted)
	if snap.Status != model.StatusCompleted {
		t.Errorf("Expected completed, got %s", snap.Status)
	}
}

func TestStoreEvictsOldest(t *testing.T) {
	s := NewServer(&config.StubConfig{PageCount: 1, StepDelayMS: 1, MaxJobs: 2})
	router := s.Router()

	first := uploadJob(t, router, "a.pdf", "%PDF a")
	uploadJob(t, router, "b.pdf", "%PDF b")
	uploadJob(t, router, "c.pdf", "%PDF c")

	if s.store.count() != 2 {
		t.Errorf("Expected 2 jobs after eviction, got %d", s.store.count())
	}
	if _, ok := s.store.get(first.JobID); ok {
		t.Error("Expected the oldest job to be evicted")
	}
}
