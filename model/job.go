package model

import "fmt"

// JobStatus is the lifecycle state reported by the Ink API for a job.
type JobStatus string

const (
	StatusUploaded   JobStatus = "uploaded"
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether the server will never change this status again.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobType is the input file format accepted by the pipeline.
type JobType string

const (
	TypePDF   JobType = "pdf"
	TypeComic JobType = "comic" // CBR/CBZ
)

// OutputFormat is the format the processed result is exported as.
type OutputFormat string

const (
	FormatPDF OutputFormat = "pdf"
	FormatCBZ OutputFormat = "cbz"
)

// ContentType returns the media type the artifact is served with.
func (f OutputFormat) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatCBZ:
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}

// Pipeline stage names as reported in progress_stage. The set is open:
// the client must tolerate values it does not know about.
const (
	StageImport    = "import"
	StageOCR       = "ocr"
	StageTranslate = "translate"
	StageRender    = "render"
	StageExport    = "export"
	StageCompleted = "completed"
)

// SubmitReceipt is the response body of a successful job submission.
type SubmitReceipt struct {
	JobID        string       `json:"job_id"`
	Status       JobStatus    `json:"status"`
	Type         JobType      `json:"type"`
	OutputFormat OutputFormat `json:"output_format"`
}

// Snapshot is one status observation of a job. Each snapshot entirely
// replaces the previous one; fields are never merged across polls.
// The timing_* and qa_* fields are pass-through diagnostics filled in by
// the server once the job completes; the client surfaces them verbatim.
type Snapshot struct {
	JobID        string       `json:"job_id"`
	Status       JobStatus    `json:"status"`
	Type         JobType      `json:"type,omitempty"`
	OutputFormat OutputFormat `json:"output_format,omitempty"`

	NumPages     int    `json:"num_pages,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	OutputPath   string `json:"output_path,omitempty"`

	ProgressCurrent int    `json:"progress_current"`
	ProgressTotal   int    `json:"progress_total,omitempty"`
	ProgressStage   string `json:"progress_stage,omitempty"`

	PagesTotal   int `json:"pages_total,omitempty"`
	RegionsTotal int `json:"regions_total,omitempty"`

	TimingImportMS    int64 `json:"timing_import_ms,omitempty"`
	TimingOCRMS       int64 `json:"timing_ocr_ms,omitempty"`
	TimingTranslateMS int64 `json:"timing_translate_ms,omitempty"`
	TimingRenderMS    int64 `json:"timing_render_ms,omitempty"`
	TimingExportMS    int64 `json:"timing_export_ms,omitempty"`

	QARetryCount    int `json:"qa_retry_count,omitempty"`
	QAOverflowCount int `json:"qa_overflow_count,omitempty"`
}

// ArtifactFilename is the default filename for a downloaded artifact,
// mirroring the server's download naming rule.
func ArtifactFilename(jobID string, format OutputFormat) string {
	switch format {
	case FormatCBZ:
		return fmt.Sprintf("%s.cbz", jobID)
	default:
		return fmt.Sprintf("%s.pdf", jobID)
	}
}
