package stub

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/aimariscal90-maker/ink-v1/model"
)

// pipelineStages in server processing order; export is handled apart
// because it reports no per-page progress.
var pipelineStages = []string{
	model.StageImport,
	model.StageOCR,
	model.StageTranslate,
	model.StageRender,
}

// simulate walks one job through the fake pipeline. Uploads whose filename
// contains "fail" are failed at the OCR stage, which gives client tests a
// deterministic failure path.
func (s *Server) simulate(id string) {
	pages := s.cfg.PageCount
	step := time.Duration(s.cfg.StepDelayMS) * time.Millisecond
	timings := make(map[string]int64, len(pipelineStages)+1)

	filename, ok := s.store.filename(id)
	if !ok {
		return
	}
	wantFailure := strings.Contains(strings.ToLower(filename), "fail")

	for _, stage := range pipelineStages {
		stageStart := time.Now()

		for current := 1; current <= pages; current++ {
			time.Sleep(step)
			s.store.mutate(id, func(j *job) {
				j.snapshot.ProgressStage = stage
				j.snapshot.ProgressCurrent = current
				j.snapshot.ProgressTotal = pages
			})
		}
		timings[stage] = time.Since(stageStart).Milliseconds()

		if stage == model.StageOCR && wantFailure {
			s.store.mutate(id, func(j *job) {
				j.snapshot.Status = model.StatusFailed
				j.snapshot.ErrorMessage = "OCR engine unavailable"
				j.snapshot.ProgressStage = "failed"
			})
			return
		}
	}

	exportStart := time.Now()
	s.store.mutate(id, func(j *job) {
		j.snapshot.ProgressStage = model.StageExport
	})
	time.Sleep(step)
	timings[model.StageExport] = time.Since(exportStart).Milliseconds()

	s.store.mutate(id, func(j *job) {
		j.output = fakeArtifact(id, j.snapshot.OutputFormat, pages)
		j.snapshot.Status = model.StatusCompleted
		j.snapshot.NumPages = pages
		j.snapshot.OutputPath = fmt.Sprintf("data/jobs/%s/output.%s", id, j.snapshot.OutputFormat)
		j.snapshot.ProgressStage = model.StageCompleted
		j.snapshot.ProgressCurrent = pages
		j.snapshot.ProgressTotal = pages
		j.snapshot.PagesTotal = pages
		j.snapshot.RegionsTotal = pages * 12
		j.snapshot.TimingImportMS = timings[model.StageImport]
		j.snapshot.TimingOCRMS = timings[model.StageOCR]
		j.snapshot.TimingTranslateMS = timings[model.StageTranslate]
		j.snapshot.TimingRenderMS = timings[model.StageRender]
		j.snapshot.TimingExportMS = timings[model.StageExport]
		j.snapshot.QARetryCount = pages / 4
		j.snapshot.QAOverflowCount = pages / 8
	})
}

// fakeArtifact produces a payload that looks enough like the advertised
// format for download tests to inspect.
func fakeArtifact(id string, format model.OutputFormat, pages int) []byte {
	var buf bytes.Buffer
	if format == model.FormatCBZ {
		buf.WriteString("PK")
	} else {
		buf.WriteString("%PDF-1.4\n")
	}
	fmt.Fprintf(&buf, "%% stub artifact job=%s pages=%d\n", id, pages)
	return buf.Bytes()
}
