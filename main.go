package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/aimariscal90-maker/ink-v1/config"
	"github.com/aimariscal90-maker/ink-v1/model"
	"github.com/aimariscal90-maker/ink-v1/pkg/logger"
	"github.com/aimariscal90-maker/ink-v1/poller"
	"github.com/aimariscal90-maker/ink-v1/progress"
	"github.com/aimariscal90-maker/ink-v1/service"
	"github.com/aimariscal90-maker/ink-v1/stub"
	"github.com/aimariscal90-maker/ink-v1/workflow"
)

func main() {
	app := kingpin.New("inkctl", "Drive Ink translation jobs: upload, process, watch and download.")
	configPath := app.Flag("config", "Path to a YAML config file.").Short('c').String()
	baseURL := app.Flag("base-url", "Override the API base URL.").String()
	logLevel := app.Flag("log-level", "Override the log level (debug, info, warn, error).").String()

	runCmd := app.Command("run", "Upload a file, process it and download the translated result.")
	runFile := runCmd.Arg("file", "PDF, CBR or CBZ file to translate.").Required().ExistingFile()
	runOutput := runCmd.Flag("output", "Where to write the artifact (defaults to <job-id>.<ext>).").Short('o').String()

	statusCmd := app.Command("status", "Check a job once; downloads the artifact if it finished.")
	statusID := statusCmd.Arg("job-id", "Job identifier returned at submission.").Required().String()
	statusOutput := statusCmd.Flag("output", "Where to write the artifact if the job finished.").Short('o').String()

	resumeCmd := app.Command("resume", "Keep waiting for a job after an earlier timeout.")
	resumeID := resumeCmd.Arg("job-id", "Job identifier returned at submission.").Required().String()
	resumeOutput := resumeCmd.Flag("output", "Where to write the artifact once the job finishes.").Short('o').String()

	stubCmd := app.Command("stub", "Run a local stub of the Ink API for offline development.")

	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.API.BaseURL = *baseURL
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case runCmd.FullCommand():
		err = runJob(ctx, cfg, *runFile, *runOutput)
	case statusCmd.FullCommand():
		err = refreshJob(ctx, cfg, *statusID, *statusOutput)
	case resumeCmd.FullCommand():
		err = resumeJob(ctx, cfg, *resumeID, *resumeOutput)
	case stubCmd.FullCommand():
		err = stub.NewServer(&cfg.Stub).Run(ctx)
	}

	if err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newController(cfg *config.Config) *workflow.Controller {
	api := service.NewInkService(&cfg.API)
	return workflow.NewController(api, pollSettings(&cfg.Poll), workflow.NewRegistry(0))
}

func pollSettings(p *config.PollConfig) poller.Config {
	return poller.Config{
		InitialDelay: time.Duration(p.InitialDelayMS) * time.Millisecond,
		MaxDelay:     time.Duration(p.MaxDelayMS) * time.Millisecond,
		Multiplier:   p.Multiplier,
		Budget:       time.Duration(p.BudgetSeconds) * time.Second,
	}
}

func runJob(ctx context.Context, cfg *config.Config, path, output string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	res, err := newController(cfg).Run(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	return deliver(ctx, cfg, res, output)
}

func refreshJob(ctx context.Context, cfg *config.Config, jobID, output string) error {
	res, err := newController(cfg).RefreshOnce(ctx, jobID)
	if err != nil {
		return err
	}
	return deliver(ctx, cfg, res, output)
}

func resumeJob(ctx context.Context, cfg *config.Config, jobID, output string) error {
	res, err := newController(cfg).ContinueWaiting(ctx, jobID)
	if err != nil {
		return err
	}
	return deliver(ctx, cfg, res, output)
}

// deliver turns a controller result into CLI output: write the artifact
// when the job is done, or tell the user how to come back for it.
func deliver(ctx context.Context, cfg *config.Config, res *workflow.Result, output string) error {
	if res.State != workflow.StateDone {
		if view := progress.Interpret(res.Snapshot); view != nil {
			fmt.Printf("job %s still processing: %s (%d%%)\n", res.JobID, view.Label, view.Percent)
		} else {
			fmt.Printf("job %s still processing\n", res.JobID)
		}
		fmt.Printf("check again with:  inkctl status %s\n", res.JobID)
		fmt.Printf("or keep waiting:   inkctl resume %s\n", res.JobID)
		return nil
	}

	format := model.FormatPDF
	if res.Snapshot != nil && res.Snapshot.OutputFormat != "" {
		format = res.Snapshot.OutputFormat
	}
	if output == "" {
		output = model.ArtifactFilename(res.JobID, format)
	}

	if err := os.WriteFile(output, res.Artifact, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	fmt.Printf("saved %s (%d bytes)\n", output, len(res.Artifact))

	if res.Snapshot != nil && res.Snapshot.Status == model.StatusCompleted {
		fmt.Printf("pages: %d, qa retries: %d, qa overflows: %d\n",
			res.Snapshot.NumPages, res.Snapshot.QARetryCount, res.Snapshot.QAOverflowCount)
	}

	if cfg.Archive.Enabled {
		return archiveArtifact(ctx, cfg, res, format)
	}
	return nil
}

func archiveArtifact(ctx context.Context, cfg *config.Config, res *workflow.Result, format model.OutputFormat) error {
	archive, err := service.NewArchiveService(&cfg.Archive)
	if err != nil {
		return err
	}
	if err := archive.EnsureBucket(ctx); err != nil {
		return err
	}

	objectName, err := archive.StoreArtifact(ctx, res.JobID, res.Artifact, format)
	if err != nil {
		return err
	}
	logger.Info(ctx, "artifact archived", "job_id", res.JobID, "object", objectName)

	url, err := archive.GetPresignedURL(ctx, objectName)
	if err != nil {
		return err
	}
	fmt.Printf("archived to %s\n", url)
	return nil
}
