// Package workflow drives a job through its whole lifecycle: submit the
// input, trigger processing, observe it to a terminal state and fetch the
// artifact. It owns the job identifier and the latest snapshot; the other
// packages only see what they are handed.
package workflow

import (
	"context"
	"io"

	"github.com/aimariscal90-maker/ink-v1/model"
	"github.com/aimariscal90-maker/ink-v1/pkg/logger"
	"github.com/aimariscal90-maker/ink-v1/poller"
)

// ClientState is where the controller currently is in the lifecycle.
// A poll session may only be active while the state is waiting.
type ClientState string

const (
	StateIdle        ClientState = "idle"
	StateUploading   ClientState = "uploading"
	StateTriggering  ClientState = "triggering"
	StateWaiting     ClientState = "waiting"
	StateDownloading ClientState = "downloading"
	StateDone        ClientState = "done"
	StateError       ClientState = "error"
)

// API is the transport surface the controller drives. service.InkService
// implements it.
type API interface {
	Submit(ctx context.Context, filename string, r io.Reader) (*model.SubmitReceipt, error)
	Trigger(ctx context.Context, jobID string) (*model.Snapshot, error)
	GetStatus(ctx context.Context, jobID string) (*model.Snapshot, error)
	Download(ctx context.Context, jobID string) ([]byte, error)
}

// Result is what an entry point hands back to the caller. Artifact is
// non-nil exactly when State is done. State waiting means the job is still
// in flight server-side and may be resumed with ContinueWaiting.
type Result struct {
	JobID    string
	State    ClientState
	Snapshot *model.Snapshot
	Artifact []byte
}

// Controller serializes the lifecycle strictly: submit, trigger, poll,
// download, one step at a time, never in parallel for the same job.
type Controller struct {
	api      API
	pollCfg  poller.Config
	registry *Registry

	state ClientState
	jobID string
	last  *model.Snapshot
}

func NewController(api API, pollCfg poller.Config, registry *Registry) *Controller {
	if registry == nil {
		registry = NewRegistry(0)
	}
	return &Controller{
		api:      api,
		pollCfg:  pollCfg,
		registry: registry,
		state:    StateIdle,
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() ClientState {
	return c.state
}

// JobID returns the identifier of the job being driven, if any. It stays
// set across a timeout so the caller can resume.
func (c *Controller) JobID() string {
	return c.jobID
}

// LastSnapshot returns the most recent observation, if any.
func (c *Controller) LastSnapshot() *model.Snapshot {
	return c.last
}

// Registry exposes the session job registry, e.g. for listing.
func (c *Controller) Registry() *Registry {
	return c.registry
}

// Run walks the full path: submit the file, trigger processing, poll until
// a terminal state and download the artifact on completion. On a timeout
// it returns a waiting Result without error; the job ID stays set so the
// caller can resume with ContinueWaiting.
func (c *Controller) Run(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	c.state = StateUploading

	receipt, err := c.api.Submit(ctx, filename, r)
	if err != nil {
		c.state = StateError
		return nil, err
	}

	c.jobID = receipt.JobID
	c.registry.Track(receipt)
	ctx = logger.WithJob(ctx, receipt.JobID)
	logger.Info(ctx, "job submitted", "type", receipt.Type, "output_format", receipt.OutputFormat)

	c.state = StateTriggering
	snap, err := c.api.Trigger(ctx, receipt.JobID)
	if err != nil {
		c.state = StateError
		c.registry.Update(c.jobID, nil, StateError)
		return nil, err
	}
	c.observe(snap)

	// Some deployments process small jobs synchronously and answer the
	// trigger with a terminal snapshot already.
	if snap.Status.Terminal() {
		return c.settle(ctx, snap)
	}

	return c.await(ctx)
}

// RefreshOnce performs a single status read outside any poll session. A
// completed job is downloaded right away, a failed one surfaces its error,
// anything else reports waiting with no state change beyond the snapshot.
func (c *Controller) RefreshOnce(ctx context.Context, jobID string) (*Result, error) {
	c.jobID = jobID
	ctx = logger.WithJob(ctx, jobID)

	snap, err := c.api.GetStatus(ctx, jobID)
	if err != nil {
		c.state = StateError
		return nil, err
	}
	c.observe(snap)

	if snap.Status.Terminal() {
		return c.settle(ctx, snap)
	}

	c.state = StateWaiting
	c.registry.Update(jobID, snap, StateWaiting)
	return &Result{JobID: jobID, State: StateWaiting, Snapshot: snap}, nil
}

// ContinueWaiting starts a fresh poll session for an already-submitted
// job, with backoff starting over at its initial delay. It never
// re-submits or re-triggers anything.
func (c *Controller) ContinueWaiting(ctx context.Context, jobID string) (*Result, error) {
	c.jobID = jobID
	return c.await(logger.WithJob(ctx, jobID))
}

// await runs one poll session and maps its outcome onto the lifecycle.
func (c *Controller) await(ctx context.Context) (*Result, error) {
	c.state = StateWaiting
	c.registry.Update(c.jobID, c.last, StateWaiting)

	session := poller.NewSession(c.api, c.pollCfg)
	session.OnSnapshot = func(snap *model.Snapshot) {
		c.observe(snap)
	}

	outcome, err := session.Wait(ctx, c.jobID)
	if err != nil {
		c.state = StateError
		c.registry.Update(c.jobID, c.last, StateError)
		return nil, err
	}

	switch outcome.State {
	case poller.StateCompleted:
		return c.settle(ctx, outcome.Snapshot)

	case poller.StateFailed:
		return c.settle(ctx, outcome.Snapshot)

	default: // timed out; not an error, the job may still finish
		c.state = StateWaiting
		c.registry.Update(c.jobID, c.last, StateWaiting)
		logger.Info(ctx, "stopped waiting, job still processing",
			"attempts", outcome.Attempts, "elapsed", outcome.Elapsed)
		return &Result{JobID: c.jobID, State: StateWaiting, Snapshot: c.last}, nil
	}
}

// settle handles a terminal snapshot: download on completed, surface the
// failure on failed.
func (c *Controller) settle(ctx context.Context, snap *model.Snapshot) (*Result, error) {
	if snap.Status == model.StatusFailed {
		msg := snap.ErrorMessage
		if msg == "" {
			msg = genericFailureMessage
		}
		err := &JobFailedError{JobID: c.jobID, Message: msg}
		c.state = StateError
		c.registry.Update(c.jobID, snap, StateError)
		logger.Error(ctx, "job failed", "error", msg)
		return nil, err
	}

	c.state = StateDownloading
	c.registry.Update(c.jobID, snap, StateDownloading)

	artifact, err := c.api.Download(ctx, c.jobID)
	if err != nil {
		c.state = StateError
		c.registry.Update(c.jobID, snap, StateError)
		return nil, err
	}

	c.state = StateDone
	c.registry.Update(c.jobID, snap, StateDone)
	logger.Info(ctx, "artifact downloaded",
		"bytes", len(artifact),
		"num_pages", snap.NumPages,
		"qa_retry_count", snap.QARetryCount,
		"qa_overflow_count", snap.QAOverflowCount)

	return &Result{JobID: c.jobID, State: StateDone, Snapshot: snap, Artifact: artifact}, nil
}

// observe replaces the latest snapshot whole; snapshots are never merged.
func (c *Controller) observe(snap *model.Snapshot) {
	if snap == nil {
		return
	}
	c.last = snap
	c.registry.Update(c.jobID, snap, c.state)
}
