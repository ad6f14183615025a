// Package production drives episode audio jobs end to end: admission,
// the background render and assembly pipeline, and job bookkeeping.
package production

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/castforge-labs/castforge-core/internal/audio"
	"github.com/castforge-labs/castforge-core/internal/bus"
	"github.com/castforge-labs/castforge-core/internal/config"
	"github.com/castforge-labs/castforge-core/internal/faults"
	"github.com/castforge-labs/castforge-core/internal/jobs"
	"github.com/castforge-labs/castforge-core/internal/protocol"
	"github.com/castforge-labs/castforge-core/internal/render"
	"github.com/castforge-labs/castforge-core/internal/script"
)

// ScriptSource resolves a production target to its script text.
type ScriptSource interface {
	ScriptFor(ctx context.Context, targetID string) (string, error)
}

// Orchestrator owns the production job lifecycle. Each submitted job runs
// on its own goroutine; callers observe progress by polling the job store
// or subscribing to bus events.
type Orchestrator struct {
	cfg       config.ProductionConfig
	store     jobs.Store
	scripts   ScriptSource
	renderer  *render.Renderer
	assembler *audio.Assembler
	busClient *bus.Client
	introLoc  string
	outroLoc  string
	log       *slog.Logger
	metrics   *pipelineMetrics

	admit sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOrchestrator(
	cfg config.ProductionConfig,
	audioCfg config.AudioConfig,
	store jobs.Store,
	scripts ScriptSource,
	renderer *render.Renderer,
	assembler *audio.Assembler,
	busClient *bus.Client,
	log *slog.Logger,
) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	componentLog := log.With(slog.String("component", "production"))
	return &Orchestrator{
		cfg:       cfg,
		store:     store,
		scripts:   scripts,
		renderer:  renderer,
		assembler: assembler,
		busClient: busClient,
		introLoc:  audioCfg.IntroPath,
		outroLoc:  audioCfg.OutroPath,
		log:       componentLog,
		metrics:   newPipelineMetrics(componentLog),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Submit admits a production job for the target. If a non-terminal job
// already exists for the same target its snapshot is returned instead of
// starting a duplicate; the bool reports whether a new job was started.
func (o *Orchestrator) Submit(ctx context.Context, targetID string) (*jobs.Job, bool, error) {
	scriptText, err := o.scripts.ScriptFor(ctx, targetID)
	if err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(scriptText) == "" {
		return nil, false, faults.Validation("target %s has no script", targetID)
	}

	// Admission and job creation are serialized so two concurrent submits
	// for the same target cannot both pass the non-terminal scan.
	o.admit.Lock()
	defer o.admit.Unlock()

	existing, err := o.store.ListByTarget(ctx, targetID)
	if err != nil {
		return nil, false, err
	}
	for _, j := range existing {
		if !j.Status.Terminal() {
			o.log.Info("job already in flight, returning existing",
				slog.String("target", targetID),
				slog.String("job", j.ID))
			return j, false, nil
		}
	}

	now := time.Now().UTC()
	job := &jobs.Job{
		ID:        uuid.NewString(),
		TargetID:  targetID,
		Status:    jobs.StatusPending,
		Progress:  0,
		Message:   "Audio generation queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.store.Create(ctx, job); err != nil {
		return nil, false, err
	}

	o.metrics.jobStarted(ctx)
	o.publish(protocol.SubjectJobSubmitted, protocol.JobEvent{
		JobID:     job.ID,
		TargetID:  job.TargetID,
		Status:    string(job.Status),
		Progress:  job.Progress,
		Message:   job.Message,
		Timestamp: now,
	})
	o.log.Info("job submitted", slog.String("target", targetID), slog.String("job", job.ID))

	o.wg.Add(1)
	go o.run(job.Clone(), scriptText)

	return job, true, nil
}

// run executes the pipeline for one job. It uses the orchestrator's own
// context so submitted jobs survive the HTTP request that started them,
// and converts panics into failed jobs rather than crashing the daemon.
func (o *Orchestrator) run(job *jobs.Job, scriptText string) {
	defer o.wg.Done()
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("pipeline panic", slog.String("job", job.ID), slog.Any("panic", r))
			o.fail(job, started, faults.Internal(fmt.Sprintf("pipeline panic: %v", r), nil))
		}
	}()

	ctx := o.ctx

	o.transition(ctx, job, jobs.StatusGenerating, 10, "Generating speech segments")

	utterances := script.ParseScript(scriptText)
	if len(utterances) == 0 {
		o.fail(job, started, faults.Validation("script contains no speaker dialogue"))
		return
	}

	renderCtx, cancelRender := context.WithTimeout(ctx, time.Duration(o.cfg.RenderTimeoutMS)*time.Millisecond)
	segments, err := o.renderer.Render(renderCtx, job.TargetID, utterances)
	cancelRender()
	if err != nil {
		o.fail(job, started, err)
		return
	}
	o.transition(ctx, job, jobs.StatusGenerating, 60, fmt.Sprintf("Generated %d audio segments", len(segments)))

	o.transition(ctx, job, jobs.StatusProcessing, 70, "Assembling final episode audio")

	locations := make([]string, len(segments))
	for i, seg := range segments {
		locations[i] = seg.Location
	}
	assembleCtx, cancelAssemble := context.WithTimeout(ctx, time.Duration(o.cfg.AssembleTimeoutMS)*time.Millisecond)
	result, err := o.assembler.Assemble(assembleCtx, job.TargetID, locations, o.introLoc, o.outroLoc)
	cancelAssemble()
	if err != nil {
		o.fail(job, started, err)
		return
	}

	job.Status = jobs.StatusComplete
	job.Progress = 100
	job.Message = "Audio generation complete"
	job.Result = &jobs.Result{
		Location:        result.Location,
		DurationSeconds: result.DurationSeconds,
		SegmentCount:    result.SegmentCount,
		FileSizeMB:      result.FileSizeMB,
	}
	job.UpdatedAt = time.Now().UTC()
	// Terminal writes must land even when the daemon is shutting down.
	if err := o.store.Update(context.WithoutCancel(ctx), job); err != nil {
		o.log.Error("failed to persist completed job", slog.String("job", job.ID), slog.String("error", err.Error()))
	}

	o.metrics.jobCompleted(ctx, time.Since(started).Seconds())
	o.publish(protocol.SubjectJobComplete, protocol.JobResult{
		JobID:           job.ID,
		TargetID:        job.TargetID,
		Location:        result.Location,
		DurationSeconds: result.DurationSeconds,
		SegmentCount:    result.SegmentCount,
		FileSizeMB:      result.FileSizeMB,
	})
	o.log.Info("job complete",
		slog.String("job", job.ID),
		slog.String("target", job.TargetID),
		slog.Int("duration_s", result.DurationSeconds),
		slog.Duration("elapsed", time.Since(started)))
}

func (o *Orchestrator) transition(ctx context.Context, job *jobs.Job, status jobs.Status, progress int, message string) {
	job.Status = status
	job.Progress = progress
	job.Message = message
	job.UpdatedAt = time.Now().UTC()
	if err := o.store.Update(ctx, job); err != nil {
		o.log.Error("failed to persist job transition",
			slog.String("job", job.ID),
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
	}
	o.publish(protocol.SubjectJobProgress, protocol.JobEvent{
		JobID:     job.ID,
		TargetID:  job.TargetID,
		Status:    string(status),
		Progress:  progress,
		Message:   message,
		Timestamp: job.UpdatedAt,
	})
	o.log.Debug("job transition",
		slog.String("job", job.ID),
		slog.String("status", string(status)),
		slog.Int("progress", progress))
}

func (o *Orchestrator) fail(job *jobs.Job, started time.Time, cause error) {
	job.Status = jobs.StatusFailed
	job.Message = cause.Error()
	job.UpdatedAt = time.Now().UTC()
	if err := o.store.Update(context.WithoutCancel(o.ctx), job); err != nil {
		o.log.Error("failed to persist failed job", slog.String("job", job.ID), slog.String("error", err.Error()))
	}
	o.metrics.jobFailed(o.ctx, time.Since(started).Seconds())
	o.publish(protocol.SubjectJobFailed, protocol.JobEvent{
		JobID:     job.ID,
		TargetID:  job.TargetID,
		Status:    string(jobs.StatusFailed),
		Progress:  job.Progress,
		Message:   job.Message,
		Timestamp: job.UpdatedAt,
	})
	o.log.Warn("job failed",
		slog.String("job", job.ID),
		slog.String("target", job.TargetID),
		slog.String("kind", faults.KindOf(cause).String()),
		slog.String("error", cause.Error()))
}

func (o *Orchestrator) publish(subject string, payload any) {
	if err := o.busClient.PublishJSON(subject, payload); err != nil {
		o.log.Warn("event publish failed", slog.String("subject", subject), slog.String("error", err.Error()))
	}
}

// GetJob returns a snapshot of one job.
func (o *Orchestrator) GetJob(ctx context.Context, id string) (*jobs.Job, error) {
	return o.store.Get(ctx, id)
}

// LatestJobForTarget returns the newest job for a target.
func (o *Orchestrator) LatestJobForTarget(ctx context.Context, targetID string) (*jobs.Job, error) {
	list, err := o.store.ListByTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, faults.NotFound("no jobs for target %s", targetID)
	}
	return list[0], nil
}

// ListJobs returns snapshots of all jobs, newest first.
func (o *Orchestrator) ListJobs(ctx context.Context) ([]*jobs.Job, error) {
	return o.store.List(ctx)
}

// Finalize re-masters the episode synchronously from segments already in
// storage. It is refused while a job for the target is in flight so the
// pipeline and a manual run never race on the same artifacts.
func (o *Orchestrator) Finalize(ctx context.Context, targetID string) (*jobs.Result, error) {
	o.admit.Lock()
	existing, err := o.store.ListByTarget(ctx, targetID)
	if err != nil {
		o.admit.Unlock()
		return nil, err
	}
	for _, j := range existing {
		if !j.Status.Terminal() {
			o.admit.Unlock()
			return nil, faults.Validation("job %s for target %s is still %s", j.ID, targetID, j.Status)
		}
	}
	o.admit.Unlock()

	assembleCtx, cancel := context.WithTimeout(ctx, time.Duration(o.cfg.AssembleTimeoutMS)*time.Millisecond)
	defer cancel()
	result, err := o.assembler.AssembleStored(assembleCtx, targetID)
	if err != nil {
		return nil, err
	}
	o.log.Info("manual finalize complete",
		slog.String("target", targetID),
		slog.Int("segments", result.SegmentCount))
	return &jobs.Result{
		Location:        result.Location,
		DurationSeconds: result.DurationSeconds,
		SegmentCount:    result.SegmentCount,
		FileSizeMB:      result.FileSizeMB,
	}, nil
}

// DeleteJob removes a job record. Non-terminal jobs are refused so the
// one-job-per-target admission rule cannot be bypassed mid-run.
func (o *Orchestrator) DeleteJob(ctx context.Context, id string) error {
	o.admit.Lock()
	defer o.admit.Unlock()
	job, err := o.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !job.Status.Terminal() {
		return faults.Validation("job %s is still %s", id, job.Status)
	}
	return o.store.Delete(ctx, id)
}

// Close stops accepting work and waits for in-flight jobs to finish or
// observe cancellation.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}
