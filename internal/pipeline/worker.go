package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/dgallion1/clausecheck/internal/sheet"
)

// Worker processes one job at a time.
type Worker struct {
	runner   *Runner
	recorder JobRecorder
	log      *slog.Logger
}

func NewWorker(runner *Runner, recorder JobRecorder, log *slog.Logger) *Worker {
	return &Worker{
		runner:   runner,
		recorder: recorder,
		log:      log,
	}
}

// Process runs load, classification and write for a job, updating its
// status between stages.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	settings := job.Settings()
	start := time.Now()
	if w.recorder != nil {
		w.recorder.StartJob()
	}

	err := w.run(ctx, log, job, settings)
	if w.recorder != nil {
		w.recorder.FinishJob(string(settings.Mode), time.Since(start), err)
	}
	if err != nil {
		log.Error("job failed", "stage", FailedStage(err), "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, string(FailedStage(err)))
		return
	}
	log.Info("job completed", "duration_ms", time.Since(start).Milliseconds())
}

func (w *Worker) run(ctx context.Context, log *slog.Logger, job *Job, settings Settings) error {
	job.SetStatus(StatusLoading, string(StageLoad))
	tbl, err := w.runner.Load(UploadSource{Name: job.Filename, Data: job.FileData()})
	if err != nil {
		return err
	}

	job.SetStatus(StatusClassifying, string(StageProcess))
	out, report, err := w.runner.Process(ctx, tbl, settings, job.SetProgress)
	if err != nil {
		return err
	}
	if report.Failures > 0 {
		log.Warn("classification calls failed", "failures", report.Failures, "calls", report.Calls)
	}

	job.SetStatus(StatusWriting, string(StageWrite))
	var buf bytes.Buffer
	if err := w.runner.Write(out, Sink{W: &buf, Format: sheet.FormatXLSX}); err != nil {
		return err
	}

	job.Complete(out, report, buf.Bytes())
	return nil
}
