package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/clausecheck/internal/sheet"
)

// Stage names a step of a run.
type Stage string

const (
	StageLoad      Stage = "load"
	StageConfigure Stage = "configure"
	StageProcess   Stage = "process"
	StageWrite     Stage = "write"
)

// StageError is a fatal run error tagged with the step that failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage of err, or "" when err carries none.
func FailedStage(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// Source supplies an input table file.
type Source interface {
	Filename() string
	Open() (io.ReadCloser, error)
}

// FileSource reads a table from disk.
type FileSource struct {
	Path string
}

func (s FileSource) Filename() string { return filepath.Base(s.Path) }

func (s FileSource) Open() (io.ReadCloser, error) {
	return os.Open(s.Path)
}

// UploadSource reads a table from bytes already in memory.
type UploadSource struct {
	Name string
	Data []byte
}

func (s UploadSource) Filename() string { return s.Name }

func (s UploadSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.Data)), nil
}

// Sink receives the serialized output table.
type Sink struct {
	W      io.Writer
	Path   string // used when W is nil; created only at the write stage
	Format sheet.Format
}

// FileSink targets path, choosing the format from its extension.
func FileSink(path string) Sink {
	return Sink{Path: path, Format: sheet.FormatForFile(path)}
}

// Result is what a successful run produced.
type Result struct {
	Table  *sheet.Table
	Output *sheet.Output
	Report Report
}

// Runner chains load, column check, processing and write.
type Runner struct {
	processor *Processor
	log       *slog.Logger
}

func NewRunner(c Classifier, log *slog.Logger) *Runner {
	return &Runner{
		processor: NewProcessor(c, log),
		log:       log,
	}
}

// Run executes every stage in order. Errors are *StageError.
func (r *Runner) Run(ctx context.Context, src Source, sink Sink, s Settings, progress ProgressFunc) (*Result, error) {
	tbl, err := r.Load(src)
	if err != nil {
		return nil, err
	}
	out, report, err := r.Process(ctx, tbl, s, progress)
	if err != nil {
		return nil, err
	}
	if err := r.Write(out, sink); err != nil {
		return nil, err
	}
	return &Result{Table: tbl, Output: out, Report: report}, nil
}

// Load opens and parses the source.
func (r *Runner) Load(src Source) (*sheet.Table, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: err}
	}
	defer rc.Close()

	tbl, err := sheet.Load(rc, src.Filename())
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: err}
	}
	r.log.Info("table loaded", "file", src.Filename(), "rows", len(tbl.Rows), "columns", len(tbl.Columns))
	return tbl, nil
}

// Process runs the processor; missing columns are reported as a configure
// failure.
func (r *Runner) Process(ctx context.Context, tbl *sheet.Table, s Settings, progress ProgressFunc) (*sheet.Output, Report, error) {
	out, report, err := r.processor.Process(ctx, tbl, s, progress)
	if err != nil {
		var missing *sheet.MissingColumnsError
		if errors.As(err, &missing) {
			return nil, report, &StageError{Stage: StageConfigure, Err: err}
		}
		return nil, report, &StageError{Stage: StageProcess, Err: err}
	}
	return out, report, nil
}

// Write serializes out to the sink.
func (r *Runner) Write(out *sheet.Output, sink Sink) error {
	if sink.W == nil {
		if sink.Path == "" {
			return nil
		}
		return r.writeFile(out, sink)
	}
	if err := sheet.Write(sink.W, out, sink.Format); err != nil {
		return &StageError{Stage: StageWrite, Err: err}
	}
	return nil
}

// WriteFile writes out to path, choosing the format from its extension.
func (r *Runner) WriteFile(out *sheet.Output, path string) error {
	return r.Write(out, FileSink(path))
}

func (r *Runner) writeFile(out *sheet.Output, sink Sink) error {
	f, err := os.Create(sink.Path)
	if err != nil {
		return &StageError{Stage: StageWrite, Err: err}
	}
	if err := sheet.Write(f, out, sink.Format); err != nil {
		f.Close()
		return &StageError{Stage: StageWrite, Err: err}
	}
	if err := f.Close(); err != nil {
		return &StageError{Stage: StageWrite, Err: err}
	}
	r.log.Info("output written", "path", sink.Path, "rows", len(out.Rows))
	return nil
}
