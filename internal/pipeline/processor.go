package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/clausecheck/internal/classify"
	"github.com/dgallion1/clausecheck/internal/sheet"
)

// Classifier runs one policy over one clause text.
type Classifier interface {
	Classify(ctx context.Context, p classify.Policy, text string) classify.Result
}

// ProgressFunc is called after each row or group with units done and total.
type ProgressFunc func(done, total int)

// Report summarizes one processing run.
type Report struct {
	Mode     Mode `json:"mode"`
	Rows     int  `json:"rows"`
	Skipped  int  `json:"skipped"`
	Unkeyed  int  `json:"unkeyed"`
	Groups   int  `json:"groups"`
	Emitted  int  `json:"emitted"`
	Calls    int  `json:"calls"`
	Failures int  `json:"failures"`
}

func (r *Report) count(res classify.Result) classify.Result {
	r.Calls++
	if res.Failed() {
		r.Failures++
	}
	return res
}

// Processor walks a table and classifies clauses one at a time.
type Processor struct {
	classifier Classifier
	log        *slog.Logger
}

func NewProcessor(c Classifier, log *slog.Logger) *Processor {
	return &Processor{classifier: c, log: log}
}

// Process checks the configured columns against the table and runs the
// selected mode. Only a configuration problem or cancellation returns an
// error; service failures are recorded in the output.
func (p *Processor) Process(ctx context.Context, tbl *sheet.Table, s Settings, progress ProgressFunc) (*sheet.Output, Report, error) {
	s = s.WithDefaults()
	if err := tbl.RequireColumns(s.RequiredColumns()...); err != nil {
		return nil, Report{Mode: s.Mode}, err
	}
	switch s.Mode {
	case ModeRows:
		return p.processRows(ctx, tbl, s, progress)
	case ModeGroups:
		return p.processGroups(ctx, tbl, s, progress)
	default:
		return nil, Report{Mode: s.Mode}, fmt.Errorf("unknown mode %q", s.Mode)
	}
}

func (p *Processor) processRows(ctx context.Context, tbl *sheet.Table, s Settings, progress ProgressFunc) (*sheet.Output, Report, error) {
	out := sheet.NewOutput(s.OutputHeader()...)
	report := Report{Mode: ModeRows, Rows: len(tbl.Rows)}
	allowedPolicy := s.Prompts.CoffeeAllowed()
	summaryPolicy := s.Prompts.Summary()
	keyword := strings.ToLower(strings.TrimSpace(s.SearchKeyword))

	for i, row := range tbl.Rows {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		text := row.Text(s.ClauseColumn)
		if keyword != "" && !strings.Contains(strings.ToLower(text), keyword) {
			report.Skipped++
			notify(progress, i+1, len(tbl.Rows))
			continue
		}

		location, _ := row.Get(s.LocationColumn)
		allowed := report.count(p.classifier.Classify(ctx, allowedPolicy, text))
		summary := report.count(p.classifier.Classify(ctx, summaryPolicy, text))

		out.Append(sheet.OutputRow{
			{Name: ColLocation, Value: location.Value()},
			{Name: ColCoffeeAllowed, Value: string(allowed.Label)},
			{Name: ColSummary, Value: string(summary.Label)},
		})
		report.Emitted++
		notify(progress, i+1, len(tbl.Rows))
	}

	p.log.Info("row processing complete",
		"rows", report.Rows, "skipped", report.Skipped, "emitted", report.Emitted,
		"calls", report.Calls, "failures", report.Failures)
	return out, report, nil
}

func (p *Processor) processGroups(ctx context.Context, tbl *sheet.Table, s Settings, progress ProgressFunc) (*sheet.Output, Report, error) {
	out := sheet.NewOutput(s.OutputHeader()...)
	groups, unkeyed := Partition(tbl.Rows, s.LocationColumn)
	report := Report{Mode: ModeGroups, Rows: len(tbl.Rows), Groups: len(groups), Unkeyed: len(unkeyed)}
	if len(unkeyed) > 0 {
		p.log.Warn("rows without location skipped", "column", s.LocationColumn, "rows", len(unkeyed))
	}

	prohibitedPolicy := s.Prompts.ProhibitedUse()
	usePolicy := s.Prompts.UseClause()

	for i, g := range groups {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		prohibited := p.classifyFirst(ctx, &report, g, s, ClauseTypeProhibitedUse, prohibitedPolicy)
		use := p.classifyFirst(ctx, &report, g, s, ClauseTypeUse, usePolicy)

		out.Append(sheet.OutputRow{
			{Name: ColLocation, Value: g.Key.Value()},
			{Name: ColProhibitedUse, Value: string(prohibited.Label)},
			{Name: ColUseClause, Value: string(use.Label)},
		})
		report.Emitted++
		notify(progress, i+1, len(groups))
	}

	p.log.Info("group processing complete",
		"rows", report.Rows, "groups", report.Groups, "unkeyed", report.Unkeyed,
		"calls", report.Calls, "failures", report.Failures)
	return out, report, nil
}

// classifyFirst classifies the first row of the given clause type. Later rows
// of the same type are ignored.
func (p *Processor) classifyFirst(ctx context.Context, report *Report, g *Group, s Settings, clauseType string, policy classify.Policy) classify.Result {
	row, matches, ok := g.First(s.ClauseTypeColumn, clauseType)
	if !ok {
		return classify.NotFound(policy.Name)
	}
	if matches > 1 {
		p.log.Debug("ignoring later clauses of same type",
			"location", g.Key.Text, "clause_type", clauseType, "ignored", matches-1)
	}
	return report.count(p.classifier.Classify(ctx, policy, row.Text(s.ClauseColumn)))
}

func notify(progress ProgressFunc, done, total int) {
	if progress != nil {
		progress(done, total)
	}
}
