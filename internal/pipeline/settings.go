package pipeline

import (
	"fmt"
	"strings"

	"github.com/dgallion1/clausecheck/internal/classify"
	"github.com/dgallion1/clausecheck/internal/config"
)

// Mode selects how the table is walked.
type Mode string

const (
	// ModeRows emits one output row per (filtered) input row.
	ModeRows Mode = "rows"
	// ModeGroups emits one output row per location group.
	ModeGroups Mode = "groups"
)

// ParseMode accepts the mode names and a couple of aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rows", "row", "":
		return ModeRows, nil
	case "groups", "group", "grouped":
		return ModeGroups, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want rows or groups)", s)
	}
}

// Output column names.
const (
	ColLocation      = "Location Name"
	ColCoffeeAllowed = "Coffee Allowed"
	ColSummary       = "Summary"
	ColProhibitedUse = "Prohibited Use"
	ColUseClause     = "Use Clause"
)

// Clause type values matched exactly in grouped mode.
const (
	ClauseTypeProhibitedUse = "Prohibited Use"
	ClauseTypeUse           = "Use"
)

// Default input column names.
const (
	DefaultLocationColumn   = "LOCATION"
	DefaultClauseTypeColumn = "Critical Clause Type"
	DefaultClauseColumn     = "Critical Clause Language"
)

// Settings is the per-run analysis configuration.
type Settings struct {
	Mode             Mode
	LocationColumn   string
	ClauseTypeColumn string
	ClauseColumn     string
	// SearchKeyword filters rows in ModeRows; empty keeps every row.
	SearchKeyword string
	Prompts       classify.Prompts
}

// WithDefaults fills empty fields.
func (s Settings) WithDefaults() Settings {
	if s.Mode == "" {
		s.Mode = ModeRows
	}
	if strings.TrimSpace(s.LocationColumn) == "" {
		s.LocationColumn = DefaultLocationColumn
	}
	if strings.TrimSpace(s.ClauseTypeColumn) == "" {
		s.ClauseTypeColumn = DefaultClauseTypeColumn
	}
	if strings.TrimSpace(s.ClauseColumn) == "" {
		s.ClauseColumn = DefaultClauseColumn
	}
	s.Prompts = s.Prompts.WithDefaults()
	return s
}

// RequiredColumns lists the input columns the mode reads.
func (s Settings) RequiredColumns() []string {
	if s.Mode == ModeGroups {
		return []string{s.LocationColumn, s.ClauseTypeColumn, s.ClauseColumn}
	}
	return []string{s.LocationColumn, s.ClauseColumn}
}

// OutputHeader is the column set of the mode's output table.
func (s Settings) OutputHeader() []string {
	if s.Mode == ModeGroups {
		return []string{ColLocation, ColProhibitedUse, ColUseClause}
	}
	return []string{ColLocation, ColCoffeeAllowed, ColSummary}
}

// SettingsFromConfig converts the analysis section of the configuration.
func SettingsFromConfig(a config.Analysis) (Settings, error) {
	mode, err := ParseMode(a.Mode)
	if err != nil {
		return Settings{}, err
	}
	s := Settings{
		Mode:             mode,
		LocationColumn:   a.LocationColumn,
		ClauseTypeColumn: a.ClauseTypeColumn,
		ClauseColumn:     a.ClauseColumn,
		SearchKeyword:    a.SearchKeyword,
		Prompts: classify.Prompts{
			Subject:          a.Subject,
			Allowed:          a.AllowedPrompt,
			Summary:          a.SummaryPrompt,
			ProhibitedUse:    a.ProhibitedUsePrompt,
			UseClause:        a.UseClausePrompt,
			AllowedMaxTokens: a.AllowedMaxTokens,
			SummaryMaxTokens: a.SummaryMaxTokens,
			ClauseMaxTokens:  a.ClauseMaxTokens,
		},
	}
	return s.WithDefaults(), nil
}
