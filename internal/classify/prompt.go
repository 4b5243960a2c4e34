package classify

import "strings"

// System roles.
const (
	AssistantRole     = "You are a helpful assistant."
	LeaseReviewerRole = "You are an expert in writing and reviewing commercial real estate lease contracts with a specialty in permitted use."
)

// Policy names, also used as metric labels.
const (
	PolicyCoffeeAllowed = "coffee_allowed"
	PolicySummary       = "summary"
	PolicyProhibitedUse = "prohibited_use"
	PolicyUseClause     = "use_clause"
)

const subjectPlaceholder = "{subject}"

const (
	DefaultSubject = "coffee"

	DefaultAllowedPrompt = `Based solely on the exact contractual language of the following lease clause, is the tenant allowed to sell {subject}? Answer with a single word: Yes or No.`

	DefaultSummaryPrompt = `Summarize the following lease clause in one or two sentences, focusing on what it says about the tenant selling {subject}.`

	DefaultProhibitedUsePrompt = `Determine if the lease prohibits the sale of coffee and/or espresso products at the location based solely on the exact contractual language. Return the result of the analysis on the ability to sell coffee and/or espresso (Prohibited, Not Prohibited).`

	DefaultUseClausePrompt = `Determine what the language here is stating about coffee as it relates to the tenant selling coffee, based solely on the exact contractual language. Return the result of the analysis on the ability to sell coffee and/or espresso. Return either Allowed, Prohibited, Inconclusive.`

	DefaultAllowedMaxTokens = 3
	DefaultSummaryMaxTokens = 100
	DefaultClauseMaxTokens  = 10
)

// Policy is a named classifier configuration.
type Policy struct {
	Name         string
	System       string
	Prompt       string
	MaxTokens    int
	Temperature  *float64 // nil leaves the provider default
	Normalize    Normalizer
	FailureLabel Label
}

// UserMessage joins the prompt and the clause text.
func (p Policy) UserMessage(text string) string {
	return p.Prompt + "\n\n" + text
}

// Prompts holds the configurable prompt text and limits of all policies.
type Prompts struct {
	Subject          string
	Allowed          string
	Summary          string
	ProhibitedUse    string
	UseClause        string
	AllowedMaxTokens int
	SummaryMaxTokens int
	ClauseMaxTokens  int
}

// DefaultPrompts returns the built-in prompt set.
func DefaultPrompts() Prompts {
	return Prompts{
		Subject:          DefaultSubject,
		Allowed:          DefaultAllowedPrompt,
		Summary:          DefaultSummaryPrompt,
		ProhibitedUse:    DefaultProhibitedUsePrompt,
		UseClause:        DefaultUseClausePrompt,
		AllowedMaxTokens: DefaultAllowedMaxTokens,
		SummaryMaxTokens: DefaultSummaryMaxTokens,
		ClauseMaxTokens:  DefaultClauseMaxTokens,
	}
}

// WithDefaults fills empty fields from DefaultPrompts.
func (p Prompts) WithDefaults() Prompts {
	def := DefaultPrompts()
	if strings.TrimSpace(p.Subject) == "" {
		p.Subject = def.Subject
	}
	if strings.TrimSpace(p.Allowed) == "" {
		p.Allowed = def.Allowed
	}
	if strings.TrimSpace(p.Summary) == "" {
		p.Summary = def.Summary
	}
	if strings.TrimSpace(p.ProhibitedUse) == "" {
		p.ProhibitedUse = def.ProhibitedUse
	}
	if strings.TrimSpace(p.UseClause) == "" {
		p.UseClause = def.UseClause
	}
	if p.AllowedMaxTokens <= 0 {
		p.AllowedMaxTokens = def.AllowedMaxTokens
	}
	if p.SummaryMaxTokens <= 0 {
		p.SummaryMaxTokens = def.SummaryMaxTokens
	}
	if p.ClauseMaxTokens <= 0 {
		p.ClauseMaxTokens = def.ClauseMaxTokens
	}
	return p
}

// CoffeeAllowed is the yes/no policy used in per-row mode.
func (p Prompts) CoffeeAllowed() Policy {
	return Policy{
		Name:         PolicyCoffeeAllowed,
		System:       AssistantRole,
		Prompt:       withSubject(p.Allowed, p.Subject),
		MaxTokens:    p.AllowedMaxTokens,
		Temperature:  zeroTemperature(),
		Normalize:    YesNo,
		FailureLabel: LabelError,
	}
}

// Summary is the free-text summarization policy used in per-row mode.
func (p Prompts) Summary() Policy {
	return Policy{
		Name:         PolicySummary,
		System:       AssistantRole,
		Prompt:       withSubject(p.Summary, p.Subject),
		MaxTokens:    p.SummaryMaxTokens,
		Normalize:    Verbatim,
		FailureLabel: "",
	}
}

// ProhibitedUse classifies "Prohibited Use" clauses in grouped mode.
func (p Prompts) ProhibitedUse() Policy {
	return Policy{
		Name:         PolicyProhibitedUse,
		System:       LeaseReviewerRole,
		Prompt:       p.ProhibitedUse,
		MaxTokens:    p.ClauseMaxTokens,
		Temperature:  zeroTemperature(),
		Normalize:    Verbatim,
		FailureLabel: LabelError,
	}
}

// UseClause classifies "Use" clauses in grouped mode.
func (p Prompts) UseClause() Policy {
	return Policy{
		Name:         PolicyUseClause,
		System:       LeaseReviewerRole,
		Prompt:       p.UseClause,
		MaxTokens:    p.ClauseMaxTokens,
		Temperature:  zeroTemperature(),
		Normalize:    Verbatim,
		FailureLabel: LabelError,
	}
}

func withSubject(prompt, subject string) string {
	return strings.ReplaceAll(prompt, subjectPlaceholder, subject)
}

func zeroTemperature() *float64 {
	t := 0.0
	return &t
}
