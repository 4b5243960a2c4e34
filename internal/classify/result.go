package classify

// Label is a normalized classification outcome.
type Label string

// Sentinel labels. Open-label policies may return any other text verbatim.
const (
	LabelYes       Label = "Yes"
	LabelNo        Label = "No"
	LabelUncertain Label = "Uncertain"
	LabelError     Label = "Error"
	LabelNotFound  Label = "Not Found"
)

// Result is the typed outcome of one classification call. Err is set exactly
// when the completion service failed; Label then carries the policy's
// failure label.
type Result struct {
	Policy string
	Label  Label
	Raw    string
	Err    error
}

// Failed reports whether the completion call failed.
func (r Result) Failed() bool {
	return r.Err != nil
}

// NotFound is the result for a clause type absent from a group.
func NotFound(policy string) Result {
	return Result{Policy: policy, Label: LabelNotFound}
}
