package domain

import "strings"

// Label is the Jury's classification of a claim.
type Label string

// Verdict labels. LabelUndetermined is used when the Jury's output could not
// be parsed into one of the other two.
const (
	LabelFaithful     Label = "FAITHFUL"
	LabelMutation     Label = "MUTATION"
	LabelUndetermined Label = "UNDETERMINED"
)

// ParseLabel maps s to a Label, case-insensitively. Anything other than
// FAITHFUL or MUTATION yields LabelUndetermined.
func ParseLabel(s string) Label {
	switch Label(strings.ToUpper(strings.TrimSpace(s))) {
	case LabelFaithful:
		return LabelFaithful
	case LabelMutation:
		return LabelMutation
	default:
		return LabelUndetermined
	}
}

// Decided reports whether the label is FAITHFUL or MUTATION.
func (l Label) Decided() bool { return l == LabelFaithful || l == LabelMutation }

// Confidence bounds, in percent.
const (
	MinConfidence = 0
	MaxConfidence = 100
)

// Verdict is the Jury's judgement over a transcript.
type Verdict struct {
	// Label is the classification.
	Label Label `json:"label"`

	// Confidence is the Jury's certainty in percent, always within
	// [MinConfidence, MaxConfidence].
	Confidence float64 `json:"confidence"`

	// Rationale is the Jury's short summary.
	Rationale string `json:"rationale"`

	// Raw is the unparsed Jury output, kept for audit.
	Raw string `json:"raw"`

	// Segment is the 1-indexed claim segment this verdict covers in
	// incremental mode, zero for a full-debate verdict.
	Segment int `json:"segment,omitempty"`
}

// NewVerdict builds a verdict with confidence clamped into range.
func NewVerdict(label Label, confidence float64, rationale, raw string) Verdict {
	return Verdict{
		Label:      label,
		Confidence: ClampConfidence(confidence),
		Rationale:  rationale,
		Raw:        raw,
	}
}

// UndeterminedVerdict wraps output the Jury produced but that could not be
// interpreted.
func UndeterminedVerdict(raw string) Verdict {
	return Verdict{Label: LabelUndetermined, Raw: raw}
}

// ClampConfidence limits c to [MinConfidence, MaxConfidence]. NaN maps to the
// minimum.
func ClampConfidence(c float64) float64 {
	if c != c || c < MinConfidence {
		return MinConfidence
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}
