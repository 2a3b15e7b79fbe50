package units

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"github.com/agnivade/levenshtein"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/ports"
)

var (
	_ ports.VerdictAggregator = (*Jury)(nil)

	foldCaser = cases.Fold()
)

// Default Jury prompt templates. The full-debate prompt presents the whole
// transcript; the segment prompt presents one segment's Sceptic/Defender
// exchange against the cumulative claim.
const (
	DefaultFullPrompt = `FACT: "{{.Fact}}"
CLAIM: "{{.Claim}}"

DEBATE:
{{.Debate}}

Verdict?`

	DefaultSegmentPrompt = `FACT: {{.Fact}}
CLAIM SO FAR: {{.Claim}}
CURRENT SEGMENT: {{.Segment}}
Debate:
{{range .Transcript}}{{initial .Persona}}: {{.Content}}
{{end}}Verdict for this segment?`

	// DefaultLabelTolerance is the largest edit distance at which a
	// misspelt label is still accepted.
	DefaultLabelTolerance = 2
)

const jsonInstruction = "\n\nRespond with only a JSON object in exactly this format:\n" +
	`{"verdict": "FAITHFUL" or "MUTATION", "confidence": <0-100>, "summary": "<1-2 sentences>"}`

// JuryConfig configures a Jury.
type JuryConfig struct {
	// FullPrompt renders the full-debate request. Fields: .Fact, .Claim,
	// .Debate (pre-rendered transcript) and .Transcript.
	FullPrompt string `yaml:"full_prompt" json:"full_prompt" validate:"required,min=20"`

	// SegmentPrompt renders the incremental request. It additionally sees
	// .Segment, the current segment text.
	SegmentPrompt string `yaml:"segment_prompt" json:"segment_prompt" validate:"required,min=20"`

	// RequestJSON appends an instruction asking for a JSON object.
	RequestJSON bool `yaml:"request_json" json:"request_json"`

	// LabelTolerance is the maximum edit distance for label matching.
	LabelTolerance int `yaml:"label_tolerance" json:"label_tolerance" validate:"min=0,max=3"`
}

// DefaultJuryConfig returns the stock prompts with JSON requested.
func DefaultJuryConfig() JuryConfig {
	return JuryConfig{
		FullPrompt:     DefaultFullPrompt,
		SegmentPrompt:  DefaultSegmentPrompt,
		RequestJSON:    true,
		LabelTolerance: DefaultLabelTolerance,
	}
}

// Jury asks the Jury persona for a verdict over a transcript. It holds no
// per-call state and is safe for concurrent use.
type Jury struct {
	persona   domain.Persona
	invoker   ports.AgentInvoker
	config    JuryConfig
	full      *template.Template
	segment   *template.Template
	tolerance int
	clock     ports.Clock
	tracer    trace.Tracer
}

// juryResponse is the JSON object the Jury is asked to produce.
type juryResponse struct {
	Verdict    string  `json:"verdict" validate:"required"`
	Confidence percent `json:"confidence"`
	Summary    string  `json:"summary"`
}

// promptData is the template input.
type promptData struct {
	Fact       string
	Claim      string
	Segment    string
	Debate     string
	Transcript domain.Transcript
}

// NewJury validates config, compiles its templates and returns a Jury that
// sends prompts through invoker under persona's instructions. clock times
// invocations that report no latency; nil selects the wall clock.
func NewJury(persona domain.Persona, invoker ports.AgentInvoker, clock ports.Clock, config JuryConfig) (*Jury, error) {
	if invoker == nil {
		return nil, ErrNilInvoker
	}
	if clock == nil {
		clock = wallClock{}
	}
	if strings.TrimSpace(persona.Instructions) == "" {
		return nil, fmt.Errorf("jury %q: %w", persona.Name, ErrMissingPersona)
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("jury configuration validation failed: %w", err)
	}

	full, err := template.New("juryFull").Funcs(GetTemplateFuncMap()).Parse(config.FullPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse full prompt template: %w", err)
	}

	segment, err := template.New("jurySegment").Funcs(GetTemplateFuncMap()).Parse(config.SegmentPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse segment prompt template: %w", err)
	}

	return &Jury{
		persona:   persona,
		invoker:   invoker,
		config:    config,
		full:      full,
		segment:   segment,
		tolerance: config.LabelTolerance,
		clock:     clock,
		tracer:    otel.Tracer("jury"),
	}, nil
}

// Persona returns the persona the Jury speaks as.
func (j *Jury) Persona() domain.Persona { return j.persona }

// Deliberate renders the prompt for d, invokes the Jury persona and parses
// its answer. An empty transcript returns domain.ErrEmptyTranscript without
// invoking. Unparseable output yields an UNDETERMINED verdict with the raw
// text kept; only invocation failures are returned as errors.
func (j *Jury) Deliberate(ctx context.Context, d ports.Deliberation) (ports.JuryResult, error) {
	if len(d.Transcript) == 0 {
		return ports.JuryResult{}, domain.ErrEmptyTranscript
	}

	ctx, span := j.tracer.Start(ctx, "Jury.Deliberate",
		trace.WithAttributes(
			attribute.String("jury.persona", j.persona.Name),
			attribute.Int("jury.transcript_rounds", len(d.Transcript)),
			attribute.Bool("jury.incremental", d.Segment != nil),
		),
	)
	defer span.End()

	prompt, err := j.BuildPrompt(d)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ports.JuryResult{}, err
	}

	start := j.clock.Now()
	inv, err := j.invoker.Invoke(ctx, j.persona, []domain.Message{{Role: domain.RoleUser, Content: prompt}})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ports.JuryResult{}, err
	}
	if inv.Latency == 0 {
		inv.Latency = j.clock.Since(start)
	}

	verdict := ParseVerdict(inv.Content, j.tolerance)
	if d.Segment != nil {
		verdict.Segment = d.Segment.Index
	}

	span.SetAttributes(
		attribute.String("jury.label", string(verdict.Label)),
		attribute.Float64("jury.confidence", verdict.Confidence),
		attribute.Int("jury.tokens_in", inv.Usage.PromptTokens),
		attribute.Int("jury.tokens_out", inv.Usage.CompletionTokens),
	)

	return ports.JuryResult{Verdict: verdict, Invocation: inv}, nil
}

// BuildPrompt renders the request text the Jury will receive for d.
func (j *Jury) BuildPrompt(d ports.Deliberation) (string, error) {
	data := promptData{
		Fact:       d.Fact,
		Claim:      d.Claim,
		Debate:     d.Transcript.String(),
		Transcript: d.Transcript,
	}

	tmpl := j.full
	if d.Segment != nil {
		tmpl = j.segment
		data.Segment = d.Segment.String()
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", tmpl.Name(), err)
	}

	if j.config.RequestJSON {
		buf.WriteString(jsonInstruction)
	}
	return buf.String(), nil
}

// ParseVerdict interprets Jury output. It tries, in order, a JSON object
// (bare or fenced), then "VERDICT:", "CONFIDENCE:" and "SUMMARY:" labelled
// lines. If neither yields a recognisable label the verdict is UNDETERMINED.
// Raw always holds the unmodified output.
func ParseVerdict(raw string, tolerance int) domain.Verdict {
	if v, ok := parseJSONVerdict(raw, tolerance); ok {
		return v
	}
	if v, ok := parseLabelledVerdict(raw, tolerance); ok {
		return v
	}
	return domain.UndeterminedVerdict(raw)
}

func parseJSONVerdict(raw string, tolerance int) (domain.Verdict, bool) {
	jsonStr := extractJSON(raw)
	if jsonStr == "" {
		return domain.Verdict{}, false
	}

	var resp juryResponse
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		return domain.Verdict{}, false
	}
	if err := validate.Struct(resp); err != nil {
		return domain.Verdict{}, false
	}

	label := normaliseLabel(resp.Verdict, tolerance)
	if !label.Decided() {
		return domain.Verdict{}, false
	}
	return domain.NewVerdict(label, float64(resp.Confidence), strings.TrimSpace(resp.Summary), raw), true
}

// labelKey matches an optional parenthesised hint, as in
// "VERDICT (FAITHFUL/MUTATION):", and the separator after a label keyword.
const labelKey = `[ \t*_]*(?:\([^)\n]*\)[ \t*_]*)?[:\-][*_]*[ \t]*`

var (
	verdictLine    = regexp.MustCompile(`(?im)^[ \t*#>_-]*verdict` + labelKey + `(.+)$`)
	confidenceLine = regexp.MustCompile(`(?im)^[ \t*#>_-]*confidence` + labelKey + `(\d+(?:\.\d+)?)[ \t]*(%?)`)
	summaryLine    = regexp.MustCompile(`(?im)^[ \t*#>_-]*summary` + labelKey + `(.*)$`)
	labelledLine   = regexp.MustCompile(`(?i)^[ \t*#>_-]*(?:verdict|confidence|summary)` + labelKey)
)

func parseLabelledVerdict(raw string, tolerance int) (domain.Verdict, bool) {
	m := verdictLine.FindStringSubmatch(raw)
	if m == nil {
		return domain.Verdict{}, false
	}

	label := normaliseLabel(m[1], tolerance)
	if !label.Decided() {
		return domain.Verdict{}, false
	}

	var confidence float64
	if c := confidenceLine.FindStringSubmatch(raw); c != nil {
		if f, err := strconv.ParseFloat(c[1], 64); err == nil {
			confidence = scaleConfidence(f, c[2] == "%")
		}
	}

	return domain.NewVerdict(label, confidence, summaryText(raw), raw), true
}

// summaryText returns the text on the SUMMARY line or, when that line is
// otherwise empty, the next line that is neither blank nor labelled.
func summaryText(raw string) string {
	loc := summaryLine.FindStringSubmatchIndex(raw)
	if loc == nil {
		return ""
	}
	if inline := strings.TrimSpace(raw[loc[2]:loc[3]]); inline != "" {
		return inline
	}

	for _, line := range strings.Split(raw[loc[1]:], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if labelledLine.MatchString(line) {
			return ""
		}
		return line
	}
	return ""
}

var decidedLabels = []domain.Label{domain.LabelFaithful, domain.LabelMutation}

// negations invert a label that directly follows them. "t" is the tail of
// a split contraction such as "isn't".
var negations = map[string]struct{}{"not": {}, "no": {}, "never": {}, "t": {}}

// normaliseLabel returns the first label named in s. Each word is
// case-folded and matched as a prefix ("Mutations", "Faithfully") or
// within tolerance edits of a label. A negated label ("not faithful",
// "unfaithful") yields LabelUndetermined.
func normaliseLabel(s string, tolerance int) domain.Label {
	words := strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	for i, w := range words {
		label, negated := matchLabel(foldCaser.String(w), tolerance)
		if !label.Decided() && !negated {
			continue
		}
		if negated {
			return domain.LabelUndetermined
		}
		if i > 0 {
			if _, ok := negations[foldCaser.String(words[i-1])]; ok {
				return domain.LabelUndetermined
			}
		}
		return label
	}
	return domain.LabelUndetermined
}

// matchLabel reports the label word names, and whether it names one only
// inside a longer word ("unfaithful", "nonmutation").
func matchLabel(word string, tolerance int) (domain.Label, bool) {
	best, bestDist := domain.LabelUndetermined, tolerance+1
	for _, label := range decidedLabels {
		target := foldCaser.String(string(label))
		switch {
		case strings.HasPrefix(word, target):
			return label, false
		case strings.Contains(word, target):
			return domain.LabelUndetermined, true
		}
		if dist := levenshtein.ComputeDistance(word, target); dist < bestDist {
			best, bestDist = label, dist
		}
	}
	return best, false
}

// scaleConfidence reads values in (0, 1) without a percent sign as
// fractions.
func scaleConfidence(f float64, hasPercent bool) float64 {
	if !hasPercent && f > 0 && f < 1 {
		return f * 100
	}
	return f
}

// percent accepts a JSON number or a string such as "85%" or "0.85".
type percent float64

func (p *percent) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*p = percent(scaleConfidence(f, false))
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("confidence must be a number or string: %w", err)
	}

	s = strings.TrimSpace(s)
	hasPercent := strings.HasSuffix(s, "%")
	f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
	if err != nil {
		return fmt.Errorf("invalid confidence %q: %w", s, err)
	}
	*p = percent(scaleConfidence(f, hasPercent))
	return nil
}

// extractJSON returns the first JSON object in response, looking inside
// ```json fences, then generic fences, then for a balanced brace span.
// It returns "" if none is found.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if start := strings.Index(response, "```json"); start != -1 {
		start += len("```json")
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}

	if start := strings.Index(response, "```"); start != -1 {
		start += 3
		if nl := strings.Index(response[start:], "\n"); nl != -1 {
			start += nl + 1
		}
		if end := strings.Index(response[start:], "```"); end != -1 {
			if candidate := strings.TrimSpace(response[start : start+end]); strings.HasPrefix(candidate, "{") {
				return candidate
			}
		}
	}

	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}
