package domain

import (
	"iter"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// defaultTerminator closes a final segment that ended without punctuation.
const defaultTerminator = "."

// ClaimSegment is one sentence-like unit of a claim, judged on its own in
// incremental mode.
type ClaimSegment struct {
	// Index is the 1-indexed position of the segment within the claim.
	Index int `json:"index"`

	// Text is the trimmed segment without its terminator.
	Text string `json:"text"`

	// Terminator is the punctuation that ended the segment.
	Terminator string `json:"terminator"`
}

// String returns the segment with its terminator.
func (s ClaimSegment) String() string { return s.Text + s.Terminator }

// Segments lazily yields the segments of claim as (index, segment) pairs.
// The claim is NFC-normalised first. A '.' between two digits is a decimal
// point; every other '.', '!' or '?' ends a segment. Empty fragments are
// dropped.
func Segments(claim string) iter.Seq2[int, ClaimSegment] {
	return func(yield func(int, ClaimSegment) bool) {
		runes := []rune(norm.NFC.String(claim))
		index := 0
		start := 0

		emit := func(end int, term string) bool {
			text := strings.TrimSpace(string(runes[start:end]))
			if text == "" {
				return true
			}
			index++
			return yield(index, ClaimSegment{Index: index, Text: text, Terminator: term})
		}

		for i, r := range runes {
			if !isTerminator(runes, i, r) {
				continue
			}
			if !emit(i, string(r)) {
				return
			}
			start = i + 1
		}
		emit(len(runes), defaultTerminator)
	}
}

// SegmentClaim splits claim into its ordered segments.
func SegmentClaim(claim string) []ClaimSegment {
	var out []ClaimSegment
	for _, seg := range Segments(claim) {
		out = append(out, seg)
	}
	return out
}

// Cumulative reconstructs the claim up to and including segment i (1-indexed):
// each segment followed by its terminator, separated by single spaces.
// Values of i beyond the slice are clamped; i < 1 yields "".
func Cumulative(segments []ClaimSegment, i int) string {
	i = min(i, len(segments))
	if i < 1 {
		return ""
	}
	parts := make([]string, i)
	for k := range i {
		parts[k] = segments[k].String()
	}
	return strings.Join(parts, " ")
}

func isTerminator(runes []rune, i int, r rune) bool {
	switch r {
	case '!', '?':
		return true
	case '.':
		if i > 0 && i < len(runes)-1 && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
			return false
		}
		return true
	}
	return false
}
