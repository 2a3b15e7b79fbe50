package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentClaim(t *testing.T) {
	tests := []struct {
		name  string
		claim string
		want  []ClaimSegment
	}{
		{
			name:  "three sentences",
			claim: "After 1st April, more than 125 deaths occurred. Most were 70 and above. This proves the youth were safe.",
			want: []ClaimSegment{
				{Index: 1, Text: "After 1st April, more than 125 deaths occurred", Terminator: "."},
				{Index: 2, Text: "Most were 70 and above", Terminator: "."},
				{Index: 3, Text: "This proves the youth were safe", Terminator: "."},
			},
		},
		{
			name:  "decimal point is not a boundary",
			claim: "Inflation hit 3.5 percent. Prices rose!",
			want: []ClaimSegment{
				{Index: 1, Text: "Inflation hit 3.5 percent", Terminator: "."},
				{Index: 2, Text: "Prices rose", Terminator: "!"},
			},
		},
		{
			name:  "question and missing final terminator",
			claim: "Is it true?  It is",
			want: []ClaimSegment{
				{Index: 1, Text: "Is it true", Terminator: "?"},
				{Index: 2, Text: "It is", Terminator: "."},
			},
		},
		{
			name:  "empty fragments dropped",
			claim: "One... . Two.",
			want: []ClaimSegment{
				{Index: 1, Text: "One", Terminator: "."},
				{Index: 2, Text: "Two", Terminator: "."},
			},
		},
		{
			name:  "blank claim",
			claim: "  . ",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SegmentClaim(tt.claim))
		})
	}
}

func TestSegmentClaim_Deterministic(t *testing.T) {
	claim := "A is B. C is D! E?"
	first := SegmentClaim(claim)
	for range 10 {
		assert.Equal(t, first, SegmentClaim(claim))
	}
}

func TestSegmentClaim_NormalisesUnicode(t *testing.T) {
	// "é" as e + combining acute accent must match the precomposed form.
	decomposed := "Cafe\u0301 opened."
	composed := "Caf\u00e9 opened."

	assert.Equal(t, SegmentClaim(composed), SegmentClaim(decomposed))
}

func TestSegments_StopsEarly(t *testing.T) {
	var seen []int
	for i := range Segments("a. b. c. d.") {
		seen = append(seen, i)
		if i == 2 {
			break
		}
	}
	assert.Equal(t, []int{1, 2}, seen)
}

func TestCumulative(t *testing.T) {
	segments := SegmentClaim("First point. Second point! Third point")
	require.Len(t, segments, 3)

	assert.Equal(t, "", Cumulative(segments, 0))
	assert.Equal(t, "First point.", Cumulative(segments, 1))
	assert.Equal(t, "First point. Second point!", Cumulative(segments, 2))
	assert.Equal(t, "First point. Second point! Third point.", Cumulative(segments, 3))
	assert.Equal(t, Cumulative(segments, 3), Cumulative(segments, 9), "index should clamp to the last segment")
}

func TestCumulative_ReconstructsPrefixes(t *testing.T) {
	segments := SegmentClaim("One. Two. Three. Four.")
	for i := 1; i < len(segments); i++ {
		prev := Cumulative(segments, i)
		next := Cumulative(segments, i+1)
		assert.Equal(t, prev+" "+segments[i].String(), next)
	}
}
