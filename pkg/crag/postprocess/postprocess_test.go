package postprocess

import (
	"testing"

	"crag-notes-be/pkg/crag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunks() []crag.RetrievedChunk {
	page := 4
	return []crag.RetrievedChunk{
		{
			Id:    "c1",
			Score: 0.9,
			Text:  "F=ma relates force, mass and acceleration.",
			Metadata: crag.ChunkMetadata{
				FileName: "mechanics.pdf",
				Page:     &page,
				ChunkId:  "mechanics-1",
			},
		},
		{
			Id:       "c2",
			Score:    0.7,
			Text:     "Acceleration is the rate of change of velocity.",
			Metadata: crag.ChunkMetadata{FileName: "mechanics.pdf", ChunkId: "mechanics-2"},
		},
		{
			Id:       "c3",
			Score:    0.6,
			Text:     "Mass is measured in kilograms.",
			Metadata: crag.ChunkMetadata{FileName: "units.pdf", ChunkId: "units-9"},
		},
		{
			Id:       "c4",
			Score:    0.5,
			Text:     "This chunk is beyond the citation limit.",
			Metadata: crag.ChunkMetadata{FileName: "extra.pdf", ChunkId: "extra-1"},
		},
	}
}

func TestBuildFoundResponseMalformedOutput(t *testing.T) {
	p := NewProcessor(0.85, 0.65)

	resp := p.BuildFoundResponse("  Not valid json  ", testChunks(), 0.9)

	require.NotNil(t, resp)
	assert.True(t, resp.Found)
	assert.Equal(t, "Not valid json", resp.Answer)

	// Citations always come from the top 3 chunks, never from the model.
	require.Len(t, resp.Citations, 3)
	assert.Equal(t, "mechanics-1", resp.Citations[0].ChunkId)
	assert.Equal(t, "mechanics-2", resp.Citations[1].ChunkId)
	assert.Equal(t, "units-9", resp.Citations[2].ChunkId)

	// Evidence falls back to the top 3 chunk texts.
	require.Len(t, resp.Evidence, 3)
	assert.Equal(t, "F=ma relates force, mass and acceleration.", resp.Evidence[0])

	// 0.9 > 0.85 -> High
	assert.Equal(t, crag.ConfidenceHigh, resp.Confidence)
}

func TestBuildFoundResponseFencedJSON(t *testing.T) {
	p := NewProcessor(0.85, 0.65)

	raw := "```json\n{\"answer\":\"X\",\"confidence\":\"High\",\"evidence\":[\"E1\"]}\n```"
	resp := p.BuildFoundResponse(raw, testChunks(), 0.5)

	assert.Equal(t, "X", resp.Answer)
	assert.Equal(t, crag.ConfidenceHigh, resp.Confidence)
	assert.Equal(t, []string{"E1"}, resp.Evidence)

	// Model-declared citations are ignored even for valid JSON.
	require.Len(t, resp.Citations, 3)
	assert.Equal(t, "mechanics-1", resp.Citations[0].ChunkId)
}

func TestBuildFoundResponseConfidenceThresholds(t *testing.T) {
	p := NewProcessor(0.85, 0.65)

	tests := []struct {
		name     string
		topScore float64
		want     crag.Confidence
	}{
		{"above high", 0.86, crag.ConfidenceHigh},
		{"exactly high is medium", 0.85, crag.ConfidenceMedium},
		{"above medium", 0.70, crag.ConfidenceMedium},
		{"at medium is low", 0.65, crag.ConfidenceLow},
		{"low score", 0.10, crag.ConfidenceLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := p.BuildFoundResponse("plain text", testChunks(), tt.topScore)
			assert.Equal(t, tt.want, resp.Confidence)
		})
	}
}

func TestBuildFoundResponseInvalidModelConfidence(t *testing.T) {
	p := NewProcessor(0.85, 0.65)

	resp := p.BuildFoundResponse(`{"answer":"X","confidence":"VERY HIGH"}`, testChunks(), 0.7)

	// Non-canonical confidence strings fall back to the score thresholds.
	assert.Equal(t, crag.ConfidenceMedium, resp.Confidence)
}

func TestBuildFoundResponseEvidenceFiltersNonStrings(t *testing.T) {
	p := NewProcessor(0.85, 0.65)

	resp := p.BuildFoundResponse(`{"answer":"X","evidence":["ok", 42, {"bad":true}, "also ok"]}`, testChunks(), 0.9)

	assert.Equal(t, []string{"ok", "also ok"}, resp.Evidence)
}

func TestBuildFoundResponseEmptyAnswerFallsBackToRaw(t *testing.T) {
	p := NewProcessor(0.85, 0.65)

	raw := `{"answer":"   ","evidence":["E1"]}`
	resp := p.BuildFoundResponse(raw, testChunks(), 0.9)

	// A blank model answer falls back to the sanitized raw text.
	assert.Equal(t, raw, resp.Answer)
}

func TestBuildFoundResponseFewerThanThreeChunks(t *testing.T) {
	p := NewProcessor(0.85, 0.65)

	chunks := testChunks()[:1]
	resp := p.BuildFoundResponse("whatever", chunks, 0.9)

	require.Len(t, resp.Citations, 1)
	require.Len(t, resp.Evidence, 1)
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"inline fence", "```{\"a\":1}```", `{"a":1}`},
		{"fence mid-text untouched", "before ``` after", "before ``` after"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}
