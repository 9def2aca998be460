package postprocess

import (
	"encoding/json"
	"strings"

	"crag-notes-be/pkg/crag"
)

// Default confidence thresholds applied to the top reranked score when the
// model does not supply a usable confidence value.
const (
	DefaultHighThreshold   = 0.85
	DefaultMediumThreshold = 0.65
)

const citationLimit = 3

// Processor turns raw model output into a typed Found response. Every
// derivation has a fallback: a malformed or non-conforming model reply
// still yields a usable response, never an error.
type Processor struct {
	highThreshold   float64
	mediumThreshold float64
}

func NewProcessor(highThreshold, mediumThreshold float64) *Processor {
	if highThreshold <= 0 {
		highThreshold = DefaultHighThreshold
	}
	if mediumThreshold <= 0 {
		mediumThreshold = DefaultMediumThreshold
	}
	return &Processor{
		highThreshold:   highThreshold,
		mediumThreshold: mediumThreshold,
	}
}

// modelPayload is the shape we try to read from the model's JSON. Fields
// the model omits or mistypes simply stay zero.
type modelPayload struct {
	Answer     string        `json:"answer"`
	Confidence string        `json:"confidence"`
	Evidence   []interface{} `json:"evidence"`
}

// BuildFoundResponse derives the Found response from raw model output and
// the reranked chunks. Citations come exclusively from chunk metadata: the
// model cannot fabricate sources.
func (p *Processor) BuildFoundResponse(rawOutput string, rerankedChunks []crag.RetrievedChunk, topScore float64) *crag.Response {
	sanitized := strings.TrimSpace(StripCodeFence(rawOutput))

	var payload modelPayload
	if err := json.Unmarshal([]byte(sanitized), &payload); err != nil {
		// Not JSON: treat as an empty payload and fall back field by field
		payload = modelPayload{}
	}

	topChunks := rerankedChunks
	if len(topChunks) > citationLimit {
		topChunks = topChunks[:citationLimit]
	}

	citations := make([]crag.Citation, 0, len(topChunks))
	for _, chunk := range topChunks {
		citations = append(citations, crag.Citation{
			FileName: chunk.Metadata.FileName,
			Page:     chunk.Metadata.Page,
			ChunkId:  chunk.Metadata.ChunkId,
		})
	}

	evidence := make([]string, 0, len(payload.Evidence))
	for _, item := range payload.Evidence {
		if s, ok := item.(string); ok {
			evidence = append(evidence, s)
		}
	}
	if len(evidence) == 0 {
		for _, chunk := range topChunks {
			evidence = append(evidence, chunk.Text)
		}
	}

	answer := strings.TrimSpace(payload.Answer)
	if answer == "" {
		answer = sanitized
	}

	return &crag.Response{
		Answer:     answer,
		Citations:  citations,
		Confidence: p.deriveConfidence(payload.Confidence, topScore),
		Evidence:   evidence,
		Found:      true,
	}
}

func (p *Processor) deriveConfidence(modelValue string, topScore float64) crag.Confidence {
	switch crag.Confidence(modelValue) {
	case crag.ConfidenceHigh, crag.ConfidenceMedium, crag.ConfidenceLow:
		return crag.Confidence(modelValue)
	}

	switch {
	case topScore > p.highThreshold:
		return crag.ConfidenceHigh
	case topScore > p.mediumThreshold:
		return crag.ConfidenceMedium
	default:
		return crag.ConfidenceLow
	}
}

// StripCodeFence removes one surrounding markdown code fence, with or
// without a language tag. Anything else passes through untouched.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text
	}

	body := strings.TrimPrefix(trimmed, "```")
	// Drop a language tag like "json" on the fence line
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(body[:idx])
		if firstLine != "" && !strings.ContainsAny(firstLine, "{}[]\"") {
			body = body[idx+1:]
		}
	}

	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}
