package prompt

import (
	"fmt"
	"strings"

	"crag-notes-be/pkg/crag"
	"crag-notes-be/pkg/llm"
)

// Roles used in the built message pair. "human" is mapped to the
// provider's user role by each LLM client.
const (
	RoleSystem = "system"
	RoleHuman  = "human"
)

// NoMemorySentinel is rendered instead of the memory block when the
// thread has no prior turns.
const NoMemorySentinel = "No prior thread memory."

// BuildInput carries everything the builder needs for one request.
type BuildInput struct {
	Question     string
	SubjectName  string
	Chunks       []crag.RetrievedChunk
	ThreadMemory []crag.MemoryTurn
}

// Builder assembles the system+human message pair for grounded answering.
// Pure: no I/O, no state.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

// Build returns exactly two messages: the system message fixing the output
// contract, and the human message carrying subject, question, memory and
// context. The strict framing is what lets post-processing detect the
// refusal sentinel and check citation ids against the provided chunks.
func (b *Builder) Build(input BuildInput) []llm.Message {
	return []llm.Message{
		{Role: RoleSystem, Content: b.buildSystem(input.SubjectName)},
		{Role: RoleHuman, Content: b.buildHuman(input)},
	}
}

func (b *Builder) buildSystem(subjectName string) string {
	var prompt strings.Builder

	prompt.WriteString("<task>\n")
	prompt.WriteString("You answer questions strictly from the user's indexed study notes.\n")
	prompt.WriteString("Use ONLY the material inside <context>. Do NOT use outside knowledge.\n")
	prompt.WriteString("</task>\n\n")

	prompt.WriteString("<output_contract>\n")
	prompt.WriteString("Respond in exactly ONE of these two forms:\n\n")
	prompt.WriteString("1. A single JSON object, no markdown fences, no extra keys:\n")
	prompt.WriteString("{\"answer\": \"...\", \"citations\": [\"chunk ids you used\"], \"confidence\": \"High|Medium|Low\", \"evidence\": [\"verbatim supporting sentences\"], \"found\": true}\n\n")
	prompt.WriteString("2. If the context does not contain the answer, reply with this exact\n")
	prompt.WriteString("text and nothing else:\n")
	prompt.WriteString(crag.NotFoundAnswer(subjectName))
	prompt.WriteString("\n</output_contract>\n\n")

	prompt.WriteString("<rules>\n")
	prompt.WriteString("1. Never invent sources. Cite only chunk ids that appear in <context>.\n")
	prompt.WriteString("2. Quote evidence verbatim from the context.\n")
	prompt.WriteString("3. Answer directly. Never ask follow-up questions.\n")
	prompt.WriteString("</rules>")

	return prompt.String()
}

func (b *Builder) buildHuman(input BuildInput) string {
	var prompt strings.Builder

	prompt.WriteString("Subject: ")
	prompt.WriteString(input.SubjectName)
	prompt.WriteString("\n\nQuestion: ")
	prompt.WriteString(input.Question)
	prompt.WriteString("\n\n")

	b.writeMemoryBlock(&prompt, input.ThreadMemory)
	b.writeContextBlock(&prompt, input.Chunks)

	return prompt.String()
}

func (b *Builder) writeMemoryBlock(prompt *strings.Builder, turns []crag.MemoryTurn) {
	prompt.WriteString("<thread_memory>\n")
	if len(turns) == 0 {
		prompt.WriteString(NoMemorySentinel)
		prompt.WriteString("\n")
	} else {
		for _, turn := range turns {
			prompt.WriteString(fmt.Sprintf("[%s]\nQ: %s\nA: %s\n---\n", turn.CreatedAtIso, turn.Question, turn.Answer))
		}
	}
	prompt.WriteString("</thread_memory>\n\n")
}

func (b *Builder) writeContextBlock(prompt *strings.Builder, chunks []crag.RetrievedChunk) {
	prompt.WriteString("<context>\n")
	for _, chunk := range chunks {
		page := "-"
		if chunk.Metadata.Page != nil {
			page = fmt.Sprintf("%d", *chunk.Metadata.Page)
		}
		prompt.WriteString(fmt.Sprintf(
			"--- chunk_id=%s file=%s page=%s score=%.6f ---\n",
			chunk.Metadata.ChunkId, chunk.Metadata.FileName, page, chunk.Score,
		))
		prompt.WriteString(chunk.Text)
		prompt.WriteString("\n")
	}
	prompt.WriteString("</context>")
}
