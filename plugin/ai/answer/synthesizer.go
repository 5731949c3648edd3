// Package answer composes answers from retrieved notes.
package answer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/olivesarenice/telegram-rag/plugin/ai"
	"github.com/olivesarenice/telegram-rag/store"
)

// DefaultStyle is the markup dialect answers are written in.
const DefaultStyle = "Telegram MarkdownV2"

const systemPrompt = `You are a laidback, helpful daemon living in a database. Never mention your role.
Use the CONTEXT to answer the QUESTION. Try to use all context blocks, but only if they are relevant to the QUESTION.
Context blocks are separated by --- and are ordered by importance.
If you don't know the answer, say that you don't know. Don't make anything up.
Communicate only within CONTEXT.
Answer in the same language as the QUESTION. Use language that a B2 English proficiency speaker would use.
Format your response in %s.`

// Synthesizer answers questions from a set of notes and attaches references.
type Synthesizer struct {
	completer  ai.Completer
	style      string
	references ReferenceStrategy
}

// NewSynthesizer creates a Synthesizer. An empty style uses DefaultStyle and a
// nil strategy uses TextReferences.
func NewSynthesizer(completer ai.Completer, style string, references ReferenceStrategy) *Synthesizer {
	if style == "" {
		style = DefaultStyle
	}
	if references == nil {
		references = TextReferences{}
	}
	return &Synthesizer{
		completer:  completer,
		style:      style,
		references: references,
	}
}

// Answer asks the model to answer question from notes, in the order given.
// A failed completion is returned as an error; no partial answer is built.
func (s *Synthesizer) Answer(ctx context.Context, question string, notes []*store.Note) (string, error) {
	blocks := RenderBlocks(notes)

	answer, err := s.completer.Complete(ctx, fmt.Sprintf(systemPrompt, s.style), userPrompt(blocks, question))
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	slog.Debug("answer generated",
		"notes", len(notes),
		"answer", ai.TruncateLog(answer, 80),
	)
	return s.references.Attach(ctx, answer, notes, blocks), nil
}

func userPrompt(blocks, question string) string {
	return "CONTEXT:\n" + blocks + "\n\nQUESTION:\n" + question
}
