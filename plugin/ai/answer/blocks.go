package answer

import (
	"strings"

	"github.com/olivesarenice/telegram-rag/store"
)

// BlockSeparator separates context blocks, most important first.
const BlockSeparator = "\n---\n"

// RenderBlock renders the fields of a note that the model and the reader see.
func RenderBlock(note *store.Note) string {
	var b strings.Builder
	b.WriteString("*UPDATED_AT* : " + note.UpdatedAt + "\n")
	b.WriteString("*MESSAGE_ID* :\n" + note.MessageID + "\n")
	b.WriteString("*TITLE* :\n" + note.Title + "\n")
	return b.String()
}

// RenderBlocks renders notes in the given order.
func RenderBlocks(notes []*store.Note) string {
	blocks := make([]string, len(notes))
	for i, note := range notes {
		blocks[i] = RenderBlock(note)
	}
	return strings.Join(blocks, BlockSeparator)
}

// Notes unwraps search results, keeping their order.
func Notes(results []*store.NoteWithScore) []*store.Note {
	notes := make([]*store.Note, len(results))
	for i, r := range results {
		notes[i] = r.Note
	}
	return notes
}
