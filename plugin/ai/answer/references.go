package answer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/olivesarenice/telegram-rag/plugin/ai/timeout"
	"github.com/olivesarenice/telegram-rag/plugin/storage"
	"github.com/olivesarenice/telegram-rag/store"
)

// ReferenceStrategy appends a references section to an answer.
type ReferenceStrategy interface {
	Attach(ctx context.Context, answer string, notes []*store.Note, blocks string) string
}

// TextReferences repeats the context blocks under the answer.
type TextReferences struct{}

// Attach implements ReferenceStrategy.
func (TextReferences) Attach(_ context.Context, answer string, _ []*store.Note, blocks string) string {
	return answer + "\n\nREFERENCES:\n" + blocks
}

// PageReferences publishes each note as a page and links the pages under the answer.
type PageReferences struct {
	uploader storage.Uploader
	renderer *PageRenderer
	stageDir string
	now      func() time.Time
}

// NewPageReferences creates a PageReferences publishing through uploader.
// Pages are staged in the system temp directory.
func NewPageReferences(uploader storage.Uploader) *PageReferences {
	return &PageReferences{
		uploader: uploader,
		renderer: NewPageRenderer(),
		now:      time.Now,
	}
}

// Attach implements ReferenceStrategy. Notes whose page cannot be rendered or
// uploaded are skipped; the remaining links keep their input position.
func (p *PageReferences) Attach(ctx context.Context, answer string, notes []*store.Note, _ string) string {
	var links []string
	used := make(map[string]bool, len(notes))
	for i, note := range notes {
		name := ObjectName(note.Title, note.ID, p.now())
		if used[name] {
			name = ObjectName(note.Title, fmt.Sprintf("%s-%d", note.ID, i+1), p.now())
		}
		used[name] = true

		url, err := p.publish(ctx, note, name)
		if err != nil {
			slog.Warn("failed to publish note page",
				"note_id", note.ID,
				"error", err,
			)
			continue
		}
		links = append(links, fmt.Sprintf("%d. %s", i+1, url))
	}
	return answer + "\n\nREFERENCES:\n" + strings.Join(links, "\n")
}

func (p *PageReferences) publish(ctx context.Context, note *store.Note, objectName string) (string, error) {
	page, err := p.renderer.Render(note)
	if err != nil {
		return "", err
	}

	staged, err := os.CreateTemp(p.stageDir, "note-*.html")
	if err != nil {
		return "", fmt.Errorf("failed to stage page: %w", err)
	}
	defer os.Remove(staged.Name())

	if _, err := staged.Write(page); err != nil {
		staged.Close()
		return "", fmt.Errorf("failed to stage page: %w", err)
	}
	if err := staged.Close(); err != nil {
		return "", fmt.Errorf("failed to stage page: %w", err)
	}

	uploadCtx, cancel := context.WithTimeout(ctx, timeout.UploadTimeout)
	defer cancel()
	return p.uploader.Upload(uploadCtx, staged.Name(), objectName)
}

// ObjectName derives a page name from a title, the time of day and the tail of
// a note id, e.g. "Walk_notes_183005_9b1deb4d.html". Characters outside
// [A-Za-z0-9_-] are dropped. The id tail keeps same-titled notes apart.
func ObjectName(title, id string, t time.Time) string {
	name := sanitize(title, 60)
	if name == "" {
		name = "note"
	}
	name += "_" + t.UTC().Format("150405")
	if tail := idTail(id); tail != "" {
		name += "_" + tail
	}
	return name + ".html"
}

func sanitize(s string, max int) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := b.String()
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// idTail keeps the random end of a UUIDv7; its leading digits only encode time.
func idTail(id string) string {
	id = sanitize(strings.ReplaceAll(id, "-", ""), 64)
	if len(id) > 8 {
		id = id[len(id)-8:]
	}
	return id
}
