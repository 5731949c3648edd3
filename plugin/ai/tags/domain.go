// Package tags infers the coarse domain tag of a note or query.
package tags

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode"

	"github.com/olivesarenice/telegram-rag/plugin/ai"
	"github.com/olivesarenice/telegram-rag/plugin/ai/cache"
)

// Untagged is the fallback the model is told to answer with when no tag fits.
const Untagged = "untagged"

const domainPrompt = `You are to classify the given text into one of the given tags.
Return only the tag, nothing else.
If none of the tags fit, return "%s".`

// DomainInferrer resolves the domain of a text either from a leading #tag or by
// asking the model to pick from a closed vocabulary.
type DomainInferrer struct {
	completer ai.Completer
	tags      []string
	memo      *cache.LRU[string]
}

// NewDomainInferrer creates a DomainInferrer over the given vocabulary.
func NewDomainInferrer(completer ai.Completer, tags []string) *DomainInferrer {
	return &DomainInferrer{
		completer: completer,
		tags:      tags,
	}
}

// WithMemo remembers model answers per text so identical queries map to identical domains.
func (d *DomainInferrer) WithMemo(memo *cache.LRU[string]) *DomainInferrer {
	d.memo = memo
	return d
}

// Tags returns the classification vocabulary.
func (d *DomainInferrer) Tags() []string {
	return d.tags
}

// LiteralTag returns the token after a leading '#' up to the first whitespace.
func LiteralTag(text string) (string, bool) {
	if !strings.HasPrefix(text, "#") {
		return "", false
	}
	rest := text[1:]
	if i := strings.IndexFunc(rest, unicode.IsSpace); i >= 0 {
		rest = rest[:i]
	}
	return rest, true
}

// Infer returns the domain of text. An empty result means the domain is unknown.
func (d *DomainInferrer) Infer(ctx context.Context, text string) string {
	if tag, ok := LiteralTag(text); ok {
		return tag
	}

	if d.memo != nil {
		if domain, ok := d.memo.Get(text); ok {
			return domain
		}
	}

	domain, err := d.completer.Complete(ctx, fmt.Sprintf(domainPrompt, Untagged), d.userPrompt(text))
	if err != nil {
		slog.Warn("domain classification failed", "error", err)
		return ""
	}

	if domain != Untagged && !slices.Contains(d.tags, domain) {
		slog.Warn("model answered with a tag outside the vocabulary",
			"domain", ai.TruncateLog(domain, 40),
		)
	}

	if d.memo != nil {
		d.memo.Set(text, domain)
	}
	return domain
}

func (d *DomainInferrer) userPrompt(text string) string {
	quoted := make([]string, len(d.tags))
	for i, tag := range d.tags {
		quoted[i] = "'" + tag + "'"
	}
	return fmt.Sprintf("tags: [%s]\ntext: %s", strings.Join(quoted, ", "), text)
}
