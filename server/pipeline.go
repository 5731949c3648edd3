package server

import (
	"github.com/pkg/errors"

	"github.com/olivesarenice/telegram-rag/internal/profile"
	"github.com/olivesarenice/telegram-rag/plugin/ai"
	"github.com/olivesarenice/telegram-rag/plugin/ai/answer"
	"github.com/olivesarenice/telegram-rag/plugin/ai/cache"
	"github.com/olivesarenice/telegram-rag/plugin/ai/enrich"
	"github.com/olivesarenice/telegram-rag/plugin/ai/rag"
	"github.com/olivesarenice/telegram-rag/plugin/ai/tags"
	"github.com/olivesarenice/telegram-rag/plugin/storage"
	"github.com/olivesarenice/telegram-rag/store"
)

// domainMemoSize bounds the number of remembered query classifications.
const domainMemoSize = 1024

// Pipeline holds the enrichment, retrieval and answering components.
type Pipeline struct {
	Vectorizer  *ai.EmbeddingClient
	Completer   *ai.CompletionClient
	Enricher    *enrich.Enricher
	Retriever   *rag.Retriever
	Synthesizer *answer.Synthesizer
	// Pages is the local page directory, empty unless pages are published locally.
	Pages string
}

// NewPipeline builds the components from profile, all sharing store.
func NewPipeline(profile *profile.Profile, store *store.Store) (*Pipeline, error) {
	cfg := ai.NewConfigFromProfile(profile)
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid AI configuration")
	}

	vectorizer, err := newVectorizer(cfg)
	if err != nil {
		return nil, err
	}
	llmService, err := ai.NewLLMService(&cfg.LLM)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create LLM service")
	}

	completer := ai.NewCompletionClient(llmService)

	// Notes are classified once each; queries repeat, so only retrieval memoizes.
	noteDomains := tags.NewDomainInferrer(completer, profile.DomainTags)
	queryDomains := tags.NewDomainInferrer(completer, profile.DomainTags).
		WithMemo(cache.NewLRU[string](domainMemoSize, 0))

	p := &Pipeline{
		Vectorizer: vectorizer,
		Completer:  completer,
		Enricher:   enrich.NewEnricher(completer, vectorizer, noteDomains, store),
		Retriever:  rag.NewRetriever(vectorizer, queryDomains, store),
	}

	references, err := p.newReferences(profile)
	if err != nil {
		return nil, err
	}
	p.Synthesizer = answer.NewSynthesizer(completer, profile.AnswerStyle, references)
	return p, nil
}

// NewVectorizer builds only the embedding client, for jobs that need neither
// the store nor the chat model.
func NewVectorizer(profile *profile.Profile) (*ai.EmbeddingClient, error) {
	cfg := ai.NewConfigFromProfile(profile)
	if err := cfg.ValidateEmbedding(); err != nil {
		return nil, errors.Wrap(err, "invalid embedding configuration")
	}
	return newVectorizer(cfg)
}

func newVectorizer(cfg *ai.Config) (*ai.EmbeddingClient, error) {
	embeddingService, err := ai.NewEmbeddingService(&cfg.Embedding)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create embedding service")
	}
	return ai.NewEmbeddingClient(embeddingService, cfg.Embedding.MaxChars, cfg.Retry), nil
}

func (p *Pipeline) newReferences(profile *profile.Profile) (answer.ReferenceStrategy, error) {
	if profile.References != "page" {
		return answer.TextReferences{}, nil
	}

	var uploader storage.Uploader
	switch profile.PageStorage {
	case "s3":
		s3, err := storage.NewS3Uploader(storage.S3Config{
			Endpoint:  profile.S3Endpoint,
			AccessKey: profile.S3AccessKey,
			SecretKey: profile.S3SecretKey,
			Bucket:    profile.S3Bucket,
			PublicURL: profile.S3PublicURL,
			UseSSL:    profile.S3UseSSL,
		})
		if err != nil {
			return nil, err
		}
		uploader = s3
	case "local", "":
		local, err := storage.NewLocalUploader(profile.PageDir(), profile.BaseURL)
		if err != nil {
			return nil, err
		}
		p.Pages = local.Dir()
		uploader = local
	default:
		return nil, errors.Errorf("unsupported page storage %q", profile.PageStorage)
	}
	return answer.NewPageReferences(uploader), nil
}
