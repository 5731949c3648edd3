package v1

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/olivesarenice/telegram-rag/plugin/ai/answer"
	"github.com/olivesarenice/telegram-rag/plugin/ai/enrich"
	"github.com/olivesarenice/telegram-rag/plugin/ai/rag"
	"github.com/olivesarenice/telegram-rag/plugin/ai/timeout"
	apierrors "github.com/olivesarenice/telegram-rag/server/internal/errors"
	"github.com/olivesarenice/telegram-rag/store"
)

// HealthcheckResponse is the body of GET /healthcheck.
type HealthcheckResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// SendMessageResponse is the body of POST /send_message.
type SendMessageResponse struct {
	InsertedIDs []string `json:"inserted_ids"`
}

// GetMessageResponse is the body of POST /get_message.
type GetMessageResponse struct {
	Answer string `json:"answer"`
}

// Healthcheck reports store connectivity and the number of stored notes.
// GET /healthcheck
func (s *APIV1Service) Healthcheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), timeout.StoreTimeout)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		return apierrors.StoreUnavailable(err)
	}
	count, err := s.Store.CountNotes(ctx)
	if err != nil {
		return apierrors.StoreUnavailable(err)
	}
	return c.JSON(http.StatusOK, HealthcheckResponse{
		Message: "Server is connected to the note store",
		Count:   count,
	})
}

// GetMetrics returns request metrics since start.
// GET /metrics
func (s *APIV1Service) GetMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Metrics.Snapshot())
}

// SendMessage enriches and stores a message.
// POST /send_message
func (s *APIV1Service) SendMessage(c echo.Context) error {
	req, err := bindMessage(c)
	if err != nil {
		return err
	}
	rc := requestContext(c)
	rc.MessageID = req.MessageID

	note, err := s.Saver.Save(c.Request().Context(), req.MessageID, req.Text)
	if err != nil {
		var incomplete *enrich.IncompleteError
		if errors.As(err, &incomplete) {
			return apierrors.EnrichmentIncomplete(err)
		}
		return apierrors.StoreUnavailable(err)
	}

	rc.Info("message saved",
		slog.String("note_id", note.ID),
		slog.String("domain", note.Domain),
		slog.Bool("embedded", note.Vector != nil),
	)
	return c.JSON(http.StatusOK, SendMessageResponse{InsertedIDs: []string{note.ID}})
}

// GetMessage answers a question from the stored notes.
// POST /get_message
func (s *APIV1Service) GetMessage(c echo.Context) error {
	req, err := bindMessage(c)
	if err != nil {
		return err
	}
	rc := requestContext(c)
	rc.MessageID = req.MessageID
	ctx := c.Request().Context()

	results, err := s.Retriever.Search(ctx, req.Text, s.topN())
	switch {
	case errors.Is(err, rag.ErrQueryNotEmbedded):
		rc.Warn("query not embedded, answering without context")
		results = nil
	case err != nil:
		return apierrors.StoreUnavailable(err)
	}

	notes := answer.Notes(results)
	text, err := s.Answerer.Answer(ctx, req.Text, notes)
	if err != nil {
		return apierrors.LLMUnavailable(err)
	}

	rc.Info("question answered", slog.Int("notes", len(notes)))
	return c.JSON(http.StatusOK, GetMessageResponse{Answer: text})
}

var _ NoteRetriever = (*rag.Retriever)(nil)
var _ NoteSaver = (*enrich.Enricher)(nil)
var _ Answerer = (*answer.Synthesizer)(nil)
var _ StoreStatus = (*store.Store)(nil)
