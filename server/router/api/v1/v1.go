package v1

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/olivesarenice/telegram-rag/internal/profile"
	"github.com/olivesarenice/telegram-rag/plugin/ai/rag"
	apierrors "github.com/olivesarenice/telegram-rag/server/internal/errors"
	"github.com/olivesarenice/telegram-rag/server/internal/observability"
	"github.com/olivesarenice/telegram-rag/store"
)

// NoteSaver enriches and persists a message.
type NoteSaver interface {
	Save(ctx context.Context, messageID, rawText string) (*store.Note, error)
}

// NoteRetriever finds the notes most relevant to a query.
type NoteRetriever interface {
	Search(ctx context.Context, query string, limit int) ([]*store.NoteWithScore, error)
}

// Answerer answers a question from notes.
type Answerer interface {
	Answer(ctx context.Context, question string, notes []*store.Note) (string, error)
}

// StoreStatus reports store health.
type StoreStatus interface {
	Ping(ctx context.Context) error
	CountNotes(ctx context.Context) (int, error)
}

// APIV1Service serves the note endpoints used by the chat front-end.
type APIV1Service struct {
	Profile   *profile.Profile
	Store     StoreStatus
	Saver     NoteSaver
	Retriever NoteRetriever
	Answerer  Answerer
	Metrics   *observability.Metrics
}

func NewAPIV1Service(profile *profile.Profile, store StoreStatus, saver NoteSaver, retriever NoteRetriever, answerer Answerer) *APIV1Service {
	return &APIV1Service{
		Profile:   profile,
		Store:     store,
		Saver:     saver,
		Retriever: retriever,
		Answerer:  answerer,
		Metrics:   observability.NewMetrics(1000),
	}
}

// RegisterRoutes registers the note endpoints on g.
func (s *APIV1Service) RegisterRoutes(g *echo.Group) {
	g.GET("/healthcheck", s.Healthcheck)
	g.GET("/metrics", s.GetMetrics)
	g.POST("/send_message", s.SendMessage)
	g.POST("/get_message", s.GetMessage)
}

// ErrorHandler renders APIError values as JSON with their mapped status.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := http.StatusInternalServerError, apierrors.Body{Code: apierrors.ErrCodeInternal, Message: "internal error"}
	var apiErr *apierrors.APIError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &apiErr):
		status, body = apiErr.HTTPStatus(), apiErr.Body()
	case errors.As(err, &httpErr):
		status = httpErr.Code
		body = apierrors.Body{Code: apierrors.ErrCodeInvalidArgument, Message: http.StatusText(httpErr.Code)}
		if status >= http.StatusInternalServerError {
			body.Code = apierrors.ErrCodeInternal
		}
	default:
		slog.Error("unhandled request error", "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		slog.Error("failed to write error response", "error", err)
	}
}

// requestContext returns the request's logging context, creating one if the
// request logger middleware did not run.
func requestContext(c echo.Context) *observability.RequestContext {
	if rc, ok := observability.FromContext(c.Request().Context()); ok {
		return rc
	}
	return observability.NewRequestContext(slog.Default(), c.Response().Header().Get(echo.HeaderXRequestID), c.Path())
}

func (s *APIV1Service) topN() int {
	if s.Profile != nil && s.Profile.TopN > 0 {
		return s.Profile.TopN
	}
	return rag.DefaultLimit
}
