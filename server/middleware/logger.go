package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	apierrors "github.com/olivesarenice/telegram-rag/server/internal/errors"
	"github.com/olivesarenice/telegram-rag/server/internal/observability"
)

// RequestLogger attaches a RequestContext to each request, logs the outcome,
// and records it in metrics when metrics is not nil.
func RequestLogger(logger *slog.Logger, metrics *observability.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rc := observability.NewRequestContext(logger, c.Response().Header().Get(echo.HeaderXRequestID), c.Path())
			c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), rc)))

			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = statusOf(err)
			}
			duration := rc.Duration()
			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.Int(observability.LogFieldStatus, status),
				slog.Int64(observability.LogFieldDuration, duration.Milliseconds()),
			}
			switch {
			case status >= http.StatusInternalServerError:
				cause := err
				if cause == nil {
					cause = errors.New(http.StatusText(status))
				}
				rc.Error("request failed", cause, append(attrs,
					slog.String(observability.LogFieldErrorCode, string(apierrors.GetCodeFromError(err, apierrors.ErrCodeInternal))))...)
			case status >= http.StatusBadRequest:
				rc.Warn("request rejected", append(attrs,
					slog.String(observability.LogFieldErrorCode, string(apierrors.GetCodeFromError(err, apierrors.ErrCodeInvalidArgument))))...)
			default:
				rc.Info("request served", attrs...)
			}

			if metrics != nil {
				metrics.Record(c.Path(), duration, status >= http.StatusInternalServerError)
			}
			return err
		}
	}
}

func statusOf(err error) int {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatus()
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return http.StatusInternalServerError
}
