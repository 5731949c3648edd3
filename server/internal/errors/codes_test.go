package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError_HTTPStatus(t *testing.T) {
	tests := []struct {
		err  *APIError
		want int
	}{
		{InvalidArgument("bad"), http.StatusBadRequest},
		{Unauthorized("no"), http.StatusUnauthorized},
		{RateLimitExceeded("slow down"), http.StatusTooManyRequests},
		{LLMUnavailable(nil), http.StatusBadGateway},
		{EnrichmentIncomplete(nil), http.StatusBadGateway},
		{StoreUnavailable(nil), http.StatusServiceUnavailable},
		{Wrap(nil, ErrCodeInternal, "boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestAPIError_Wrapping(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := fmt.Errorf("handler: %w", StoreUnavailable(cause))

	assert.True(t, IsCode(err, ErrCodeStoreUnavailable))
	assert.False(t, IsCode(err, ErrCodeLLMUnavailable))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeStoreUnavailable, GetCodeFromError(err, ErrCodeInternal))
	assert.Equal(t, ErrCodeInternal, GetCodeFromError(cause, ErrCodeInternal))
}

func TestAPIError_BodyHidesCause(t *testing.T) {
	err := LLMUnavailable(fmt.Errorf("api key sk-123 rejected"))
	body := err.Body()
	assert.Equal(t, ErrCodeLLMUnavailable, body.Code)
	assert.NotContains(t, body.Message, "sk-123")
	assert.Contains(t, err.Error(), "sk-123")
}
