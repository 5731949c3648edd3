package v1

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	apierrors "github.com/olivesarenice/telegram-rag/server/internal/errors"
)

// maxBodyBytes bounds request bodies; note text is capped well below this.
const maxBodyBytes = 1 << 20

// MessageRequest is the body of /send_message and /get_message.
type MessageRequest struct {
	MessageID string
	Text      string
}

type rawMessageRequest struct {
	MessageID json.RawMessage `json:"message_id"`
	Text      *string         `json:"text"`
}

// bindMessage decodes a MessageRequest. The body may be a JSON object or a
// JSON string holding the object, and message_id may be a number or a string.
func bindMessage(c echo.Context) (*MessageRequest, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err != nil {
		return nil, apierrors.Wrap(err, apierrors.ErrCodeInvalidArgument, "failed to read body")
	}
	return parseMessage(body)
}

func parseMessage(body []byte) (*MessageRequest, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '"' {
		var inner string
		if err := json.Unmarshal(body, &inner); err != nil {
			return nil, apierrors.Wrap(err, apierrors.ErrCodeInvalidArgument, "body is not valid JSON")
		}
		body = []byte(inner)
	}

	var raw rawMessageRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apierrors.Wrap(err, apierrors.ErrCodeInvalidArgument, "body is not a JSON object")
	}

	messageID, err := parseMessageID(raw.MessageID)
	if err != nil {
		return nil, err
	}
	if raw.Text == nil || strings.TrimSpace(*raw.Text) == "" {
		return nil, apierrors.InvalidArgument("text is required")
	}
	return &MessageRequest{MessageID: messageID, Text: *raw.Text}, nil
}

func parseMessageID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if _, err := strconv.ParseFloat(n.String(), 64); err == nil {
			return n.String(), nil
		}
	}
	return "", apierrors.InvalidArgument("message_id must be a number or a string")
}
