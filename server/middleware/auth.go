package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	apierrors "github.com/olivesarenice/telegram-rag/server/internal/errors"
)

const (
	// HeaderChatID carries the chat id of the front-end user.
	HeaderChatID = "X-Chat-Id"
	// HeaderChatUsername carries the username of the front-end user.
	HeaderChatUsername = "X-Chat-Username"
)

// Allowlist admits callers whose hashed chat id is listed and whose username matches.
type Allowlist struct {
	hashes   []string
	username string
}

// NewAllowlist creates an Allowlist over sha256 hex digests of chat ids.
// An empty username accepts any username.
func NewAllowlist(hashes []string, username string) *Allowlist {
	normalized := make([]string, 0, len(hashes))
	for _, h := range hashes {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			normalized = append(normalized, h)
		}
	}
	return &Allowlist{hashes: normalized, username: username}
}

// Enabled reports whether any chat id is allowed at all.
func (a *Allowlist) Enabled() bool {
	return len(a.hashes) > 0
}

// HashChatID returns the sha256 hex digest of chatID.
func HashChatID(chatID string) string {
	sum := sha256.Sum256([]byte(chatID))
	return hex.EncodeToString(sum[:])
}

// Allowed reports whether the caller may use the service.
func (a *Allowlist) Allowed(chatID, username string) bool {
	if chatID == "" || !slices.Contains(a.hashes, HashChatID(chatID)) {
		return false
	}
	return a.username == "" || a.username == username
}

// Middleware rejects callers outside the allow-list. It passes every request
// when the allow-list is empty.
func (a *Allowlist) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !a.Enabled() {
				return next(c)
			}
			header := c.Request().Header
			if !a.Allowed(header.Get(HeaderChatID), header.Get(HeaderChatUsername)) {
				return apierrors.Unauthorized("caller is not allowed")
			}
			return next(c)
		}
	}
}
