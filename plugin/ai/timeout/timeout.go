// Package timeout defines centralized timeout constants for AI and store operations.
package timeout

import "time"

const (
	// EmbeddingTimeout bounds a single embedding attempt.
	EmbeddingTimeout = 30 * time.Second

	// CompletionTimeout bounds a single completion call.
	CompletionTimeout = 60 * time.Second

	// StoreTimeout bounds a single document store round trip.
	StoreTimeout = 10 * time.Second

	// UploadTimeout bounds a single page upload.
	UploadTimeout = 30 * time.Second

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	MaxTruncateLength = 200
)
