// Package timeout defines deadlines for calls to external AI providers.
package timeout

import "time"

const (
	// Embedding is the deadline for a single embedding API call.
	Embedding = 30 * time.Second

	// Chat is the deadline for a chat completion used in answer synthesis.
	Chat = 2 * time.Minute
)
