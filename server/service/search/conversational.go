package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"github.com/usevoxlog/voxlog/plugin/ai"
	"github.com/usevoxlog/voxlog/plugin/ai/timeout"
)

// Internal retrieval defaults, tuned for answer quality over recall.
const (
	conversationalLimit     = 5
	conversationalThreshold = 0.35
	// maxHistoryTurns caps how many prior turns are replayed to the model.
	maxHistoryTurns = 10
)

const noMatchesAnswer = "I couldn't find any journal entries related to that. Try rephrasing, or record a few more entries first."

// Answer is a synthesized conversational response with its evidence.
type Answer struct {
	Answer          string    `json:"answer"`
	RelevantEntries []*Result `json:"relevantEntries"`
	Confidence      float32   `json:"confidence"`
	TotalResults    int       `json:"totalResults"`
}

// Conversational answers free-form questions about a user's journal by
// retrieving relevant entries and synthesizing a response.
type Conversational struct {
	searcher *VectorSearcher
	llm      ai.LLMService
}

// NewConversational creates a conversational search service.
func NewConversational(searcher *VectorSearcher, llm ai.LLMService) *Conversational {
	return &Conversational{
		searcher: searcher,
		llm:      llm,
	}
}

// Answer retrieves entries relevant to query for the user and produces a
// natural-language answer. An empty retrieval is not an error: it yields a
// "no relevant entries" answer with zero confidence.
func (c *Conversational) Answer(ctx context.Context, query string, userID int32, previous []ai.Message) (*Answer, error) {
	if query == "" {
		return nil, errors.New("query cannot be empty")
	}

	results, err := c.searcher.Search(ctx, query, userID, conversationalLimit, conversationalThreshold)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return &Answer{
			Answer:          noMatchesAnswer,
			RelevantEntries: []*Result{},
			Confidence:      0,
			TotalResults:    0,
		}, nil
	}

	answer := &Answer{
		RelevantEntries: results,
		Confidence:      meanScore(results),
		TotalResults:    len(results),
	}

	text, err := c.synthesize(ctx, query, results, previous)
	if err != nil {
		// Degrade to an extractive answer instead of failing the request.
		slog.Warn("answer synthesis failed, falling back to top snippet", "error", err)
		text = results[0].Snippet
	}
	answer.Answer = text

	return answer, nil
}

func (c *Conversational) synthesize(ctx context.Context, query string, results []*Result, previous []ai.Message) (string, error) {
	if c.llm == nil {
		return "", errors.New("no LLM service configured")
	}

	var sb strings.Builder
	sb.WriteString("You are a journaling assistant. Answer the user's question using only the journal excerpts below. ")
	sb.WriteString("If the excerpts don't contain the answer, say so.\n\nJournal excerpts:\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r.Snippet)
	}

	messages := []ai.Message{{Role: ai.RoleSystem, Content: sb.String()}}
	if len(previous) > maxHistoryTurns {
		previous = previous[len(previous)-maxHistoryTurns:]
	}
	messages = append(messages, previous...)
	messages = append(messages, ai.Message{Role: ai.RoleUser, Content: query})

	chatCtx, cancel := context.WithTimeout(ctx, timeout.Chat)
	defer cancel()
	return c.llm.Chat(chatCtx, messages)
}

// meanScore averages the similarity of retrieved entries, clamped to [0,1].
// Monotonic in retrieval quality: stronger matches give higher confidence.
func meanScore(results []*Result) float32 {
	if len(results) == 0 {
		return 0
	}
	var sum float32
	for _, r := range results {
		sum += r.Score
	}
	mean := sum / float32(len(results))
	if mean < 0 {
		return 0
	}
	if mean > 1 {
		return 1
	}
	return mean
}
