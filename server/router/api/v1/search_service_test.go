package v1

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usevoxlog/voxlog/store"
)

func seedSearchCorpus(driver *fakeDriver) {
	beach := &store.JournalEntry{ID: 101, UID: "beach", CreatorID: 1, Content: "beach trip with family", CreatedTs: 200, RowStatus: store.Normal}
	tax := &store.JournalEntry{ID: 102, UID: "tax", CreatorID: 1, Content: "quarterly tax filing", CreatedTs: 100, RowStatus: store.Normal}
	other := &store.JournalEntry{ID: 103, UID: "other", CreatorID: 2, Content: "someone else's beach", CreatedTs: 300, RowStatus: store.Normal}
	driver.entries = append(driver.entries, beach, tax, other)
	driver.vectorResults = []*store.EntryWithScore{
		{Entry: beach, Score: 0.9},
		{Entry: tax, Score: 0.1},
		{Entry: other, Score: 0.95},
	}
	driver.keywordResults = []*store.KeywordResult{
		{Entry: beach, Score: 0.8},
	}
}

func TestEnhancedSearchVectorMode(t *testing.T) {
	driver := newFakeDriver()
	seedSearchCorpus(driver)
	svc := newTestService(driver)

	c, rec := newTestContext(http.MethodPost, "/api/search/enhanced",
		`{"query":"family vacation","mode":"vector","threshold":0.3}`, 1)
	require.NoError(t, svc.EnhancedSearch(c))
	require.Equal(t, http.StatusOK, rec.Code)

	response := &EnhancedSearchResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), response))
	assert.Equal(t, "vector", response.Mode)
	// The tax entry is below threshold and entry 103 belongs to another user.
	require.Len(t, response.Results, 1)
	assert.Equal(t, "beach", response.Results[0].EntryUID)
	assert.Nil(t, response.Answer)
}

func TestEnhancedSearchHybridMode(t *testing.T) {
	driver := newFakeDriver()
	seedSearchCorpus(driver)
	svc := newTestService(driver)

	c, rec := newTestContext(http.MethodPost, "/api/search/enhanced",
		`{"query":"beach","mode":"hybrid","strategy":"balanced"}`, 1)
	require.NoError(t, svc.EnhancedSearch(c))
	require.Equal(t, http.StatusOK, rec.Code)

	response := &EnhancedSearchResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), response))
	assert.Equal(t, "hybrid", response.Mode)
	require.NotEmpty(t, response.Results)
	assert.Equal(t, "beach", response.Results[0].EntryUID)
}

func TestEnhancedSearchConversationalMode(t *testing.T) {
	driver := newFakeDriver()
	seedSearchCorpus(driver)
	svc := newTestService(driver)

	c, rec := newTestContext(http.MethodPost, "/api/search/enhanced",
		`{"query":"what did we do at the beach?","mode":"conversational"}`, 1)
	require.NoError(t, svc.EnhancedSearch(c))
	require.Equal(t, http.StatusOK, rec.Code)

	response := &EnhancedSearchResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), response))
	require.NotNil(t, response.Answer)
	assert.Nil(t, response.Results)
	assert.NotEmpty(t, response.Answer.Answer)
	assert.Greater(t, response.Answer.Confidence, float32(0))
}

func TestEnhancedSearchValidation(t *testing.T) {
	svc := newTestService(newFakeDriver())

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"missing query", `{"mode":"vector"}`, "query"},
		{"bad mode", `{"query":"q","mode":"telepathic"}`, "mode"},
		{"limit too large", `{"query":"q","limit":51}`, "limit"},
		{"limit zero", `{"query":"q","limit":0}`, "limit"},
		{"threshold out of range", `{"query":"q","threshold":1.5}`, "threshold"},
		{"negative threshold", `{"query":"q","threshold":-0.1}`, "threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newTestContext(http.MethodPost, "/api/search/enhanced", tt.body, 1)
			require.NoError(t, svc.EnhancedSearch(c))
			require.Equal(t, http.StatusBadRequest, rec.Code)

			response := &ValidationErrorResponse{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), response))
			require.NotEmpty(t, response.Errors)
			assert.Equal(t, tt.wantField, response.Errors[0].Field)
		})
	}
}

func TestEnhancedSearchWithoutAI(t *testing.T) {
	svc := newTestService(newFakeDriver())
	svc.Processor = nil

	c, rec := newTestContext(http.MethodPost, "/api/search/enhanced", `{"query":"q"}`, 1)
	require.NoError(t, svc.EnhancedSearch(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestConversationSearch(t *testing.T) {
	driver := newFakeDriver()
	seedSearchCorpus(driver)
	svc := newTestService(driver)

	c, rec := newTestContext(http.MethodPost, "/api/search/conversation",
		`{"query":"tell me about the beach","previousMessages":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`, 1)
	require.NoError(t, svc.ConversationSearch(c))
	require.Equal(t, http.StatusOK, rec.Code)

	response := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.NotEmpty(t, response["answer"])
	assert.Contains(t, response, "confidence")
	assert.Contains(t, response, "executionTimeMs")
}

func TestConversationSearchEmptyCorpus(t *testing.T) {
	svc := newTestService(newFakeDriver())

	c, rec := newTestContext(http.MethodPost, "/api/search/conversation", `{"query":"anything"}`, 1)
	require.NoError(t, svc.ConversationSearch(c))
	require.Equal(t, http.StatusOK, rec.Code)

	response := &ConversationSearchResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), response))
	assert.Equal(t, float32(0), response.Confidence)
	assert.Empty(t, response.RelevantEntries)
	assert.Zero(t, response.TotalResults)
}

func TestConversationSearchRequiresQuery(t *testing.T) {
	svc := newTestService(newFakeDriver())

	c, rec := newTestContext(http.MethodPost, "/api/search/conversation", `{}`, 1)
	require.NoError(t, svc.ConversationSearch(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
