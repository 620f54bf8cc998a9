package embedding

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svc "github.com/usevoxlog/voxlog/server/service/embedding"
	"github.com/usevoxlog/voxlog/store"
)

type stubEmbedder struct{ dims int }

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return make([]float32, s.dims), nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, s.dims)
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return s.dims }

type stubStore struct {
	mu         sync.Mutex
	entries    []*store.JournalEntry
	embeddings map[int32]*store.EntryEmbedding
}

func newStubStore(entries ...*store.JournalEntry) *stubStore {
	return &stubStore{entries: entries, embeddings: map[int32]*store.EntryEmbedding{}}
}

func (s *stubStore) GetJournalEntry(_ context.Context, find *store.FindJournalEntry) (*store.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if find.ID != nil && e.ID == *find.ID {
			return e, nil
		}
	}
	return nil, nil
}

func (s *stubStore) CountJournalEntries(context.Context, *store.FindJournalEntry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

func (s *stubStore) FindEntriesWithoutEmbedding(_ context.Context, find *store.FindEntriesWithoutEmbedding) ([]*store.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	missing := []*store.JournalEntry{}
	for _, e := range s.entries {
		if _, ok := s.embeddings[e.ID]; ok {
			continue
		}
		missing = append(missing, e)
		if find.Limit > 0 && len(missing) >= find.Limit {
			break
		}
	}
	return missing, nil
}

func (s *stubStore) CountEntriesWithEmbedding(context.Context, int32, string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.embeddings), nil
}

func (s *stubStore) UpsertEntryEmbedding(_ context.Context, e *store.EntryEmbedding) (*store.EntryEmbedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embeddings[e.EntryID] = e
	return e, nil
}

func (s *stubStore) embeddingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.embeddings)
}

func TestNewRunnerDefaults(t *testing.T) {
	p := svc.NewProcessor(newStubStore(), &stubEmbedder{dims: 8}, "test-model")
	r := NewRunner(p)

	assert.Equal(t, 2*time.Minute, r.interval)
	assert.Equal(t, 8, r.batchSize)
}

func TestRunOnceSweepsAllMissing(t *testing.T) {
	entries := []*store.JournalEntry{}
	for i := int32(1); i <= 20; i++ {
		entries = append(entries, &store.JournalEntry{ID: i, CreatorID: 1, Content: "entry", RowStatus: store.Normal})
	}
	s := newStubStore(entries...)
	p := svc.NewProcessor(s, &stubEmbedder{dims: 8}, "test-model")
	r := NewRunner(p)

	r.RunOnce(context.Background())

	// Multiple batches of 8 until the corpus is covered.
	assert.Equal(t, 20, s.embeddingCount())
}

func TestRunDrainsQueueAndStopsOnCancel(t *testing.T) {
	s := newStubStore(&store.JournalEntry{ID: 42, CreatorID: 1, Content: "queued", RowStatus: store.Normal})
	p := svc.NewProcessor(s, &stubEmbedder{dims: 8}, "test-model")
	r := NewRunner(p)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	p.QueueEntry(42)

	require.Eventually(t, func() bool {
		return s.embeddingCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop on context cancel")
	}
}
