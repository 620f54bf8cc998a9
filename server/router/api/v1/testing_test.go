package v1

import (
	"context"
	"database/sql"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/usevoxlog/voxlog/internal/profile"
	"github.com/usevoxlog/voxlog/plugin/email"
	apimw "github.com/usevoxlog/voxlog/server/middleware"
	"github.com/usevoxlog/voxlog/server/service/embedding"
	"github.com/usevoxlog/voxlog/server/service/search"
	"github.com/usevoxlog/voxlog/store"
)

// fakeDriver is an in-memory store.Driver for handler tests.
type fakeDriver struct {
	mu sync.Mutex

	nextID     int32
	entries    []*store.JournalEntry
	embeddings map[int32]*store.EntryEmbedding
	comments   []*store.Comment
	users      []*store.User

	vectorResults  []*store.EntryWithScore
	keywordResults []*store.KeywordResult
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{nextID: 1, embeddings: map[int32]*store.EntryEmbedding{}}
}

func (d *fakeDriver) GetDB() *sql.DB                { return nil }
func (d *fakeDriver) Close() error                  { return nil }
func (d *fakeDriver) Migrate(context.Context) error { return nil }

func (d *fakeDriver) CreateJournalEntry(_ context.Context, create *store.JournalEntry) (*store.JournalEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	create.ID = d.nextID
	d.nextID++
	now := time.Now().Unix()
	create.CreatedTs = now
	create.UpdatedTs = now
	d.entries = append(d.entries, create)
	return create, nil
}

func matchEntry(e *store.JournalEntry, find *store.FindJournalEntry) bool {
	if find.ID != nil && e.ID != *find.ID {
		return false
	}
	if find.UID != nil && e.UID != *find.UID {
		return false
	}
	if find.CreatorID != nil && e.CreatorID != *find.CreatorID {
		return false
	}
	if find.RowStatus != nil && e.RowStatus != *find.RowStatus {
		return false
	}
	return true
}

func (d *fakeDriver) ListJournalEntries(_ context.Context, find *store.FindJournalEntry) ([]*store.JournalEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	matched := []*store.JournalEntry{}
	for _, e := range d.entries {
		if matchEntry(e, find) {
			matched = append(matched, e)
		}
	}
	if find.Offset != nil && *find.Offset < len(matched) {
		matched = matched[*find.Offset:]
	} else if find.Offset != nil {
		matched = nil
	}
	if find.Limit != nil && len(matched) > *find.Limit {
		matched = matched[:*find.Limit]
	}
	return matched, nil
}

func (d *fakeDriver) UpdateJournalEntry(_ context.Context, update *store.UpdateJournalEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.entries {
		if e.ID != update.ID {
			continue
		}
		if update.Title != nil {
			if *update.Title == "" {
				e.Title = nil
			} else {
				e.Title = update.Title
			}
		}
		if update.Content != nil {
			e.Content = *update.Content
		}
		if update.UpdatedTs != nil {
			e.UpdatedTs = *update.UpdatedTs
		}
		if update.RowStatus != nil {
			e.RowStatus = *update.RowStatus
		}
		return nil
	}
	return nil
}

func (d *fakeDriver) CountJournalEntries(_ context.Context, find *store.FindJournalEntry) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	count := 0
	for _, e := range d.entries {
		if matchEntry(e, find) {
			count++
		}
	}
	return count, nil
}

func (d *fakeDriver) UpsertEntryEmbedding(_ context.Context, e *store.EntryEmbedding) (*store.EntryEmbedding, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.embeddings[e.EntryID] = e
	return e, nil
}

func (d *fakeDriver) ListEntryEmbeddings(_ context.Context, find *store.FindEntryEmbedding) ([]*store.EntryEmbedding, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*store.EntryEmbedding{}
	for _, e := range d.embeddings {
		if find.EntryID != nil && e.EntryID != *find.EntryID {
			continue
		}
		if find.Model != nil && e.Model != *find.Model {
			continue
		}
		list = append(list, e)
	}
	return list, nil
}

func (d *fakeDriver) DeleteEntryEmbedding(_ context.Context, entryID int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.embeddings, entryID)
	return nil
}

func (d *fakeDriver) FindEntriesWithoutEmbedding(_ context.Context, find *store.FindEntriesWithoutEmbedding) ([]*store.JournalEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	missing := []*store.JournalEntry{}
	for _, e := range d.entries {
		if _, ok := d.embeddings[e.ID]; ok {
			continue
		}
		if find.CreatorID != nil && e.CreatorID != *find.CreatorID {
			continue
		}
		missing = append(missing, e)
		if find.Limit > 0 && len(missing) >= find.Limit {
			break
		}
	}
	return missing, nil
}

func (d *fakeDriver) CountEntriesWithEmbedding(_ context.Context, creatorID int32, model string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	count := 0
	for _, e := range d.entries {
		if e.CreatorID != creatorID {
			continue
		}
		if emb, ok := d.embeddings[e.ID]; ok && emb.Model == model {
			count++
		}
	}
	return count, nil
}

func (d *fakeDriver) VectorSearch(_ context.Context, opts *store.VectorSearchOptions) ([]*store.EntryWithScore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	results := []*store.EntryWithScore{}
	for _, r := range d.vectorResults {
		if r.Entry.CreatorID == opts.CreatorID {
			results = append(results, r)
		}
	}
	return results, nil
}

func (d *fakeDriver) KeywordSearch(_ context.Context, opts *store.KeywordSearchOptions) ([]*store.KeywordResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	results := []*store.KeywordResult{}
	for _, r := range d.keywordResults {
		if r.Entry.CreatorID == opts.CreatorID {
			results = append(results, r)
		}
	}
	return results, nil
}

func (d *fakeDriver) CreateComment(_ context.Context, create *store.Comment) (*store.Comment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	create.ID = d.nextID
	d.nextID++
	create.CreatedTs = time.Now().Unix()
	d.comments = append(d.comments, create)
	return create, nil
}

func (d *fakeDriver) ListComments(_ context.Context, find *store.FindComment) ([]*store.Comment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*store.Comment{}
	for _, cm := range d.comments {
		if find.EntryID != nil && cm.EntryID != *find.EntryID {
			continue
		}
		list = append(list, cm)
	}
	return list, nil
}

func (d *fakeDriver) CreateUser(_ context.Context, create *store.User) (*store.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	create.ID = d.nextID
	d.nextID++
	create.CreatedTs = time.Now().Unix()
	d.users = append(d.users, create)
	return create, nil
}

func (d *fakeDriver) ListUsers(_ context.Context, find *store.FindUser) ([]*store.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*store.User{}
	for _, u := range d.users {
		if find.ID != nil && u.ID != *find.ID {
			continue
		}
		if find.Username != nil && u.Username != *find.Username {
			continue
		}
		list = append(list, u)
	}
	return list, nil
}

// recordingSender captures notification emails instead of delivering them.
type recordingSender struct {
	mu   sync.Mutex
	sent []sentMail
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func (r *recordingSender) Enabled() bool { return true }

func (r *recordingSender) Send(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func (r *recordingSender) last() sentMail {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[len(r.sent)-1]
}

// fakeEmbedder returns a constant unit vector for any input.
type fakeEmbedder struct{ dims int }

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	v := make([]float32, f.dims)
	v[0] = 1
	return v, nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		v := make([]float32, f.dims)
		v[0] = 1
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dims }

const testModel = "test-embedding-model"

// newTestService assembles an APIV1Service on top of the fake driver with the
// AI-backed services enabled.
func newTestService(driver *fakeDriver) *APIV1Service {
	prof := &profile.Profile{Mode: "dev", Driver: "sqlite"}
	st := store.New(driver, prof)
	embedder := &fakeEmbedder{dims: 4}

	vector := search.NewVectorSearcher(st, embedder, testModel)
	return &APIV1Service{
		aiLimiter:      apimw.NewRateLimiter(1000, 1000),
		Secret:         "test-secret",
		Profile:        prof,
		Store:          st,
		Processor:      embedding.NewProcessor(st, embedder, testModel),
		VectorSearcher: vector,
		HybridSearcher: search.NewHybridSearcher(vector, st),
		Conversational: search.NewConversational(vector, nil),
		EmailSender:    email.NewSender(&email.Config{}),
	}
}

// newTestContext builds an echo context for a handler call with the user
// already authenticated.
func newTestContext(method, path, body string, userID int32) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(userIDContextKey, userID)
	return c, rec
}
