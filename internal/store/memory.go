package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/sells-group/audit-cli/internal/model"
)

const (
	sessionKeyPrefix    = "session:"
	comparisonKeyPrefix = "comparisons:"
)

// MemoryStore keeps sessions in process memory. Entries expire after the
// configured TTL of inactivity; a zero TTL keeps them forever.
type MemoryStore struct {
	mu    sync.Mutex
	cache *gocache.Cache
	ttl   time.Duration
}

// NewMemory creates an in-memory store.
func NewMemory(ttl time.Duration) *MemoryStore {
	exp := ttl
	if exp <= 0 {
		exp = gocache.NoExpiration
	}
	return &MemoryStore{
		cache: gocache.New(exp, 10*time.Minute),
		ttl:   exp,
	}
}

func (m *MemoryStore) Migrate(context.Context) error { return nil }

func (m *MemoryStore) Close() error {
	m.cache.Flush()
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*model.SessionRecord, error) {
	v, ok := m.cache.Get(sessionKeyPrefix + id)
	if !ok {
		return nil, nil
	}
	rec := v.(model.SessionRecord)
	return &rec, nil
}

func (m *MemoryStore) SaveSession(_ context.Context, id string, state model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	rec := model.SessionRecord{ID: id, State: state, CreatedAt: now, UpdatedAt: now}
	if v, ok := m.cache.Get(sessionKeyPrefix + id); ok {
		rec.CreatedAt = v.(model.SessionRecord).CreatedAt
	}
	m.cache.Set(sessionKeyPrefix+id, rec, m.ttl)
	return nil
}

func (m *MemoryStore) ListSessions(_ context.Context, limit int) ([]model.SessionRecord, error) {
	var out []model.SessionRecord
	for k, item := range m.cache.Items() {
		if strings.HasPrefix(k, sessionKeyPrefix) {
			out = append(out, item.Object.(model.SessionRecord))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if n := listLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Delete(sessionKeyPrefix + id)
	m.cache.Delete(comparisonKeyPrefix + id)
	return nil
}

func (m *MemoryStore) AddComparison(_ context.Context, rec *model.ComparisonRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fillComparison(rec)
	var recs []model.ComparisonRecord
	if v, ok := m.cache.Get(comparisonKeyPrefix + rec.SessionID); ok {
		recs = v.([]model.ComparisonRecord)
	}
	// Newest first; copy so earlier readers keep their slice.
	next := make([]model.ComparisonRecord, 0, len(recs)+1)
	next = append(next, *rec)
	next = append(next, recs...)
	m.cache.Set(comparisonKeyPrefix+rec.SessionID, next, m.ttl)
	return nil
}

func (m *MemoryStore) LatestComparison(ctx context.Context, sessionID string) (*model.ComparisonRecord, error) {
	recs, _ := m.ListComparisons(ctx, ComparisonFilter{SessionID: sessionID, Limit: 1})
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func (m *MemoryStore) ListComparisons(_ context.Context, filter ComparisonFilter) ([]model.ComparisonRecord, error) {
	var out []model.ComparisonRecord
	if filter.SessionID != "" {
		if v, ok := m.cache.Get(comparisonKeyPrefix + filter.SessionID); ok {
			out = append(out, v.([]model.ComparisonRecord)...)
		}
	} else {
		for k, item := range m.cache.Items() {
			if strings.HasPrefix(k, comparisonKeyPrefix) {
				out = append(out, item.Object.([]model.ComparisonRecord)...)
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	if n := listLimit(filter.Limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}
