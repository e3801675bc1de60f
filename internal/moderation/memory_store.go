package moderation

import (
	"context"
	"sort"
	"sync"
	"time"

	"Lee_Moderation/internal/model"
)

// MemoryStore implements Store (and the outbox queries) with in-memory maps.
// A single mutex makes each write observe the status check and the log append together.
type MemoryStore struct {
	mu      sync.RWMutex
	postSeq uint64
	logSeq  uint64
	evtSeq  uint64
	posts   map[uint64]model.Post
	logs    []model.ModerationLog
	events  []model.ModerationEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{posts: make(map[uint64]model.Post)}
}

func (m *MemoryStore) CreatePost(_ context.Context, post *model.Post, entry *model.ModerationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.postSeq++
	post.ID = m.postSeq
	e := *entry
	e.PostID = post.ID
	ev, err := model.NewModerationEvent(model.EventPostCreated, post, &e)
	if err != nil {
		m.postSeq--
		return err
	}
	m.logSeq++
	e.ID = m.logSeq
	*entry = e

	m.posts[post.ID] = *post
	m.logs = append(m.logs, e)
	m.appendEvent(*ev)
	return nil
}

func (m *MemoryStore) TransitionPost(_ context.Context, t Transition) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[t.PostID]
	if !ok {
		return nil, ErrPostNotFound
	}
	if p.Status != t.From {
		return nil, ErrIllegalTransition
	}
	p.Status = t.To
	p.UpdatedAt = t.At

	e := *t.Entry
	e.PostID = p.ID
	ev, err := model.NewModerationEvent(model.EventPostModerated, &p, &e)
	if err != nil {
		return nil, err
	}
	m.logSeq++
	e.ID = m.logSeq
	*t.Entry = e

	m.posts[p.ID] = p
	m.logs = append(m.logs, e)
	m.appendEvent(*ev)
	return &p, nil
}

func (m *MemoryStore) appendEvent(ev model.ModerationEvent) {
	m.evtSeq++
	ev.ID = m.evtSeq
	ev.CreatedAt = time.Now().UTC()
	ev.UpdatedAt = ev.CreatedAt
	m.events = append(m.events, ev)
}

func (m *MemoryStore) FindPost(_ context.Context, id uint64) (*model.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	return &p, nil
}

func (m *MemoryStore) History(_ context.Context, postID uint64) ([]model.ModerationLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.ModerationLog
	for _, e := range m.logs {
		if e.PostID == postID {
			out = append(out, e)
		}
	}
	sortEntriesDesc(out)
	return out, nil
}

func (m *MemoryStore) LatestEntries(_ context.Context, postIDs []uint64) (map[uint64]model.ModerationLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := make(map[uint64]struct{}, len(postIDs))
	for _, id := range postIDs {
		want[id] = struct{}{}
	}
	out := make(map[uint64]model.ModerationLog, len(postIDs))
	for _, e := range m.logs {
		if _, ok := want[e.PostID]; !ok {
			continue
		}
		if cur, ok := out[e.PostID]; !ok || newerEntry(e, cur) {
			out[e.PostID] = e
		}
	}
	return out, nil
}

func (m *MemoryStore) ListPosts(_ context.Context, f PostFilter) ([]model.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Post
	for _, p := range m.posts {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.CommunityID != 0 && p.CommunityID != f.CommunityID {
			continue
		}
		if !f.BeforeCreatedAt.IsZero() {
			if p.CreatedAt.After(f.BeforeCreatedAt) {
				continue
			}
			if p.CreatedAt.Equal(f.BeforeCreatedAt) && p.ID >= f.BeforeID {
				continue
			}
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryStore) CountPosts(_ context.Context, status model.PostStatus, updatedSince time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, p := range m.posts {
		if p.Status != status {
			continue
		}
		if !updatedSince.IsZero() && p.UpdatedAt.Before(updatedSince) {
			continue
		}
		n++
	}
	return n, nil
}

// PendingEvents 未发送或失败但未超过重试上限的事件，按 id 升序
func (m *MemoryStore) PendingEvents(_ context.Context, limit, maxRetry int) ([]model.ModerationEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.ModerationEvent
	for _, ev := range m.events {
		if ev.State == model.EventStatePending || (ev.State == model.EventStateFailed && ev.Retry < maxRetry) {
			out = append(out, ev)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) MarkEventSent(_ context.Context, id uint64) error {
	m.updateEvent(id, func(ev *model.ModerationEvent) { ev.State = model.EventStateSent })
	return nil
}

func (m *MemoryStore) MarkEventFailed(_ context.Context, id uint64) error {
	m.updateEvent(id, func(ev *model.ModerationEvent) {
		ev.State = model.EventStateFailed
		ev.Retry++
	})
	return nil
}

func (m *MemoryStore) updateEvent(id uint64, fn func(*model.ModerationEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.events {
		if m.events[i].ID == id {
			fn(&m.events[i])
			m.events[i].UpdatedAt = time.Now().UTC()
			return
		}
	}
}

// Events 全部 outbox 事件的快照
func (m *MemoryStore) Events() []model.ModerationEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.ModerationEvent, len(m.events))
	copy(out, m.events)
	return out
}

func newerEntry(a, b model.ModerationLog) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func sortEntriesDesc(entries []model.ModerationLog) {
	sort.Slice(entries, func(i, j int) bool { return newerEntry(entries[i], entries[j]) })
}
