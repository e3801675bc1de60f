package service

import (
	"context"
	"sync"
	"time"

	"Lee_Moderation/internal/classifier"
	"Lee_Moderation/internal/model"
	"Lee_Moderation/internal/moderation"
	"Lee_Moderation/internal/repository/db"
)

type stubClassifier struct {
	mu     sync.Mutex
	result classifier.Result
	calls  int
	input  classifier.Input
	ctxErr error
}

func (s *stubClassifier) Classify(ctx context.Context, in classifier.Input) classifier.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.input = in
	s.ctxErr = ctx.Err()
	return s.result
}

type stubCommunities map[uint64]model.Community

func (s stubCommunities) FindByID(_ context.Context, id uint64) (*model.Community, error) {
	c, ok := s[id]
	if !ok {
		return nil, db.ErrCommunityNotFound
	}
	return &c, nil
}

type tickClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTickClock() *tickClock {
	return &tickClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

type fixture struct {
	store      *moderation.MemoryStore
	clock      *tickClock
	lifecycle  *moderation.Lifecycle
	classifier *stubClassifier
	posts      *PostService
}

func newFixture() *fixture {
	store := moderation.NewMemoryStore()
	clock := newTickClock()
	lc := moderation.NewLifecycle(store, clock)
	cls := &stubClassifier{result: classifier.Result{Decision: classifier.DecisionApproved, Reason: "benign"}}
	communities := stubCommunities{1: {ID: 1, Name: "General", Slug: "general"}, 2: {ID: 2, Name: "Tech", Slug: "tech"}}
	return &fixture{
		store:      store,
		clock:      clock,
		lifecycle:  lc,
		classifier: cls,
		posts:      NewPostService(store, lc, communities, cls, time.Second),
	}
}

func (f *fixture) submit(decision classifier.Decision, reason string, community uint64) (*model.Post, error) {
	f.classifier.result = classifier.Result{Decision: decision, Reason: reason}
	return f.posts.Submit(context.Background(), 9, SubmitRequest{CommunityID: community, Title: "A title"})
}

var (
	moderator = Actor{ID: 100, Role: model.RoleModerator}
	admin     = Actor{ID: 200, Role: model.RoleAdmin}
	member    = Actor{ID: 300, Role: model.RoleUser}
)
