package moderation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"Lee_Moderation/internal/classifier"
	"Lee_Moderation/internal/model"
)

// stepClock 每次调用前进一秒，保证创建时间严格递增
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func verdict(d classifier.Decision, reason string) classifier.Result {
	return classifier.Result{Decision: d, Reason: reason}
}

func draft(title string) Draft {
	return Draft{CommunityID: 1, AuthorID: 7, Title: title}
}

func mustCreate(t *testing.T, l *Lifecycle, title string, res classifier.Result) *model.Post {
	t.Helper()
	p, err := l.Create(context.Background(), draft(title), res)
	require.NoError(t, err)
	return p
}
