package moderation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Lee_Moderation/internal/classifier"
)

func TestAuditLogHistoryAndLatest(t *testing.T) {
	store := NewMemoryStore()
	l := NewLifecycle(store, newStepClock())
	audit := NewAuditLog(store)
	ctx := context.Background()

	p := mustCreate(t, l, "x", verdict(classifier.DecisionFlagged, "borderline"))

	latest, err := audit.Latest(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "borderline", latest.Reason)

	_, err = l.Reject(ctx, p.ID, 5, "confirmed harassment")
	require.NoError(t, err)

	hist, err := audit.History(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "REJECTED", hist[0].Action)
	assert.Equal(t, "confirmed harassment", hist[0].Reason)
	assert.Equal(t, "FLAGGED", hist[1].Action)
	assert.True(t, hist[0].CreatedAt.After(hist[1].CreatedAt))

	latest, err = audit.Latest(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, hist[0].ID, latest.ID)
}

func TestAuditLogUnknownPost(t *testing.T) {
	audit := NewAuditLog(NewMemoryStore())
	_, err := audit.History(context.Background(), 77)
	assert.ErrorIs(t, err, ErrPostNotFound)
	_, err = audit.Latest(context.Background(), 77)
	assert.ErrorIs(t, err, ErrPostNotFound)
}
