package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Lee_Moderation/internal/classifier"
	"Lee_Moderation/internal/model"
)

func TestSubmitAppliesDecisionPolicy(t *testing.T) {
	tests := []struct {
		decision classifier.Decision
		want     model.PostStatus
	}{
		{classifier.DecisionApproved, model.StatusApproved},
		{classifier.DecisionFlagged, model.StatusFlagged},
		{classifier.DecisionRejected, model.StatusFlagged},
	}
	for _, tt := range tests {
		t.Run(string(tt.decision), func(t *testing.T) {
			f := newFixture()
			post, err := f.submit(tt.decision, "because", 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, post.Status)

			hist, err := f.store.History(context.Background(), post.ID)
			require.NoError(t, err)
			require.Len(t, hist, 1)
			assert.Equal(t, "because", hist[0].Reason)
			assert.True(t, hist[0].Automated())
		})
	}
}

func TestSubmitClassifierFailureIsFlagged(t *testing.T) {
	f := newFixture()
	f.classifier.result = classifier.FailSafe(classifier.ErrMalformedResponse)

	post, err := f.posts.Submit(context.Background(), 9, SubmitRequest{CommunityID: 1, Title: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusFlagged, post.Status)

	hist, err := f.store.History(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Contains(t, hist[0].Reason, "AI Error")
}

func TestSubmitForwardsContent(t *testing.T) {
	f := newFixture()
	_, err := f.posts.Submit(context.Background(), 9, SubmitRequest{
		CommunityID: 1,
		Title:       "  Look at this  ",
		Content:     "body text",
		ImageURL:    "https://img.example.com/cat.png",
	})
	require.NoError(t, err)

	in := f.classifier.input
	assert.Equal(t, "Look at this", in.Title)
	require.NotNil(t, in.Body)
	assert.Equal(t, "body text", *in.Body)
	require.NotNil(t, in.ImageRef)
	assert.Equal(t, "https://img.example.com/cat.png", *in.ImageRef)
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name string
		req  SubmitRequest
	}{
		{"missing title", SubmitRequest{CommunityID: 1}},
		{"blank title", SubmitRequest{CommunityID: 1, Title: "   "}},
		{"one char title", SubmitRequest{CommunityID: 1, Title: "a"}},
		{"missing community", SubmitRequest{Title: "Hello"}},
		{"bad image url", SubmitRequest{CommunityID: 1, Title: "Hello", ImageURL: "not a url"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.posts.Submit(context.Background(), 9, tt.req)
			assert.ErrorIs(t, err, ErrInvalidSubmission)
			assert.Zero(t, f.classifier.calls)
			assert.Empty(t, f.store.Events())
		})
	}
}

func TestSubmitAcceptsInlineImage(t *testing.T) {
	f := newFixture()
	_, err := f.posts.Submit(context.Background(), 9, SubmitRequest{
		CommunityID: 1,
		Title:       "Hello",
		ImageURL:    "data:image/png;base64,iVBORw0KGgo=",
	})
	assert.NoError(t, err)
}

func TestSubmitUnknownCommunity(t *testing.T) {
	f := newFixture()
	_, err := f.posts.Submit(context.Background(), 9, SubmitRequest{CommunityID: 42, Title: "Hello"})
	assert.ErrorIs(t, err, ErrCommunityNotFound)
	assert.Zero(t, f.classifier.calls)
}

func TestSubmitRequiresAuthor(t *testing.T) {
	f := newFixture()
	_, err := f.posts.Submit(context.Background(), 0, SubmitRequest{CommunityID: 1, Title: "Hello"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSubmitSurvivesCallerCancellation(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	post, err := f.posts.Submit(ctx, 9, SubmitRequest{CommunityID: 1, Title: "Hello"})
	require.NoError(t, err)
	assert.NoError(t, f.classifier.ctxErr)

	got, err := f.store.FindPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)
}

func TestFeedShowsOnlyApproved(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var approved []uint64
	for i := 0; i < 3; i++ {
		p, err := f.submit(classifier.DecisionApproved, "ok", 1)
		require.NoError(t, err)
		approved = append(approved, p.ID)
	}
	_, err := f.submit(classifier.DecisionFlagged, "hmm", 1)
	require.NoError(t, err)
	_, err = f.submit(classifier.DecisionRejected, "bad", 1)
	require.NoError(t, err)
	_, err = f.submit(classifier.DecisionApproved, "ok", 2)
	require.NoError(t, err)

	page, next, err := f.posts.Feed(ctx, 1, Cursor{}, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, approved[2], page[0].ID)
	assert.Equal(t, approved[1], page[1].ID)
	require.NotNil(t, next)

	page, next, err = f.posts.Feed(ctx, 1, *next, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, approved[0], page[0].ID)
	assert.Nil(t, next)

	for _, p := range page {
		assert.Equal(t, model.StatusApproved, p.Status)
	}
}

func TestFeedPicksUpModeratorApproval(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p, err := f.submit(classifier.DecisionFlagged, "hmm", 1)
	require.NoError(t, err)

	page, _, err := f.posts.Feed(ctx, 1, Cursor{}, 0)
	require.NoError(t, err)
	assert.Empty(t, page)

	_, err = f.lifecycle.Approve(ctx, p.ID, 1, "")
	require.NoError(t, err)
	page, _, err = f.posts.Feed(ctx, 1, Cursor{}, 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, p.ID, page[0].ID)
}
