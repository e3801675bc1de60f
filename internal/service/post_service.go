package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"Lee_Moderation/internal/classifier"
	"Lee_Moderation/internal/model"
	"Lee_Moderation/internal/moderation"
	"Lee_Moderation/internal/repository/db"
)

const (
	DefaultSubmitTimeout = 30 * time.Second
	DefaultFeedLimit     = 20
	MaxFeedLimit         = 50
)

// Classifier 分类器适配层的最小契约
type Classifier interface {
	Classify(ctx context.Context, in classifier.Input) classifier.Result
}

type CommunityFinder interface {
	FindByID(ctx context.Context, id uint64) (*model.Community, error)
}

// SubmitRequest 发帖请求体
type SubmitRequest struct {
	CommunityID uint64 `json:"community_id" validate:"required"`
	Title       string `json:"title" validate:"required,min=2,max=200"`
	Content     string `json:"content" validate:"max=20000"`
	ImageURL    string `json:"image_url" validate:"omitempty,max=14000000,url|datauri"`
}

// Cursor (created_at, id) 游标，零值表示第一页
type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        uint64    `json:"id"`
}

func (c Cursor) IsZero() bool { return c.CreatedAt.IsZero() && c.ID == 0 }

type PostService struct {
	lifecycle   *moderation.Lifecycle
	store       moderation.Store
	communities CommunityFinder
	classifier  Classifier
	validate    *validator.Validate
	timeout     time.Duration
}

func NewPostService(store moderation.Store, lifecycle *moderation.Lifecycle, communities CommunityFinder, c Classifier, timeout time.Duration) *PostService {
	if timeout <= 0 {
		timeout = DefaultSubmitTimeout
	}
	return &PostService{
		lifecycle:   lifecycle,
		store:       store,
		communities: communities,
		classifier:  c,
		validate:    validator.New(),
		timeout:     timeout,
	}
}

// Submit 发帖：校验、分类、按策略落库。
// 校验之后的步骤使用脱离调用方取消的 context，客户端断开后帖子仍然会完整落库
func (s *PostService) Submit(ctx context.Context, authorID uint64, req SubmitRequest) (*model.Post, error) {
	if authorID == 0 {
		return nil, ErrUnauthorized
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	req.ImageURL = strings.TrimSpace(req.ImageURL)
	if err := s.validate.Struct(req); err != nil {
		return nil, invalid(ErrInvalidSubmission, err)
	}

	work, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if _, err := s.communities.FindByID(work, req.CommunityID); err != nil {
		if errors.Is(err, db.ErrCommunityNotFound) {
			return nil, ErrCommunityNotFound
		}
		return nil, err
	}

	draft := moderation.Draft{
		CommunityID: req.CommunityID,
		AuthorID:    authorID,
		Title:       req.Title,
		Content:     optional(req.Content),
		ImageURL:    optional(req.ImageURL),
	}

	res := s.classifier.Classify(work, classifier.Input{
		Title:    draft.Title,
		Body:     draft.Content,
		ImageRef: draft.ImageURL,
	})
	post, err := s.lifecycle.Create(work, draft, res)
	if err != nil {
		log.Printf("moderation: submit by user %d failed: %v", authorID, err)
		return nil, err
	}
	log.Printf("moderation: post %d created as %s (%s)", post.ID, post.Status, res.Reason)
	return post, nil
}

// Feed 社区公开帖子，只包含 APPROVED
func (s *PostService) Feed(ctx context.Context, communityID uint64, cur Cursor, limit int) ([]model.Post, *Cursor, error) {
	if communityID == 0 {
		return nil, nil, ErrCommunityNotFound
	}
	if limit <= 0 || limit > MaxFeedLimit {
		limit = DefaultFeedLimit
	}
	list, err := s.store.ListPosts(ctx, moderation.PostFilter{
		Status:          model.StatusApproved,
		CommunityID:     communityID,
		BeforeCreatedAt: cur.CreatedAt,
		BeforeID:        cur.ID,
		Limit:           limit,
	})
	if err != nil {
		return nil, nil, err
	}
	if list == nil {
		list = []model.Post{}
	}
	return list, nextCursor(list, limit), nil
}

// nextCursor 满页时返回最后一条作为下一页游标
func nextCursor(list []model.Post, limit int) *Cursor {
	if len(list) == 0 || len(list) < limit {
		return nil
	}
	last := list[len(list)-1]
	return &Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
