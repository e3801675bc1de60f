package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"Lee_Moderation/internal/model"
	"Lee_Moderation/internal/moderation"
)

// Actor 当前调用者
type Actor struct {
	ID   uint64
	Role model.Role
}

// Authorizer 判断调用者能否执行审核 / 管理操作
type Authorizer interface {
	CanModerate(a Actor) bool
	CanAdminister(a Actor) bool
}

// RoleAuthorizer 按角色判断：MODERATOR 和 ADMIN 可以审核，只有 ADMIN 可以管理
type RoleAuthorizer struct{}

func (RoleAuthorizer) CanModerate(a Actor) bool {
	return a.ID != 0 && (a.Role == model.RoleModerator || a.Role == model.RoleAdmin)
}

func (RoleAuthorizer) CanAdminister(a Actor) bool {
	return a.ID != 0 && a.Role == model.RoleAdmin
}

// StatsCache 审核统计缓存，可以为空
type StatsCache interface {
	Get(ctx context.Context, day string, dst any) (bool, error)
	Set(ctx context.Context, day string, v any) error
	Invalidate(ctx context.Context, day string) error
}

// ActionRequest 审核请求体
type ActionRequest struct {
	PostID uint64 `json:"post_id" validate:"required"`
	Action string `json:"action" validate:"required"`
	Note   string `json:"note" validate:"max=500"`
}

type ModerationService struct {
	lifecycle *moderation.Lifecycle
	queue     *moderation.Queue
	audit     *moderation.AuditLog
	store     moderation.Store
	authz     Authorizer
	cache     StatsCache
	clock     moderation.Clock
	loc       *time.Location
	validate  *validator.Validate
}

type ModerationOption func(*ModerationService)

func WithStatsCache(c StatsCache) ModerationOption {
	return func(s *ModerationService) { s.cache = c }
}

func WithAuthorizer(a Authorizer) ModerationOption {
	return func(s *ModerationService) { s.authz = a }
}

// WithLocation 统计中“今天”所在的时区
func WithLocation(loc *time.Location) ModerationOption {
	return func(s *ModerationService) { s.loc = loc }
}

func WithClock(c moderation.Clock) ModerationOption {
	return func(s *ModerationService) { s.clock = c }
}

func NewModerationService(store moderation.Store, lifecycle *moderation.Lifecycle, opts ...ModerationOption) *ModerationService {
	s := &ModerationService{
		lifecycle: lifecycle,
		queue:     moderation.NewQueue(store),
		audit:     moderation.NewAuditLog(store),
		store:     store,
		authz:     RoleAuthorizer{},
		clock:     moderation.SystemClock(),
		loc:       time.Local,
		validate:  validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Act 人工审核：先鉴权再交给状态机，未授权时不产生任何写入
func (s *ModerationService) Act(ctx context.Context, actor Actor, req ActionRequest) (*model.Post, error) {
	if !s.authz.CanModerate(actor) {
		return nil, ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, invalid(ErrInvalidRequest, err)
	}
	action, err := moderation.ParseAction(req.Action)
	if err != nil {
		return nil, err
	}

	post, err := s.lifecycle.Apply(ctx, action, req.PostID, actor.ID, strings.TrimSpace(req.Note))
	if err != nil {
		return nil, err
	}
	log.Printf("moderation: post %d %s by moderator %d", post.ID, post.Status, actor.ID)

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, s.day()); err != nil {
			log.Printf("moderation: stats cache invalidate failed: %v", err)
		}
	}
	return post, nil
}

// Queue 待审核列表，直接读库
func (s *ModerationService) Queue(ctx context.Context, actor Actor, f moderation.QueueFilter) ([]moderation.QueueItem, error) {
	if !s.authz.CanModerate(actor) {
		return nil, ErrForbidden
	}
	return s.queue.List(ctx, f)
}

// History 帖子的完整审核记录
func (s *ModerationService) History(ctx context.Context, actor Actor, postID uint64) ([]model.ModerationLog, error) {
	if !s.authz.CanModerate(actor) {
		return nil, ErrForbidden
	}
	return s.audit.History(ctx, postID)
}

// Stats 面板统计，配置了缓存时最多滞后 TTL
func (s *ModerationService) Stats(ctx context.Context, actor Actor) (moderation.Stats, error) {
	if !s.authz.CanModerate(actor) {
		return moderation.Stats{}, ErrForbidden
	}
	day := s.day()
	if s.cache != nil {
		var cached moderation.Stats
		ok, err := s.cache.Get(ctx, day, &cached)
		if err != nil {
			log.Printf("moderation: stats cache read failed: %v", err)
		} else if ok {
			return cached, nil
		}
	}

	st, err := s.queue.Stats(ctx, s.dayStart())
	if err != nil {
		return moderation.Stats{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, day, st); err != nil {
			log.Printf("moderation: stats cache write failed: %v", err)
		}
	}
	return st, nil
}

// AdminPosts 管理员按状态查看帖子，status 为空表示全部
func (s *ModerationService) AdminPosts(ctx context.Context, actor Actor, status string, cur Cursor, limit int) ([]model.Post, *Cursor, error) {
	if !s.authz.CanAdminister(actor) {
		return nil, nil, ErrForbidden
	}
	var st model.PostStatus
	if strings.TrimSpace(status) != "" {
		parsed, ok := model.ParseStatus(status)
		if !ok {
			return nil, nil, ErrInvalidRequest
		}
		st = parsed
	}
	if limit <= 0 || limit > moderation.MaxQueueLimit {
		limit = moderation.DefaultQueueLimit
	}
	list, err := s.store.ListPosts(ctx, moderation.PostFilter{
		Status:          st,
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

func (s *ModerationService) dayStart() time.Time {
	now := s.clock.Now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

func (s *ModerationService) day() string {
	return s.dayStart().Format(time.DateOnly)
}
