package service

import (
	"context"

	"Lee_Moderation/internal/model"
)

type CommunityStore interface {
	List(ctx context.Context) ([]model.Community, error)
	Upsert(ctx context.Context, c *model.Community) error
}

// DefaultCommunities seed 命令写入的社区
var DefaultCommunities = []model.Community{
	{Name: "General", Slug: "general", Description: "General discussion"},
	{Name: "Adults Only", Slug: "adults-only", Description: "Mature discussion, 18+ only"},
	{Name: "Children", Slug: "children", Description: "Kid-friendly space with strict rules"},
	{Name: "Tech", Slug: "tech", Description: "Software, hardware and everything in between"},
	{Name: "Gaming", Slug: "gaming", Description: "Video games and tabletop"},
	{Name: "News", Slug: "news", Description: "Current events"},
	{Name: "Random", Slug: "random", Description: "Anything goes, within the rules"},
}

type CommunityService struct {
	repo CommunityStore
}

func NewCommunityService(repo CommunityStore) *CommunityService {
	return &CommunityService{repo: repo}
}

func (s *CommunityService) List(ctx context.Context) ([]model.Community, error) {
	return s.repo.List(ctx)
}

// Seed 幂等写入默认社区，返回写入数量
func (s *CommunityService) Seed(ctx context.Context) (int, error) {
	for i := range DefaultCommunities {
		c := DefaultCommunities[i]
		if err := s.repo.Upsert(ctx, &c); err != nil {
			return i, err
		}
	}
	return len(DefaultCommunities), nil
}
