package content

import (
	"context"
	"errors"
	"time"

	"pressroom/models"
)

// IsPublished reports whether post is publicly visible at now. It must be
// evaluated per request: a scheduled post becomes visible as time passes
// without any write to it.
func IsPublished(post *models.Post, now time.Time) bool {
	return post.Status == models.StatusPublished && !post.PubDate.After(now)
}

type PostFilter struct {
	CategorySlug string
	TagSlug      string
	Query        string
	FeaturedOnly bool
	Limit        int
}

// PublishedPosts lists posts visible now, newest first.
func (s *Service) PublishedPosts(ctx context.Context, f PostFilter) ([]models.Post, error) {
	now := s.now()
	posts, err := s.repo.ListPosts(ctx, PostQuery{
		PublishedAt:  &now,
		CategorySlug: f.CategorySlug,
		TagSlug:      f.TagSlug,
		Search:       f.Query,
		FeaturedOnly: f.FeaturedOnly,
		Limit:        f.Limit,
	})
	if err != nil {
		return nil, err
	}

	visible := posts[:0]
	for i := range posts {
		if IsPublished(&posts[i], now) {
			visible = append(visible, posts[i])
		}
	}
	return visible, nil
}

// PublishedPost resolves key as a slug or numeric id and hides posts that
// are not visible now.
func (s *Service) PublishedPost(ctx context.Context, key string) (*models.Post, error) {
	post, err := s.repo.FindPostBySlugOrID(ctx, key)
	if err != nil {
		return nil, err
	}
	if !IsPublished(post, s.now()) {
		return nil, ErrNotFound
	}
	return post, nil
}

// Post returns a post in any status.
func (s *Service) Post(ctx context.Context, key string) (*models.Post, error) {
	return s.repo.FindPostBySlugOrID(ctx, key)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
