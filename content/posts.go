package content

import (
	"context"
	"errors"
	"time"

	"pressroom/models"
)

// PostInput carries author-editable post fields. On update a blank Slug or
// Excerpt keeps the stored value.
type PostInput struct {
	Title         string            `json:"title" validate:"required,max=200"`
	Slug          string            `json:"slug" validate:"omitempty,max=200,slug"`
	Content       string            `json:"content" validate:"required"`
	Excerpt       string            `json:"excerpt"`
	AuthorID      *uint             `json:"author_id"`
	CategoryID    *uint             `json:"category_id"`
	TagIDs        []uint            `json:"tag_ids"`
	Status        models.PostStatus `json:"status" validate:"omitempty,oneof=draft published archived"`
	PubDate       *time.Time        `json:"pub_date"`
	IsFeatured    bool              `json:"is_featured"`
	AllowComments *bool             `json:"allow_comments"`
}

func (s *Service) validatePost(in PostInput) error {
	if err := s.check(in); err != nil {
		return err
	}
	if blank(in.Content) {
		return invalid("content", "must not be empty")
	}
	if blank(in.Title) {
		return invalid("title", "must not be empty")
	}
	return nil
}

// CreatePost stores a new post. Slug derivation and the uniqueness check
// happen in the same transaction as the insert; a collision is reported as
// *DuplicateSlugError and never resolved automatically.
func (s *Service) CreatePost(ctx context.Context, in PostInput) (*models.Post, error) {
	if err := s.validatePost(in); err != nil {
		return nil, err
	}

	post := &models.Post{
		Status:        models.StatusDraft,
		PubDate:       s.now(),
		AllowComments: true,
	}
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		if err := s.applyPostInput(ctx, tx, post, in); err != nil {
			return err
		}
		return slugConflict(tx.CreatePost(ctx, post), post.Slug)
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Service) UpdatePost(ctx context.Context, key string, in PostInput) (*models.Post, error) {
	if err := s.validatePost(in); err != nil {
		return nil, err
	}

	var post *models.Post
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		var err error
		post, err = tx.FindPostBySlugOrID(ctx, key)
		if err != nil {
			return err
		}
		if err := s.applyPostInput(ctx, tx, post, in); err != nil {
			return err
		}
		return slugConflict(tx.UpdatePost(ctx, post), post.Slug)
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Service) applyPostInput(ctx context.Context, tx Repository, post *models.Post, in PostInput) error {
	post.Title = in.Title
	post.Content = in.Content
	if in.Slug != "" {
		post.Slug = in.Slug
	}
	if in.Excerpt != "" {
		post.Excerpt = in.Excerpt
	}
	if in.Status != "" {
		post.Status = in.Status
	}
	if in.PubDate != nil {
		post.PubDate = in.PubDate.UTC()
	}
	if in.AllowComments != nil {
		post.AllowComments = *in.AllowComments
	}
	post.IsFeatured = in.IsFeatured

	post.AuthorID, post.Author = nil, nil
	if in.AuthorID != nil {
		author, err := tx.FindUserByID(ctx, *in.AuthorID)
		if isNotFound(err) {
			return invalid("author_id", "user does not exist")
		}
		if err != nil {
			return err
		}
		post.AuthorID, post.Author = &author.ID, author
	}

	post.CategoryID, post.Category = nil, nil
	if in.CategoryID != nil {
		category, err := tx.FindCategoryByID(ctx, *in.CategoryID)
		if isNotFound(err) {
			return invalid("category_id", "category does not exist")
		}
		if err != nil {
			return err
		}
		post.CategoryID, post.Category = &category.ID, category
	}

	post.Tags = []models.Tag{}
	if len(in.TagIDs) > 0 {
		tags, err := tx.FindTagsByIDs(ctx, in.TagIDs)
		if err != nil {
			return err
		}
		if len(tags) != len(uniqueIDs(in.TagIDs)) {
			return invalid("tag_ids", "unknown tag")
		}
		post.Tags = tags
	}
	return nil
}

func slugConflict(err error, slug string) error {
	if errors.Is(err, ErrDuplicate) {
		return &DuplicateSlugError{Slug: slug}
	}
	return err
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
