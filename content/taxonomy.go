package content

import (
	"context"
	"errors"

	"pressroom/derive"
	"pressroom/models"
)

type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Slug        string `json:"slug" validate:"omitempty,max=100,slug"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
	Order       int    `json:"order" validate:"gte=0"`
	ParentID    *uint  `json:"parent_id"`
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}

	category := &models.Category{IsActive: true}
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		if err := s.applyCategoryInput(ctx, tx, category, in); err != nil {
			return err
		}
		return slugConflict(tx.CreateCategory(ctx, category), category.Slug)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory rejects a parent that would make the category its own
// ancestor.
func (s *Service) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*models.Category, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}

	var category *models.Category
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		var err error
		category, err = tx.FindCategoryByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.applyCategoryInput(ctx, tx, category, in); err != nil {
			return err
		}
		return slugConflict(tx.UpdateCategory(ctx, category), category.Slug)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *Service) applyCategoryInput(ctx context.Context, tx Repository, category *models.Category, in CategoryInput) error {
	category.Name = in.Name
	category.Description = in.Description
	category.Order = in.Order
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}
	if in.Slug != "" {
		category.Slug = in.Slug
	}
	if category.Slug == "" {
		category.Slug = derive.Slug(in.Name)
	}
	if category.Slug == "" {
		return invalid("slug", "cannot be derived from name")
	}

	category.ParentID = nil
	if in.ParentID == nil {
		return nil
	}
	if err := s.checkAncestry(ctx, tx, category.ID, *in.ParentID); err != nil {
		return err
	}
	category.ParentID = in.ParentID
	return nil
}

// checkAncestry walks up from parentID and fails if it reaches id. A new
// category (id 0) can only point at an existing parent.
func (s *Service) checkAncestry(ctx context.Context, tx Repository, id, parentID uint) error {
	seen := make(map[uint]struct{})
	next := &parentID
	for next != nil {
		if id != 0 && *next == id {
			return ErrCategoryCycle
		}
		if _, ok := seen[*next]; ok {
			// pre-existing loop above us, not introduced by this write
			return ErrCategoryCycle
		}
		seen[*next] = struct{}{}

		ancestor, err := tx.FindCategoryByID(ctx, *next)
		if errors.Is(err, ErrNotFound) {
			if *next == parentID {
				return invalid("parent_id", "category does not exist")
			}
			return nil
		}
		if err != nil {
			return err
		}
		next = ancestor.ParentID
	}
	return nil
}

func (s *Service) ActiveCategories(ctx context.Context) ([]models.Category, error) {
	return s.repo.ListCategories(ctx, true)
}

type TagInput struct {
	Name        string `json:"name" validate:"required,max=50"`
	Slug        string `json:"slug" validate:"omitempty,max=50,slug"`
	Description string `json:"description"`
	Color       string `json:"color" validate:"omitempty,hexcolor,max=7"`
}

func (s *Service) CreateTag(ctx context.Context, in TagInput) (*models.Tag, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}

	tag := &models.Tag{
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
		Color:       in.Color,
	}
	if tag.Slug == "" {
		tag.Slug = derive.Slug(in.Name)
	}
	if tag.Slug == "" {
		return nil, invalid("slug", "cannot be derived from name")
	}
	if tag.Color == "" {
		tag.Color = models.DefaultTagColor
	}

	err := s.repo.Transaction(ctx, func(tx Repository) error {
		return slugConflict(tx.CreateTag(ctx, tag), tag.Slug)
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *Service) Tags(ctx context.Context) ([]models.Tag, error) {
	return s.repo.ListTags(ctx)
}
