package content

import (
	"context"
	"time"

	"pressroom/models"
)

// Repository is the storage collaborator. Finders return ErrNotFound when
// nothing matches, writers return ErrDuplicate on unique violations, and
// any storage failure that outlived the retry policy is wrapped in
// ErrStorageUnavailable.
type Repository interface {
	// Transaction runs fn against a repository bound to one transaction.
	// fn must only use the repository it is given.
	Transaction(ctx context.Context, fn func(tx Repository) error) error

	FindUserByID(ctx context.Context, id uint) (*models.User, error)

	FindPostBySlugOrID(ctx context.Context, key string) (*models.Post, error)
	FindPostByID(ctx context.Context, id uint) (*models.Post, error)
	// CreatePost and UpdatePost normalize derived fields before writing.
	CreatePost(ctx context.Context, post *models.Post) error
	UpdatePost(ctx context.Context, post *models.Post) error
	ListPosts(ctx context.Context, q PostQuery) ([]models.Post, error)

	FindCategoryByID(ctx context.Context, id uint) (*models.Category, error)
	FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, category *models.Category) error
	ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error)

	FindTagsByIDs(ctx context.Context, ids []uint) ([]models.Tag, error)
	FindTagBySlug(ctx context.Context, slug string) (*models.Tag, error)
	CreateTag(ctx context.Context, tag *models.Tag) error
	ListTags(ctx context.Context) ([]models.Tag, error)

	FindCommentByID(ctx context.Context, id uint) (*models.Comment, error)
	CreateComment(ctx context.Context, comment *models.Comment) error
	// BulkUpdateCommentModeration sets approved on every id and is_spam
	// when isSpam is non-nil. It returns the number of rows matched.
	BulkUpdateCommentModeration(ctx context.Context, ids []uint, approved bool, isSpam *bool) (int64, error)
	ListComments(ctx context.Context, q CommentQuery) ([]models.Comment, error)

	FindLike(ctx context.Context, postID, userID uint) (*models.Like, error)
	CreateLike(ctx context.Context, like *models.Like) error
	DeleteLike(ctx context.Context, postID, userID uint) (int64, error)
	CountLikes(ctx context.Context, postID uint) (int64, error)

	FindSubscriptionByEmail(ctx context.Context, email string) (*models.Subscription, error)
	FindActiveSubscriptionByEmail(ctx context.Context, email string) (*models.Subscription, error)
	FindSubscriptionByToken(ctx context.Context, token string) (*models.Subscription, error)
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	UpdateSubscription(ctx context.Context, sub *models.Subscription) error
}

// PostQuery filters ListPosts. A non-nil PublishedAt restricts the result
// to posts visible at that instant.
type PostQuery struct {
	PublishedAt  *time.Time
	CategorySlug string
	TagSlug      string
	Search       string
	FeaturedOnly bool
	Limit        int
}

type CommentQuery struct {
	PostID       uint
	ParentID     *uint
	RootsOnly    bool
	ApprovedOnly bool
	PendingOnly  bool // not approved and not spam
}
