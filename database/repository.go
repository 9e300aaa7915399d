package database

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"pressroom/content"
	"pressroom/derive"
	"pressroom/models"
)

// Repository implements content.Repository on gorm.
type Repository struct {
	db      *gorm.DB
	now     func() time.Time
	backoff func() retry.Backoff
	inTx    bool
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(3, retry.NewExponential(25*time.Millisecond))
		},
	}
}

// WithClock returns a copy of r that stamps rows with now.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	cp := *r
	cp.now = func() time.Time { return now().UTC() }
	return &cp
}

// Transaction runs fn in a database transaction, retrying the whole unit
// when sqlite reports lock contention. Nested calls join the outer
// transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(tx content.Repository) error) error {
	if r.inTx {
		return fn(r)
	}

	return retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&Repository{db: tx, now: r.now, backoff: r.backoff, inTx: true})
		})
		err = translate(err)
		if errors.Is(err, content.ErrStorageUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (r *Repository) stamp(ts *models.Timestamps, created bool) {
	now := r.now()
	if created || ts.CreatedAt.IsZero() {
		ts.CreatedAt = now
	}
	ts.UpdatedAt = now
}

// Users

func (r *Repository) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// Posts

func (r *Repository) posts(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Author").
		Preload("Category").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name ASC") })
}

// FindPostBySlugOrID prefers a slug match so numeric slugs stay reachable.
func (r *Repository) FindPostBySlugOrID(ctx context.Context, key string) (*models.Post, error) {
	var post models.Post
	err := r.posts(ctx).Where("slug = ?", key).First(&post).Error
	if err == nil {
		return &post, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, translate(err)
	}

	id, convErr := strconv.ParseUint(key, 10, 64)
	if convErr != nil {
		return nil, content.ErrNotFound
	}
	return r.FindPostByID(ctx, uint(id))
}

func (r *Repository) FindPostByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.posts(ctx).First(&post, id).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

// normalizePost is the pre-save step every post write goes through.
func normalizePost(post *models.Post) error {
	out := derive.Fields(derive.Input{
		Title:   post.Title,
		Content: post.Content,
		Slug:    post.Slug,
		Excerpt: post.Excerpt,
	})
	post.Slug = out.Slug
	post.Excerpt = out.Excerpt
	post.ReadingTime = out.ReadingTime
	post.PubDate = post.PubDate.UTC()

	if post.Slug == "" {
		return &content.ValidationError{Field: "slug", Reason: "cannot be derived from title"}
	}
	if strings.TrimSpace(post.Content) == "" {
		return &content.ValidationError{Field: "content", Reason: "must not be empty"}
	}
	return nil
}

func (r *Repository) CreatePost(ctx context.Context, post *models.Post) error {
	if err := normalizePost(post); err != nil {
		return err
	}
	r.stamp(&post.Timestamps, true)
	if post.PubDate.IsZero() {
		post.PubDate = post.CreatedAt
	}

	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(post).Error; err != nil {
		return translate(err)
	}
	return r.replaceTags(db, post)
}

func (r *Repository) UpdatePost(ctx context.Context, post *models.Post) error {
	if err := normalizePost(post); err != nil {
		return err
	}
	r.stamp(&post.Timestamps, false)

	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Save(post).Error; err != nil {
		return translate(err)
	}
	return r.replaceTags(db, post)
}

func (r *Repository) replaceTags(db *gorm.DB, post *models.Post) error {
	tags := db.Model(post).Association("Tags")
	if len(post.Tags) == 0 {
		return translate(tags.Clear())
	}
	return translate(tags.Replace(post.Tags))
}

func (r *Repository) ListPosts(ctx context.Context, q content.PostQuery) ([]models.Post, error) {
	db := r.db.WithContext(ctx)
	query := r.posts(ctx).Model(&models.Post{})

	if q.PublishedAt != nil {
		query = query.Where("posts.status = ? AND posts.pub_date <= ?", models.StatusPublished, q.PublishedAt.UTC())
	}
	if q.CategorySlug != "" {
		query = query.Where("posts.category_id IN (?)",
			db.Model(&models.Category{}).Select("id").Where("slug = ?", q.CategorySlug))
	}
	if q.TagSlug != "" {
		query = query.Where("posts.id IN (?)", taggedPosts(db).Where("tags.slug = ?", q.TagSlug))
	}
	if q.Search != "" {
		like := "%" + escapeLike(q.Search) + "%"
		query = query.Where(
			"posts.title LIKE ? ESCAPE '\\' OR posts.content LIKE ? ESCAPE '\\' OR posts.id IN (?)",
			like, like, taggedPosts(db).Where("tags.name LIKE ? ESCAPE '\\'", like),
		)
	}
	if q.FeaturedOnly {
		query = query.Where("posts.is_featured = ?", true)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var posts []models.Post
	err := query.Order("posts.pub_date DESC").Order("posts.created_at DESC").Find(&posts).Error
	return posts, translate(err)
}

func taggedPosts(db *gorm.DB) *gorm.DB {
	return db.Table("post_tags").
		Select("post_tags.post_id").
		Joins("JOIN tags ON tags.id = post_tags.tag_id")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Categories

func (r *Repository) FindCategoryByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

func (r *Repository) FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

func (r *Repository) CreateCategory(ctx context.Context, category *models.Category) error {
	r.stamp(&category.Timestamps, true)
	return translate(r.db.WithContext(ctx).Create(category).Error)
}

func (r *Repository) UpdateCategory(ctx context.Context, category *models.Category) error {
	r.stamp(&category.Timestamps, false)
	return translate(r.db.WithContext(ctx).Save(category).Error)
}

func (r *Repository) ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	query := r.db.WithContext(ctx).Order("sort_order ASC").Order("name ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var categories []models.Category
	return categories, translate(query.Find(&categories).Error)
}

// Tags

func (r *Repository) FindTagsByIDs(ctx context.Context, ids []uint) ([]models.Tag, error) {
	var tags []models.Tag
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&tags).Error
	return tags, translate(err)
}

func (r *Repository) FindTagBySlug(ctx context.Context, slug string) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&tag).Error; err != nil {
		return nil, translate(err)
	}
	return &tag, nil
}

func (r *Repository) CreateTag(ctx context.Context, tag *models.Tag) error {
	r.stamp(&tag.Timestamps, true)
	return translate(r.db.WithContext(ctx).Create(tag).Error)
}

func (r *Repository) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	return tags, translate(r.db.WithContext(ctx).Order("name ASC").Find(&tags).Error)
}

// Comments

func (r *Repository) FindCommentByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

func (r *Repository) CreateComment(ctx context.Context, comment *models.Comment) error {
	r.stamp(&comment.Timestamps, true)
	return translate(r.db.WithContext(ctx).Create(comment).Error)
}

func (r *Repository) BulkUpdateCommentModeration(ctx context.Context, ids []uint, approved bool, isSpam *bool) (int64, error) {
	updates := map[string]interface{}{
		"approved":   approved,
		"updated_at": r.now(),
	}
	if isSpam != nil {
		updates["is_spam"] = *isSpam
	}

	res := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id IN ?", ids).Updates(updates)
	return res.RowsAffected, translate(res.Error)
}

func (r *Repository) ListComments(ctx context.Context, q content.CommentQuery) ([]models.Comment, error) {
	query := r.db.WithContext(ctx).Model(&models.Comment{})
	if q.PostID != 0 {
		query = query.Where("post_id = ?", q.PostID)
	}
	if q.ParentID != nil {
		query = query.Where("parent_id = ?", *q.ParentID)
	}
	if q.RootsOnly {
		query = query.Where("parent_id IS NULL")
	}
	if q.ApprovedOnly {
		query = query.Where("approved = ?", true)
	}
	if q.PendingOnly {
		query = query.Where("approved = ? AND is_spam = ?", false, false)
	}

	var comments []models.Comment
	err := query.Order("created_at ASC").Order("id ASC").Find(&comments).Error
	return comments, translate(err)
}

// Likes

func (r *Repository) FindLike(ctx context.Context, postID, userID uint) (*models.Like, error) {
	var like models.Like
	err := r.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).First(&like).Error
	if err != nil {
		return nil, translate(err)
	}
	return &like, nil
}

// CreateLike inserts under a savepoint so a unique violation leaves the
// surrounding transaction usable. The violation is how an existing like is
// detected, so the insert is not logged.
func (r *Repository) CreateLike(ctx context.Context, like *models.Like) error {
	r.stamp(&like.Timestamps, true)
	quiet := r.db.WithContext(ctx).Session(&gorm.Session{Logger: r.db.Logger.LogMode(logger.Silent)})
	err := quiet.Transaction(func(tx *gorm.DB) error {
		return tx.Create(like).Error
	})
	if err != nil {
		like.ID = 0
	}
	return translate(err)
}

func (r *Repository) DeleteLike(ctx context.Context, postID, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
	return res.RowsAffected, translate(res.Error)
}

func (r *Repository) CountLikes(ctx context.Context, postID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&n).Error
	return n, translate(err)
}

// Subscriptions

func (r *Repository) FindSubscriptionByEmail(ctx context.Context, email string) (*models.Subscription, error) {
	return r.findSubscription(ctx, "email = ?", email)
}

func (r *Repository) FindActiveSubscriptionByEmail(ctx context.Context, email string) (*models.Subscription, error) {
	return r.findSubscription(ctx, "email = ? AND is_active = ?", email, true)
}

func (r *Repository) FindSubscriptionByToken(ctx context.Context, token string) (*models.Subscription, error) {
	return r.findSubscription(ctx, "confirmation_token = ?", token)
}

func (r *Repository) findSubscription(ctx context.Context, cond string, args ...interface{}) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Where(cond, args...).First(&sub).Error; err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (r *Repository) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	r.stamp(&sub.Timestamps, true)
	return translate(r.db.WithContext(ctx).Create(sub).Error)
}

func (r *Repository) UpdateSubscription(ctx context.Context, sub *models.Subscription) error {
	r.stamp(&sub.Timestamps, false)
	return translate(r.db.WithContext(ctx).Save(sub).Error)
}

var _ content.Repository = (*Repository)(nil)
