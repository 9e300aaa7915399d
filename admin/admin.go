package admin

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pressroom/analytics"
	"pressroom/cache"
	"pressroom/common"
	"pressroom/content"
	"pressroom/models"
)

const currentUserKey = "current_user"

// recentViewDays is the window of the view count on the post detail.
const recentViewDays = 30

// AdminModule serves the staff API: authoring, taxonomy and comment
// moderation. Every route requires a session user with IsStaff.
type AdminModule struct {
	service   *content.Service
	analytics *analytics.AnalyticsModule
	cache     *cache.Store
}

func NewAdminModule(service *content.Service, analyticsModule *analytics.AnalyticsModule, store *cache.Store) *AdminModule {
	return &AdminModule{
		service:   service,
		analytics: analyticsModule,
		cache:     store,
	}
}

func (a *AdminModule) RegisterRoutes(router *gin.Engine) {
	adminGroup := router.Group("/api/admin")
	adminGroup.Use(a.requireAuth)
	{
		adminGroup.POST("/posts", a.createPost)
		adminGroup.GET("/posts/:key", a.getPost)
		adminGroup.PUT("/posts/:key", a.updatePost)

		adminGroup.GET("/comments/pending", a.pendingComments)
		adminGroup.POST("/comments/approve", a.moderate(a.service.ApproveComments))
		adminGroup.POST("/comments/reject", a.moderate(a.service.RejectComments))
		adminGroup.POST("/comments/spam", a.moderate(a.service.MarkSpam))

		adminGroup.POST("/categories", a.createCategory)
		adminGroup.PUT("/categories/:id", a.updateCategory)
		adminGroup.POST("/tags", a.createTag)

		adminGroup.GET("/stats", a.stats)
		adminGroup.DELETE("/cache", a.clearCache)
	}
}

func (a *AdminModule) requireAuth(c *gin.Context) {
	userID, ok := common.SessionUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	user, err := a.service.User(c.Request.Context(), userID)
	if errors.Is(err, content.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	if err != nil {
		common.RespondError(c, err)
		return
	}
	if !user.IsStaff {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "staff only"})
		return
	}

	c.Set(currentUserKey, user)
	c.Next()
}

func currentUser(c *gin.Context) *models.User {
	user, _ := c.MustGet(currentUserKey).(*models.User)
	return user
}

var (
	postPages     = []string{common.FeedPath, common.SitemapPath}
	categoryPages = []string{common.CategoriesPath, common.SitemapPath}
	tagPages      = []string{common.TagsPath, common.SitemapPath}
)

// invalidate drops the cached public responses a write has changed.
func (a *AdminModule) invalidate(paths []string) {
	if a.cache == nil {
		return
	}
	for _, path := range paths {
		if err := a.cache.Clear(path); err != nil {
			log.Printf("Error clearing cached %s: %v", path, err)
		}
	}
}

func (a *AdminModule) createPost(c *gin.Context) {
	var in content.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.BadRequest(c, err)
		return
	}
	if in.AuthorID == nil {
		in.AuthorID = &currentUser(c).ID
	}

	post, err := a.service.CreatePost(c.Request.Context(), in)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	a.invalidate(postPages)
	c.JSON(http.StatusCreated, post)
}

type postDetail struct {
	*models.Post
	RecentViews int64 `json:"recent_views"`
}

func (a *AdminModule) getPost(c *gin.Context) {
	post, err := a.service.Post(c.Request.Context(), c.Param("key"))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, postDetail{
		Post:        post,
		RecentViews: a.analytics.GetPostViewCount(post.ID, recentViewDays),
	})
}

func (a *AdminModule) updatePost(c *gin.Context) {
	var in content.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.BadRequest(c, err)
		return
	}

	post, err := a.service.UpdatePost(c.Request.Context(), c.Param("key"), in)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	a.invalidate(postPages)
	c.JSON(http.StatusOK, post)
}

func (a *AdminModule) pendingComments(c *gin.Context) {
	comments, err := a.service.PendingComments(c.Request.Context())
	if err != nil {
		common.RespondError(c, err)
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	c.JSON(http.StatusOK, comments)
}

type moderationRequest struct {
	IDs []uint `json:"ids" binding:"required"`
}

type moderationFunc func(ctx context.Context, ids []uint) (int64, error)

// moderate applies a bulk moderation action to the ids in the body.
func (a *AdminModule) moderate(action moderationFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req moderationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			common.BadRequest(c, err)
			return
		}

		updated, err := action(c.Request.Context(), req.IDs)
		if err != nil {
			common.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"updated": updated})
	}
}

func (a *AdminModule) createCategory(c *gin.Context) {
	var in content.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.BadRequest(c, err)
		return
	}

	category, err := a.service.CreateCategory(c.Request.Context(), in)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	a.invalidate(categoryPages)
	c.JSON(http.StatusCreated, category)
}

func (a *AdminModule) updateCategory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": content.ErrNotFound.Error()})
		return
	}

	var in content.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.BadRequest(c, err)
		return
	}

	category, err := a.service.UpdateCategory(c.Request.Context(), uint(id), in)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	a.invalidate(categoryPages)
	c.JSON(http.StatusOK, category)
}

func (a *AdminModule) createTag(c *gin.Context) {
	var in content.TagInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.BadRequest(c, err)
		return
	}

	tag, err := a.service.CreateTag(c.Request.Context(), in)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	a.invalidate(tagPages)
	c.JSON(http.StatusCreated, tag)
}

type statsQuery struct {
	Days  int `form:"days" binding:"omitempty,min=1,max=365"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=50"`
}

// stats reports daily views and the most viewed posts.
func (a *AdminModule) stats(c *gin.Context) {
	q := statsQuery{Days: 30, Limit: 10}
	if err := c.ShouldBindQuery(&q); err != nil {
		common.BadRequest(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"days":      q.Days,
		"views":     a.analytics.GetViewsByDay(q.Days),
		"top_posts": a.analytics.GetTopPosts(q.Days, q.Limit),
	})
}

func (a *AdminModule) clearCache(c *gin.Context) {
	if a.cache != nil {
		if err := a.cache.ClearAll(); err != nil {
			common.RespondError(c, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}
