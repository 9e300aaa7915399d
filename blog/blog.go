package blog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pressroom/analytics"
	"pressroom/cache"
	"pressroom/common"
	"pressroom/content"
	"pressroom/models"
)

const (
	defaultPageSize = 20
	feedSize        = 20
)

// BlogModule serves the public JSON API and the RSS feed.
type BlogModule struct {
	service   *content.Service
	analytics *analytics.AnalyticsModule
	cache     *cache.Store
	cfg       *common.Config
}

func NewBlogModule(service *content.Service, analyticsModule *analytics.AnalyticsModule, store *cache.Store, cfg *common.Config) *BlogModule {
	return &BlogModule{
		service:   service,
		analytics: analyticsModule,
		cache:     store,
		cfg:       cfg,
	}
}

func (b *BlogModule) RegisterRoutes(router *gin.Engine) {
	cached := cache.CacheMiddleware(b.cache, b.cfg.CacheMaxAge)

	api := router.Group("/api")
	{
		api.GET("/posts", b.listPosts)
		api.GET("/posts/:key", b.getPost)
		api.GET("/posts/:key/comments", b.listComments)
		api.POST("/posts/:key/comments", b.createComment)
		api.POST("/posts/:key/like", b.toggleLike)

		api.POST("/subscriptions", b.subscribe)
		api.GET("/subscriptions/confirm/:token", b.confirmSubscription)
		api.POST("/subscriptions/unsubscribe/:token", b.unsubscribe)
	}

	router.GET(common.CategoriesPath, cached, b.listCategories)
	router.GET(common.TagsPath, cached, b.listTags)
	router.GET(common.FeedPath, cached, b.rss)
}

type postListQuery struct {
	Category string `form:"category"`
	Tag      string `form:"tag"`
	Query    string `form:"q"`
	Featured bool   `form:"featured"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

func (b *BlogModule) listPosts(c *gin.Context) {
	var q postListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		common.BadRequest(c, err)
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultPageSize
	}

	posts, err := b.service.PublishedPosts(c.Request.Context(), content.PostFilter{
		CategorySlug: q.Category,
		TagSlug:      q.Tag,
		Query:        q.Query,
		FeaturedOnly: q.Featured,
		Limit:        q.Limit,
	})
	if err != nil {
		common.RespondError(c, err)
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}
	c.JSON(http.StatusOK, posts)
}

type postResponse struct {
	*models.Post
	Liked *bool `json:"liked,omitempty"`
}

func (b *BlogModule) getPost(c *gin.Context) {
	ctx := c.Request.Context()

	post, err := b.service.PublishedPost(ctx, c.Param("key"))
	if err != nil {
		common.RespondError(c, err)
		return
	}

	if b.analytics.TrackView(c, post.ID) {
		post.ViewsCount++
	}

	resp := postResponse{Post: post}
	if userID, ok := common.SessionUserID(c); ok {
		liked, err := b.service.HasLiked(ctx, post.ID, userID)
		if err != nil {
			common.RespondError(c, err)
			return
		}
		resp.Liked = &liked
	}
	c.JSON(http.StatusOK, resp)
}

func (b *BlogModule) listComments(c *gin.Context) {
	ctx := c.Request.Context()

	post, err := b.service.PublishedPost(ctx, c.Param("key"))
	if err != nil {
		common.RespondError(c, err)
		return
	}

	thread, err := b.service.Thread(ctx, post.ID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

type commentRequest struct {
	AuthorName    string `json:"author_name"`
	AuthorEmail   string `json:"author_email"`
	AuthorWebsite string `json:"author_website"`
	Content       string `json:"content"`
	ParentID      *uint  `json:"parent_id"`
}

// createComment queues a comment for moderation. It is not visible until
// a staff member approves it.
func (b *BlogModule) createComment(c *gin.Context) {
	ctx := c.Request.Context()

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BadRequest(c, err)
		return
	}

	post, err := b.service.PublishedPost(ctx, c.Param("key"))
	if err != nil {
		common.RespondError(c, err)
		return
	}

	comment, err := b.service.SubmitComment(ctx, post.ID, content.CommentInput{
		AuthorName:    req.AuthorName,
		AuthorEmail:   req.AuthorEmail,
		AuthorWebsite: req.AuthorWebsite,
		Content:       req.Content,
		ParentID:      req.ParentID,
		IPAddress:     c.ClientIP(),
		UserAgent:     c.Request.UserAgent(),
	})
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (b *BlogModule) toggleLike(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := common.SessionUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in to like posts"})
		return
	}

	post, err := b.service.PublishedPost(ctx, c.Param("key"))
	if err != nil {
		common.RespondError(c, err)
		return
	}

	res, err := b.service.ToggleLike(ctx, post.ID, userID, c.ClientIP())
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (b *BlogModule) listCategories(c *gin.Context) {
	categories, err := b.service.ActiveCategories(c.Request.Context())
	if err != nil {
		common.RespondError(c, err)
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	c.JSON(http.StatusOK, categories)
}

func (b *BlogModule) listTags(c *gin.Context) {
	tags, err := b.service.Tags(c.Request.Context())
	if err != nil {
		common.RespondError(c, err)
		return
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	c.JSON(http.StatusOK, tags)
}

type subscribeRequest struct {
	Email string `json:"email" binding:"required"`
}

func (b *BlogModule) subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BadRequest(c, err)
		return
	}

	sub, err := b.service.Subscribe(c.Request.Context(), req.Email, c.ClientIP())
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (b *BlogModule) confirmSubscription(c *gin.Context) {
	sub, err := b.service.ConfirmSubscription(c.Request.Context(), c.Param("token"))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (b *BlogModule) unsubscribe(c *gin.Context) {
	if err := b.service.Unsubscribe(c.Request.Context(), c.Param("token")); err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unsubscribed"})
}
