package blog

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pressroom/analytics"
	"pressroom/cache"
	"pressroom/common"
	"pressroom/content"
	"pressroom/database"
	"pressroom/models"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	router  *gin.Engine
	service *content.Service
	clock   *testClock
	db      *gorm.DB
}

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?_txlock=immediate"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic("failed to connect database")
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := database.RunMigrations(db); err != nil {
		panic(err)
	}
	return db
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := setupTestDB()
	clock := &testClock{now: time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)}
	repo := database.NewRepository(db).WithClock(clock.Now)
	service := content.NewService(repo, content.Options{Now: clock.Now})

	cfg := &common.Config{
		CacheMaxAge: time.Minute,
		SiteTitle:   "Test Site",
		SiteURL:     "https://blog.example.com",
	}
	tracker := analytics.NewAnalyticsModule(db).WithClock(clock.Now)
	blogModule := NewBlogModule(service, tracker, cache.NewStore(t.TempDir()), cfg)

	router := gin.New()
	router.Use(sessions.Sessions("test-session", cookie.NewStore([]byte("secret"))))
	router.GET("/test/login/:id", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		session := sessions.Default(c)
		session.Set(common.SessionUserKey, id)
		session.Save()
		c.Status(http.StatusOK)
	})
	blogModule.RegisterRoutes(router)

	return &testEnv{router: router, service: service, clock: clock, db: db}
}

func (e *testEnv) do(method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if s, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(s))
	} else if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, userID int) []*http.Cookie {
	t.Helper()
	w := e.do(http.MethodGet, "/test/login/"+strconv.Itoa(userID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Result().Cookies()
}

func (e *testEnv) createPost(t *testing.T, in content.PostInput) *models.Post {
	t.Helper()
	if in.Content == "" {
		in.Content = "# " + in.Title + "\n\nThis is a **test** post."
	}
	post, err := e.service.CreatePost(context.Background(), in)
	require.NoError(t, err)
	return post
}

func (e *testEnv) publish(t *testing.T, title string) *models.Post {
	t.Helper()
	return e.createPost(t, content.PostInput{Title: title, Status: models.StatusPublished})
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestListPosts_OnlyPublished(t *testing.T) {
	env := setupTestEnv(t)

	later := env.clock.Now().Add(time.Hour)
	env.publish(t, "Live Post")
	env.createPost(t, content.PostInput{Title: "Draft Post"})
	env.createPost(t, content.PostInput{Title: "Scheduled Post", Status: models.StatusPublished, PubDate: &later})

	w := env.do(http.MethodGet, "/api/posts", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var posts []models.Post
	decode(t, w, &posts)
	require.Len(t, posts, 1)
	assert.Equal(t, "live-post", posts[0].Slug)

	env.clock.Advance(2 * time.Hour)
	w = env.do(http.MethodGet, "/api/posts", nil)
	decode(t, w, &posts)
	assert.Len(t, posts, 2)
}

func TestListPosts_EmptyAndLimit(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(http.MethodGet, "/api/posts", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = env.do(http.MethodGet, "/api/posts?limit=500", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.publish(t, "One")
	env.publish(t, "Two")
	w = env.do(http.MethodGet, "/api/posts?limit=1", nil)
	var posts []models.Post
	decode(t, w, &posts)
	assert.Len(t, posts, 1)
}

func TestGetPost(t *testing.T) {
	env := setupTestEnv(t)
	post := env.publish(t, "Readable")
	env.createPost(t, content.PostInput{Title: "Hidden"})

	w := env.do(http.MethodGet, "/api/posts/readable", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]interface{}
	decode(t, w, &got)
	assert.Equal(t, "Readable", got["title"])
	assert.EqualValues(t, 1, got["views_count"])
	assert.NotContains(t, got, "liked")

	w = env.do(http.MethodGet, "/api/posts/"+strconv.Itoa(int(post.ID)), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/posts/hidden", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/api/posts/nothing-here", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestComments(t *testing.T) {
	env := setupTestEnv(t)
	env.publish(t, "Discussed")

	w := env.do(http.MethodPost, "/api/posts/discussed/comments", map[string]interface{}{
		"author_name":  "Reader",
		"author_email": "reader@example.com",
		"content":      "First!",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Comment
	decode(t, w, &created)
	assert.False(t, created.Approved)
	assert.Equal(t, 0, created.Depth)
	assert.NotContains(t, w.Body.String(), "reader@example.com")

	w = env.do(http.MethodGet, "/api/posts/discussed/comments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	_, err := env.service.ApproveComments(context.Background(), []uint{created.ID})
	require.NoError(t, err)

	w = env.do(http.MethodPost, "/api/posts/discussed/comments", map[string]interface{}{
		"author_name":  "Replier",
		"author_email": "replier@example.com",
		"content":      "Agreed",
		"parent_id":    created.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var reply models.Comment
	decode(t, w, &reply)
	assert.Equal(t, 1, reply.Depth)
	_, err = env.service.ApproveComments(context.Background(), []uint{reply.ID})
	require.NoError(t, err)

	w = env.do(http.MethodGet, "/api/posts/discussed/comments", nil)
	var thread []content.CommentNode
	decode(t, w, &thread)
	require.Len(t, thread, 1)
	assert.Equal(t, "First!", thread[0].Content)
	require.Len(t, thread[0].Replies, 1)
	assert.Equal(t, "Agreed", thread[0].Replies[0].Content)
}

func TestComments_Errors(t *testing.T) {
	env := setupTestEnv(t)
	env.publish(t, "Open")
	env.createPost(t, content.PostInput{Title: "Closed", Status: models.StatusPublished, AllowComments: new(bool)})
	env.createPost(t, content.PostInput{Title: "Draft"})

	valid := map[string]interface{}{
		"author_name":  "Reader",
		"author_email": "reader@example.com",
		"content":      "Hello",
	}

	w := env.do(http.MethodPost, "/api/posts/closed/comments", valid)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPost, "/api/posts/draft/comments", valid)
	assert.Equal(t, http.StatusNotFound, w.Code)

	withParent := map[string]interface{}{
		"author_name":  "Reader",
		"author_email": "reader@example.com",
		"content":      "Hello",
		"parent_id":    999,
	}
	w = env.do(http.MethodPost, "/api/posts/open/comments", withParent)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/api/posts/open/comments", map[string]interface{}{
		"author_name":  "Reader",
		"author_email": "nope",
		"content":      "Hello",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "author_email", body["field"])

	w = env.do(http.MethodPost, "/api/posts/open/comments", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToggleLike(t *testing.T) {
	env := setupTestEnv(t)
	env.publish(t, "Likeable")

	w := env.do(http.MethodPost, "/api/posts/likeable/like", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	session := env.login(t, 3)

	w = env.do(http.MethodPost, "/api/posts/likeable/like", nil, session...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"action":"liked","likes_count":1}`, w.Body.String())

	w = env.do(http.MethodGet, "/api/posts/likeable", nil, session...)
	var got map[string]interface{}
	decode(t, w, &got)
	assert.Equal(t, true, got["liked"])

	w = env.do(http.MethodPost, "/api/posts/likeable/like", nil, session...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"action":"unliked","likes_count":0}`, w.Body.String())

	w = env.do(http.MethodPost, "/api/posts/missing/like", nil, session...)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaxonomyEndpointsAreCached(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.service.CreateCategory(ctx, content.CategoryInput{Name: "News"})
	require.NoError(t, err)
	_, err = env.service.CreateCategory(ctx, content.CategoryInput{Name: "Old", IsActive: new(bool)})
	require.NoError(t, err)
	_, err = env.service.CreateTag(ctx, content.TagInput{Name: "Go"})
	require.NoError(t, err)

	w := env.do(http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	var categories []models.Category
	decode(t, w, &categories)
	require.Len(t, categories, 1)
	assert.Equal(t, "news", categories[0].Slug)

	w = env.do(http.MethodGet, "/api/categories", nil)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	w = env.do(http.MethodGet, "/api/tags", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tags []models.Tag
	decode(t, w, &tags)
	require.Len(t, tags, 1)
	assert.Equal(t, models.DefaultTagColor, tags[0].Color)
}

func TestSubscriptions(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(http.MethodPost, "/api/subscriptions", map[string]string{"email": "Reader@Example.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "confirmation_token")

	var sub models.Subscription
	decode(t, w, &sub)
	assert.Equal(t, "reader@example.com", sub.Email)

	w = env.do(http.MethodPost, "/api/subscriptions", map[string]string{"email": "reader@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(http.MethodPost, "/api/subscriptions", map[string]string{"email": "broken"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/subscriptions", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var stored models.Subscription
	require.NoError(t, env.db.Where("email = ?", "reader@example.com").First(&stored).Error)

	w = env.do(http.MethodGet, "/api/subscriptions/confirm/"+stored.ConfirmationToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &sub)
	assert.NotNil(t, sub.ConfirmedAt)

	w = env.do(http.MethodGet, "/api/subscriptions/confirm/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/api/subscriptions/unsubscribe/"+stored.ConfirmationToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/api/subscriptions", map[string]string{"email": "reader@example.com"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRSS(t *testing.T) {
	env := setupTestEnv(t)
	env.publish(t, "Feed Entry")
	env.createPost(t, content.PostInput{Title: "Secret Draft"})

	w := env.do(http.MethodGet, "/rss", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "application/rss+xml"))

	body := w.Body.String()
	assert.Contains(t, body, "<title>Test Site</title>")
	assert.Contains(t, body, "Feed Entry")
	assert.Contains(t, body, "https://blog.example.com/posts/feed-entry")
	assert.Contains(t, body, "<strong>test</strong>")
	assert.NotContains(t, body, "Secret Draft")
}

func TestRenderMarkdown(t *testing.T) {
	html := renderMarkdown("# Title\n\nSome **bold** text and https://example.com")
	assert.Contains(t, html, "<h1>Title</h1>")
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.Contains(t, html, `<a href="https://example.com">`)
}
