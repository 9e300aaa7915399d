package analytics

import (
	"encoding/hex"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/blake2b"
	"gorm.io/gorm"

	"pressroom/models"
)

const (
	visitorCookie = "pressroom_visitor_id"

	// DefaultThrottle is how long repeated views of one post by the same
	// visitor are ignored.
	DefaultThrottle = 30 * time.Minute
)

// PostView records one counted view of a post.
type PostView struct {
	ID        uint      `gorm:"primaryKey"`
	PostID    uint      `gorm:"not null;index"`
	VisitorID string    `gorm:"size:64;not null;index"`
	IP        string    `gorm:"not null"`
	Language  *string   // nullable
	Browser   *string   // nullable
	CreatedAt time.Time `gorm:"autoCreateTime:false;index"`
}

type AnalyticsModule struct {
	db       *gorm.DB
	now      func() time.Time
	throttle time.Duration
}

func NewAnalyticsModule(db *gorm.DB) *AnalyticsModule {
	if db == nil {
		log.Println("Analytics DB is nil, analytics will be disabled")
		return nil
	}

	if err := db.AutoMigrate(&PostView{}); err != nil {
		log.Printf("Error migrating post_views table: %v", err)
		return nil
	}

	log.Println("Analytics module initialized successfully")
	return &AnalyticsModule{
		db:       db,
		now:      func() time.Time { return time.Now().UTC() },
		throttle: DefaultThrottle,
	}
}

// WithClock replaces the time source, for tests.
func (a *AnalyticsModule) WithClock(now func() time.Time) *AnalyticsModule {
	cp := *a
	cp.now = func() time.Time { return now().UTC() }
	return &cp
}

// TrackView counts a view of postID and bumps posts.views_count, unless the
// same visitor already viewed the post within the throttle window. It
// reports whether the view was counted.
func (a *AnalyticsModule) TrackView(c *gin.Context, postID uint) bool {
	if a == nil || a.db == nil {
		return false
	}

	visitorID := a.getOrCreateVisitorID(c)
	now := a.now()

	view := PostView{
		PostID:    postID,
		VisitorID: visitorID,
		IP:        getClientIP(c),
		Language:  extractLanguage(c),
		Browser:   extractBrowser(c.Request.UserAgent()),
		CreatedAt: now,
	}

	counted := false
	err := a.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var recent int64
		err := tx.Model(&PostView{}).
			Where("visitor_id = ? AND post_id = ? AND created_at > ?", visitorID, postID, now.Add(-a.throttle)).
			Count(&recent).Error
		if err != nil || recent > 0 {
			return err
		}

		if err := tx.Create(&view).Error; err != nil {
			return err
		}
		counted = true
		return tx.Model(&models.Post{}).
			Where("id = ?", postID).
			UpdateColumn("views_count", gorm.Expr("views_count + ?", 1)).Error
	})
	if err != nil {
		log.Printf("Error saving post view: %v", err)
		return false
	}
	return counted
}

// getOrCreateVisitorID returns the visitor cookie, issuing one derived from
// the request when it is missing.
func (a *AnalyticsModule) getOrCreateVisitorID(c *gin.Context) string {
	if cookie, err := c.Cookie(visitorCookie); err == nil && cookie != "" {
		return visitorHash(cookie)
	}

	sum := blake2b.Sum256([]byte(a.now().String() + c.ClientIP() + c.Request.UserAgent()))
	cookieID := hex.EncodeToString(sum[:])

	c.SetCookie(
		visitorCookie,
		cookieID,
		60*60*24*365*2,
		"/",
		"",
		false,
		true,
	)
	return visitorHash(cookieID)
}

// visitorHash keeps raw cookie values out of the views table.
func visitorHash(cookieID string) string {
	sum := blake2b.Sum256([]byte(cookieID))
	return hex.EncodeToString(sum[:])
}

// getClientIP prefers proxy headers over the socket address
func getClientIP(c *gin.Context) string {
	if ip := c.GetHeader("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

func extractBrowser(userAgent string) *string {
	if userAgent == "" {
		return nil
	}

	ua := strings.ToLower(userAgent)
	var browser string

	// more specific engines first
	switch {
	case strings.Contains(ua, "edg"):
		browser = "Edge"
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr"):
		browser = "Opera"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	default:
		browser = "Other"
	}
	return &browser
}

// extractLanguage keeps the first tag of Accept-Language.
// Example: "en-US,en;q=0.9" → "en-US"
func extractLanguage(c *gin.Context) *string {
	acceptLang := c.GetHeader("Accept-Language")
	if acceptLang == "" {
		return nil
	}
	lang := strings.TrimSpace(strings.Split(acceptLang, ",")[0])
	lang = strings.Split(lang, ";")[0]
	if lang == "" {
		return nil
	}
	return &lang
}

type DayViews struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type PostViews struct {
	PostID uint   `json:"post_id"`
	Title  string `json:"title"`
	Count  int64  `json:"count"`
}

// GetPostViewCount counts the recorded views of a post over the last days
// days, or ever when days is not positive.
func (a *AnalyticsModule) GetPostViewCount(postID uint, days int) int64 {
	if a == nil || a.db == nil {
		return 0
	}

	query := a.db.Model(&PostView{}).Where("post_id = ?", postID)
	if days > 0 {
		query = query.Where("created_at >= ?", a.now().AddDate(0, 0, -days))
	}

	var count int64
	query.Count(&count)
	return count
}

// GetViewsByDay returns one entry per day for the last days days, oldest
// first, including days without views.
func (a *AnalyticsModule) GetViewsByDay(days int) []DayViews {
	if a == nil || a.db == nil || days <= 0 {
		return []DayViews{}
	}

	now := a.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	var results []DayViews
	a.db.Model(&PostView{}).
		Select("DATE(created_at) as date, COUNT(*) as count").
		Where("created_at >= ?", start).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&results)

	counts := make(map[string]int64, len(results))
	for _, r := range results {
		counts[r.Date] = r.Count
	}

	out := make([]DayViews, days)
	for i := range out {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		out[i] = DayViews{Date: date, Count: counts[date]}
	}
	return out
}

// GetTopPosts returns the limit most viewed posts of the last days days.
func (a *AnalyticsModule) GetTopPosts(days, limit int) []PostViews {
	if a == nil || a.db == nil {
		return []PostViews{}
	}

	start := a.now().AddDate(0, 0, -days)

	results := []PostViews{}
	a.db.Model(&PostView{}).
		Select("post_views.post_id as post_id, posts.title as title, COUNT(*) as count").
		Joins("JOIN posts ON posts.id = post_views.post_id").
		Where("post_views.created_at >= ?", start).
		Group("post_views.post_id, posts.title").
		Order("count DESC").
		Limit(limit).
		Scan(&results)
	return results
}
