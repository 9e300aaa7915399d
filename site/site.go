package site

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pressroom/cache"
	"pressroom/common"
	"pressroom/content"
)

// SiteModule serves crawler-facing documents.
type SiteModule struct {
	service *content.Service
	cache   *cache.Store
	cfg     *common.Config
}

func NewSiteModule(service *content.Service, store *cache.Store, cfg *common.Config) *SiteModule {
	return &SiteModule{service: service, cache: store, cfg: cfg}
}

func (s *SiteModule) RegisterRoutes(router *gin.Engine) {
	router.GET(common.SitemapPath, cache.CacheMiddleware(s.cache, s.cfg.CacheMaxAge), s.sitemap)
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// sitemap lists the home page, every published post, and the active
// categories and tags.
func (s *SiteModule) sitemap(c *gin.Context) {
	ctx := c.Request.Context()

	posts, err := s.service.PublishedPosts(ctx, content.PostFilter{})
	if err != nil {
		common.RespondError(c, err)
		return
	}
	categories, err := s.service.ActiveCategories(ctx)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	tags, err := s.service.Tags(ctx)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	set := urlSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	set.URLs = append(set.URLs, sitemapURL{Loc: s.cfg.URL("/"), ChangeFreq: "daily", Priority: "1.0"})

	for _, post := range posts {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        s.cfg.URL("/posts/" + post.Slug),
			LastMod:    post.UpdatedAt.UTC().Format(time.RFC3339),
			ChangeFreq: "monthly",
			Priority:   "0.6",
		})
	}
	for _, category := range categories {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        s.cfg.URL("/categories/" + category.Slug),
			ChangeFreq: "weekly",
			Priority:   "0.5",
		})
	}
	for _, tag := range tags {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        s.cfg.URL("/tags/" + tag.Slug),
			ChangeFreq: "weekly",
			Priority:   "0.4",
		})
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", append([]byte(xml.Header), out...))
}
