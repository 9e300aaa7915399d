package common

// Public paths served through the response cache. The cache key of each
// is its path, so admin writes clear exactly the ones they affect.
const (
	CategoriesPath = "/api/categories"
	TagsPath       = "/api/tags"
	FeedPath       = "/rss"
	SitemapPath    = "/sitemap.xml"
)
