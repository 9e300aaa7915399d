package blog

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/feeds"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"pressroom/common"
	"pressroom/content"
)

// markdown renderer for feed item bodies
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
)

func renderMarkdown(source string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return source
	}
	return buf.String()
}

func (b *BlogModule) buildFeed(c *gin.Context) (*feeds.Feed, error) {
	posts, err := b.service.PublishedPosts(c.Request.Context(), content.PostFilter{Limit: feedSize})
	if err != nil {
		return nil, err
	}

	feed := &feeds.Feed{
		Title:       b.cfg.SiteTitle,
		Link:        &feeds.Link{Href: b.cfg.SiteURL},
		Description: "Latest posts from " + b.cfg.SiteTitle,
		Created:     time.Now().UTC(),
	}
	if len(posts) > 0 {
		feed.Created = posts[0].PubDate
		feed.Updated = posts[0].UpdatedAt
	}

	for _, post := range posts {
		link := b.cfg.URL("/posts/" + post.Slug)
		item := &feeds.Item{
			Id:          link,
			Title:       post.Title,
			Link:        &feeds.Link{Href: link},
			Description: post.Excerpt,
			Content:     renderMarkdown(post.Content),
			Created:     post.PubDate,
			Updated:     post.UpdatedAt,
		}
		if post.Author != nil {
			item.Author = &feeds.Author{Name: post.Author.Username}
		}
		feed.Items = append(feed.Items, item)
	}
	return feed, nil
}

// rss serves the latest published posts as an RSS 2.0 document.
func (b *BlogModule) rss(c *gin.Context) {
	feed, err := b.buildFeed(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	out, err := feed.ToRss()
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(out))
}
