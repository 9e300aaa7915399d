// Package derive computes the fields a post derives from its title and
// content: slug, excerpt and reading time.
package derive

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	WordsPerMinute = 200

	// ExcerptLimit is the longest content kept verbatim as an excerpt.
	ExcerptLimit    = 500
	excerptKeep     = 497
	excerptEllipsis = "..."
)

type Input struct {
	Title   string
	Content string
	Slug    string
	Excerpt string
}

type Output struct {
	Slug        string
	Excerpt     string
	ReadingTime int
}

// Fields fills the slug and excerpt only when they are blank and always
// recomputes the reading time.
func Fields(in Input) Output {
	out := Output{
		Slug:        in.Slug,
		Excerpt:     in.Excerpt,
		ReadingTime: ReadingTime(in.Content),
	}
	if out.Slug == "" {
		out.Slug = Slug(in.Title)
	}
	if out.Excerpt == "" && in.Content != "" {
		out.Excerpt = Excerpt(in.Content)
	}
	return out
}

// Slug lowercases s, strips diacritics and turns every run of
// non letter/digit characters into a single hyphen.
// Example: "Héllo, World! 2026" → "hello-world-2026"
func Slug(s string) string {
	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		s,
	)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(stripped) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// ReadingTime is the number of minutes needed to read content, never less
// than one.
func ReadingTime(content string) int {
	minutes := len(strings.Fields(content)) / WordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Excerpt returns content unchanged when it is at most ExcerptLimit
// characters long, otherwise its first 497 characters followed by "...".
func Excerpt(content string) string {
	r := []rune(content)
	if len(r) <= ExcerptLimit {
		return content
	}
	return string(r[:excerptKeep]) + excerptEllipsis
}
