package derive

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello-world"},
		{"Testing 123", "testing-123"},
		{"Multiple   Spaces", "multiple-spaces"},
		{"Special@#Characters!", "special-characters"},
		{"  --Trim me--  ", "trim-me"},
		{"Café à la crème", "cafe-a-la-creme"},
		{"Ação e Reação", "acao-e-reacao"},
		{"Привет, мир", "привет-мир"},
		{"already-a-slug", "already-a-slug"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slug(tt.input))
		})
	}
}

func TestSlug_Idempotent(t *testing.T) {
	for _, title := range []string{"Hello World", "Go 1.23: What's New?", "Ünïcödé títle"} {
		once := Slug(title)
		assert.Equal(t, once, Slug(title))
		assert.Equal(t, once, Slug(once))
	}
}

func TestReadingTime(t *testing.T) {
	words := func(n int) string {
		return strings.TrimSpace(strings.Repeat("word ", n))
	}

	assert.Equal(t, 1, ReadingTime(""))
	assert.Equal(t, 1, ReadingTime(words(1)))
	assert.Equal(t, 1, ReadingTime(words(199)))
	assert.Equal(t, 1, ReadingTime(words(399)))
	assert.Equal(t, 2, ReadingTime(words(400)))
	assert.Equal(t, 5, ReadingTime(words(1000)))
	assert.Equal(t, 2, ReadingTime(strings.Repeat("a\t\n  b ", 200)))
}

func TestExcerpt(t *testing.T) {
	exact := strings.Repeat("a", 500)
	assert.Equal(t, exact, Excerpt(exact))

	long := strings.Repeat("b", 501)
	got := Excerpt(long)
	assert.Len(t, got, 500)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, strings.Repeat("b", 497), strings.TrimSuffix(got, "..."))

	assert.Equal(t, "short", Excerpt("short"))
}

func TestExcerpt_CountsCharacters(t *testing.T) {
	content := strings.Repeat("ж", 600)
	got := Excerpt(content)

	assert.Equal(t, 500, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}

func TestFields_DerivesBlankValues(t *testing.T) {
	out := Fields(Input{Title: "Hello World", Content: "Some content here"})

	assert.Equal(t, "hello-world", out.Slug)
	assert.Equal(t, "Some content here", out.Excerpt)
	assert.Equal(t, 1, out.ReadingTime)
}

func TestFields_KeepsSuppliedValues(t *testing.T) {
	out := Fields(Input{
		Title:   "Hello World",
		Content: strings.Repeat("word ", 600),
		Slug:    "custom-slug",
		Excerpt: "Hand written",
	})

	assert.Equal(t, "custom-slug", out.Slug)
	assert.Equal(t, "Hand written", out.Excerpt)
	assert.Equal(t, 3, out.ReadingTime)
}

func TestFields_EmptyContentLeavesExcerptBlank(t *testing.T) {
	out := Fields(Input{Title: "Title"})

	assert.Equal(t, "", out.Excerpt)
	assert.Equal(t, 1, out.ReadingTime)
}
