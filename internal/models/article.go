// Package models defines the domain types for Folio.
package models

// DateLayout is the ISO 8601 calendar date format used for Article dates.
const DateLayout = "2006-01-02"

// Fields is the persisted part of an article: the metadata block plus body.
type Fields struct {
	Title     string `json:"title"`
	Date      string `json:"date"`
	Excerpt   string `json:"excerpt"`
	Image     string `json:"image,omitempty"` // empty means no featured image
	Published bool   `json:"published"`
	Content   string `json:"content"`
}

// Article is a stored document resolved by slug. ReadingTime is derived
// from Content on every load and never persisted.
type Article struct {
	Slug string `json:"slug"`
	Fields
	ReadingTime int `json:"readingTime"`
}

// ArticleMeta is the listing representation; Content is omitted.
type ArticleMeta struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	Excerpt     string `json:"excerpt"`
	Image       string `json:"image,omitempty"`
	Published   bool   `json:"published"`
	ReadingTime int    `json:"readingTime"`
}

// Meta projects the article onto its listing representation.
func (a *Article) Meta() ArticleMeta {
	return ArticleMeta{
		Slug:        a.Slug,
		Title:       a.Title,
		Date:        a.Date,
		Excerpt:     a.Excerpt,
		Image:       a.Image,
		Published:   a.Published,
		ReadingTime: a.ReadingTime,
	}
}

// ArticleInput is the caller-supplied payload for create and update.
// A nil Published means published; an empty Date means "default".
type ArticleInput struct {
	Title     string `json:"title"`
	Date      string `json:"date,omitempty"`
	Excerpt   string `json:"excerpt"`
	Image     string `json:"image,omitempty"`
	Published *bool  `json:"published,omitempty"`
	Content   string `json:"content"`
}

// IsPublished resolves the Published default.
func (in ArticleInput) IsPublished() bool {
	return in.Published == nil || *in.Published
}
