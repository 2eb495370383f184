package model

import "time"

// ArticleStatus is the publication state of an article.
// Transitions are server-authoritative: the client only requests them.
type ArticleStatus string

const (
	StatusDraft     ArticleStatus = "draft"
	StatusPublished ArticleStatus = "published"
	StatusArchived  ArticleStatus = "archived"
)

// Valid reports whether s is one of the known statuses.
func (s ArticleStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Sort orders accepted by GET /api/articles.
const (
	SortLatest   = "latest"
	SortPopular  = "popular"
	SortTrending = "trending"
)

// ArticleSummary is the list form of an article (no content).
type ArticleSummary struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Summary     string      `json:"summary,omitempty"`
	Tags        []string    `json:"tags"`
	Author      UserSummary `json:"author"`
	ViewCount   int         `json:"viewCount"`
	LikeCount   int         `json:"likeCount"`
	PublishedAt *time.Time  `json:"publishedAt,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Article is the full article including its rich-text document.
//
// AuthorID is only used inside the stand-in API; clients read Author instead.
type Article struct {
	ArticleSummary
	Content   Document      `json:"content"`
	Status    ArticleStatus `json:"status"`
	UpdatedAt *time.Time    `json:"updatedAt,omitempty"`
	IsAuthor  bool          `json:"isAuthor"`
	AuthorID  string        `json:"-"`
}

// IsPublished reports whether the article is publicly visible.
func (a *Article) IsPublished() bool {
	return a.Status == StatusPublished
}

// ArticleList is the paginated response of GET /api/articles.
type ArticleList struct {
	Articles []ArticleSummary `json:"articles"`
	Total    int              `json:"total"`
	Skip     int              `json:"skip"`
	Limit    int              `json:"limit"`
}

// ArticleInput is the POST /api/articles body. New articles always start as drafts.
type ArticleInput struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary,omitempty"`
	Content Document `json:"content"`
	Tags    []string `json:"tags"`
}

// ArticleUpdate is the PATCH /api/articles/{id} body.
// A nil field means "leave unchanged".
type ArticleUpdate struct {
	Title   *string        `json:"title,omitempty"`
	Summary *string        `json:"summary,omitempty"`
	Content Document       `json:"content,omitempty"`
	Tags    *[]string      `json:"tags,omitempty"`
	Status  *ArticleStatus `json:"status,omitempty"`
}

// ArticleQuery holds the filters of GET /api/articles.
type ArticleQuery struct {
	Tags   []string
	Author string
	Search string
	Sort   string
	Skip   int
	Limit  int
}
