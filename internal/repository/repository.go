// Package repository declares the storage interfaces of the dev API.
//
// The service layer depends on these interfaces only; internal/repository/sqlite
// is the one implementation. Not-found lookups return *apperror.AppError
// wrapping apperror.ErrNotFound.
package repository

import (
	"context"
	"time"

	"github.com/sakif/aic-hub/internal/model"
)

// ListOptions is skip/limit pagination.
type ListOptions struct {
	Skip  int
	Limit int
}

// UserRepository stores accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	UsernameTaken(ctx context.Context, username, exceptID string) (bool, error)
	// ContentCounts returns how many published articles the user wrote and
	// how many spaces they belong to.
	ContentCounts(ctx context.Context, userID string) (articles, spaces int, err error)
	ListUsersSince(ctx context.Context, since time.Time, limit int) ([]model.User, error)
}

// ArticleFilter selects articles for ListArticles.
//
// Tags match when an article carries any of them. Status "" means any
// status. PublishedSince filters on publishedAt.
// SortUpdated orders articles by their last edit. It is used for draft
// listings and is not accepted by GET /api/articles.
const SortUpdated = "updated"

type ArticleFilter struct {
	Tags           []string
	AuthorID       string
	Search         string
	Status         model.ArticleStatus
	Sort           string
	PublishedSince *time.Time
	ListOptions
}

// ArticleRepository stores articles. Returned articles carry their author's
// summary.
type ArticleRepository interface {
	CreateArticle(ctx context.Context, article *model.Article) error
	GetArticle(ctx context.Context, id string) (*model.Article, error)
	GetArticleBySlug(ctx context.Context, slug string) (*model.Article, error)
	UpdateArticle(ctx context.Context, article *model.Article) error
	DeleteArticle(ctx context.Context, id string) error
	ListArticles(ctx context.Context, filter ArticleFilter) ([]model.Article, int, error)
	ArticleSlugExists(ctx context.Context, slug string) (bool, error)
	IncrementViews(ctx context.Context, id string) error
}

// SpaceFilter selects spaces for ListSpaces.
//
// ViewerID fills the caller-relative IsMember/MemberRole fields. MemberID
// restricts the result to spaces that user belongs to. Private spaces are
// listed only for their members.
type SpaceFilter struct {
	Tags         []string
	Search       string
	ViewerID     string
	MemberID     string
	CreatedSince *time.Time
	// OrderBy is "created" (default), "members" or "updated".
	OrderBy string
	ListOptions
}

// SpaceRepository stores spaces and their memberships.
type SpaceRepository interface {
	// CreateSpace inserts the space and the owner's membership together.
	CreateSpace(ctx context.Context, space *model.Space) error
	GetSpace(ctx context.Context, id, viewerID string) (*model.Space, error)
	GetSpaceBySlug(ctx context.Context, slug, viewerID string) (*model.Space, error)
	ListSpaces(ctx context.Context, filter SpaceFilter) ([]model.Space, int, error)
	SpaceSlugExists(ctx context.Context, slug string) (bool, error)

	GetMembership(ctx context.Context, spaceID, userID string) (*model.SpaceMember, error)
	AddMember(ctx context.Context, spaceID, userID string, role model.Role) (*model.SpaceMember, error)
	RemoveMember(ctx context.Context, spaceID, userID string) error
	UpdateMemberRole(ctx context.Context, spaceID, userID string, role model.Role) error
	ListMembers(ctx context.Context, spaceID string, role model.Role, opts ListOptions) ([]model.SpaceMember, int, error)
	CountMembersSince(ctx context.Context, spaceID string, since time.Time) (int, error)

	// AddSpaceArticle links an article to a space and bumps article_count.
	// Linking twice is a conflict.
	AddSpaceArticle(ctx context.Context, spaceID, articleID, addedBy string) (*model.SpaceArticle, error)
	GetSpaceArticle(ctx context.Context, spaceID, articleID string) (*model.SpaceArticle, error)
	// ListSpaceArticles returns the published articles shared to a space,
	// newest first, or pinned first and then newest when pinnedFirst is set.
	ListSpaceArticles(ctx context.Context, spaceID string, pinnedFirst bool, opts ListOptions) ([]model.SpaceArticle, int, error)
	SetSpaceArticlePinned(ctx context.Context, spaceID, articleID string, pinned bool) error
	// RemoveSpaceArticle unlinks an article and lowers article_count.
	RemoveSpaceArticle(ctx context.Context, spaceID, articleID string) error
}

// Activity is one recorded interaction.
type Activity struct {
	ID         string
	UserID     string
	Type       string
	TargetType string
	TargetID   string
	Duration   *int
	Metadata   map[string]any
	CreatedAt  time.Time
}

// ActivityRepository stores interactions.
type ActivityRepository interface {
	RecordActivity(ctx context.Context, activity *Activity) error
	CountActivities(ctx context.Context, targetType, targetID string, since time.Time) (int, error)
}
