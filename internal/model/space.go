package model

import "time"

// Visibility controls who can see a space.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Role is a member's role inside a space.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
)

// CanManageMembers reports whether the role may change other members' roles.
func (r Role) CanManageMembers() bool {
	return r == RoleOwner || r == RoleModerator
}

// SpaceSummary is the list form of a space.
//
// IsMember and MemberRole are caller-relative and only set for signed-in
// callers. MemberRole is nil when the caller is not a member.
type SpaceSummary struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Slug         string      `json:"slug"`
	Description  string      `json:"description,omitempty"`
	Tags         []string    `json:"tags"`
	Visibility   Visibility  `json:"visibility"`
	Owner        UserSummary `json:"owner"`
	MemberCount  int         `json:"memberCount"`
	ArticleCount int         `json:"articleCount"`
	CreatedAt    time.Time   `json:"createdAt"`
	IsMember     bool        `json:"isMember"`
	MemberRole   *Role       `json:"memberRole,omitempty"`
}

// Space is the detail form of a space.
type Space struct {
	SpaceSummary
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	OwnerID   string     `json:"-"`
}

// SpaceMember is one row of a space's member list.
type SpaceMember struct {
	User     UserSummary `json:"user"`
	Role     Role        `json:"role"`
	JoinedAt time.Time   `json:"joinedAt"`
}

// SpaceList is the paginated response of GET /api/spaces.
type SpaceList struct {
	Spaces []SpaceSummary `json:"spaces"`
	Total  int            `json:"total"`
	Skip   int            `json:"skip"`
	Limit  int            `json:"limit"`
}

// MemberList is the paginated response of GET /api/spaces/{id}/members.
type MemberList struct {
	Members []SpaceMember `json:"members"`
	Total   int           `json:"total"`
	Skip    int           `json:"skip"`
	Limit   int           `json:"limit"`
}

// SpaceInput is the POST /api/spaces body.
type SpaceInput struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags"`
	Visibility  Visibility `json:"visibility,omitempty"`
}

// SpaceQuery holds the filters of GET /api/spaces.
type SpaceQuery struct {
	Tags     []string
	Search   string
	MySpaces bool
	Skip     int
	Limit    int
}

// RoleUpdate is the PATCH /api/spaces/{id}/members/{userId} body.
type RoleUpdate struct {
	Role Role `json:"role"`
}

// JoinResult is returned by POST /api/spaces/{id}/join. Leave answers 204.
type JoinResult struct {
	Success  bool       `json:"success"`
	Role     Role       `json:"role"`
	JoinedAt *time.Time `json:"joinedAt"`
}

// SpaceArticle is an article shared into a space.
type SpaceArticle struct {
	Article ArticleSummary `json:"article"`
	AddedBy UserSummary    `json:"addedBy"`
	Pinned  bool           `json:"pinned"`
	AddedAt time.Time      `json:"addedAt"`
}

// SpaceArticleList is the paginated response of GET /api/spaces/{id}/articles.
type SpaceArticleList struct {
	Articles []SpaceArticle `json:"articles"`
	Total    int            `json:"total"`
	Skip     int            `json:"skip"`
	Limit    int            `json:"limit"`
}

// ShareArticle is the POST /api/spaces/{id}/articles body.
type ShareArticle struct {
	ArticleID string `json:"articleId"`
}

// PinUpdate is the PATCH /api/spaces/{id}/articles/{articleId} body and response.
type PinUpdate struct {
	Pinned bool `json:"pinned"`
}
