// Package model defines the data structures shared by the API client, the page
// state machines and the local API stand-in.
//
// JSON TAGS:
// Field names follow the wire format of the AIC HUB REST API (camelCase).
// Both sides of the wire (internal/api and internal/handler) encode and decode
// these exact structs, so a field rename here is a contract change.
package model

import "time"

// User is the stored account record.
//
// Only the stand-in API persists this struct. Clients never see it directly:
// the handlers project it into PrivateProfile (the owner), PublicProfile
// (everybody else) or UserSummary (embedded in articles and spaces).
//
// WHY Username string (not *string)?
// A freshly created account always gets a username generated from the email
// local part, so the column is never NULL. Whether the user may still change
// it is derived from DefaultUsername (see PrivateProfile.UsernameEditable).
type User struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	DisplayName    string `json:"displayName"`
	PasswordHash   string `json:"-"`
	GitHubID       int64  `json:"-"`
	GitHubUsername string `json:"githubUsername,omitempty"`
	// DefaultUsername is the username assigned at signup. The user may change
	// the username once, while it still equals this value.
	DefaultUsername string    `json:"-"`
	AvatarURL       string    `json:"avatarUrl,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	Company         string    `json:"company,omitempty"`
	Location        string    `json:"location,omitempty"`
	ExpertiseTags   []string  `json:"expertiseTags"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Summary returns the reference form embedded in articles, spaces and feed items.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// Public returns the profile visible to anyone (no email).
func (u *User) Public() PublicProfile {
	tags := u.ExpertiseTags
	if tags == nil {
		tags = []string{}
	}
	return PublicProfile{
		ID:            u.ID,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		AvatarURL:     u.AvatarURL,
		Bio:           u.Bio,
		Company:       u.Company,
		Location:      u.Location,
		ExpertiseTags: tags,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// Private returns the owner's view of the account.
func (u *User) Private(usernameEditable bool) PrivateProfile {
	return PrivateProfile{
		PublicProfile:    u.Public(),
		Email:            u.Email,
		UsernameEditable: usernameEditable,
		GitHubUsername:   u.GitHubUsername,
	}
}

// UserSummary is a lightweight author/owner reference.
type UserSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Name returns the best human-readable label for the user.
func (s UserSummary) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	if s.Username != "" {
		return s.Username
	}
	return s.ID
}

// PublicProfile is returned by GET /api/users/{username}.
type PublicProfile struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	DisplayName   string    `json:"displayName,omitempty"`
	AvatarURL     string    `json:"avatarUrl,omitempty"`
	Bio           string    `json:"bio,omitempty"`
	Company       string    `json:"company,omitempty"`
	Location      string    `json:"location,omitempty"`
	ExpertiseTags []string  `json:"expertiseTags"`
	ArticleCount  int       `json:"articleCount"`
	SpaceCount    int       `json:"spaceCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// PrivateProfile is returned by GET/PATCH /api/users/me.
//
// UsernameEditable is true until the user picks a username themselves.
// After that the username is a permanent public identifier.
type PrivateProfile struct {
	PublicProfile
	Email            string `json:"email"`
	UsernameEditable bool   `json:"usernameEditable"`
	GitHubUsername   string `json:"githubUsername,omitempty"`
}

// ProfileUpdate is the PATCH /api/users/me body.
// A nil field means "leave unchanged".
type ProfileUpdate struct {
	DisplayName   *string   `json:"displayName,omitempty"`
	Username      *string   `json:"username,omitempty"`
	Bio           *string   `json:"bio,omitempty"`
	Company       *string   `json:"company,omitempty"`
	Location      *string   `json:"location,omitempty"`
	ExpertiseTags *[]string `json:"expertiseTags,omitempty"`
}

// SignupRequest is the POST /api/auth/signup body.
type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// LoginRequest is the POST /api/auth/login body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup, login and the OAuth callback.
// The session itself travels in the HttpOnly cookie, never in the body.
type AuthResponse struct {
	User    PrivateProfile `json:"user"`
	Created bool           `json:"created"`
}
