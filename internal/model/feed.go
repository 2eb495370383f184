package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Feed views accepted by GET /api/feed.
const (
	FeedLatest      = "latest"
	FeedTrending    = "trending"
	FeedRecommended = "recommended"
)

// Time ranges accepted by the trending endpoints.
const (
	Range24h = "24h"
	Range7d  = "7d"
	Range30d = "30d"
	RangeAll = "all"
)

// Discovery categories accepted by GET /api/feed/discover.
const (
	DiscoverNewUsers       = "new_users"
	DiscoverRisingArticles = "rising_articles"
	DiscoverActiveSpaces   = "active_spaces"
)

// Interaction types accepted by POST /api/feed/interactions.
const (
	InteractionView  = "view"
	InteractionClick = "click"
	InteractionShare = "share"
	InteractionSave  = "save"
)

// FeedItem is one entry of the personalized feed. Exactly one of Article,
// Space or User is set, according to Type.
type FeedItem struct {
	Type    string          `json:"type"`
	Article *ArticleSummary `json:"article,omitempty"`
	Space   *SpaceSummary   `json:"space,omitempty"`
	User    *UserSummary    `json:"user,omitempty"`
	Reason  string          `json:"reason,omitempty"`
	Score   float64         `json:"score,omitempty"`
}

// Title returns a display label for whichever entity the item carries.
func (f FeedItem) Title() string {
	switch {
	case f.Article != nil:
		return f.Article.Title
	case f.Space != nil:
		return f.Space.Name
	case f.User != nil:
		return f.User.Name()
	}
	return f.Type
}

// FeedPage is the response of GET /api/feed.
type FeedPage struct {
	Items      []FeedItem `json:"items"`
	Total      int        `json:"total"`
	Skip       int        `json:"skip"`
	Limit      int        `json:"limit"`
	NextCursor *string    `json:"nextCursor"`
}

// FeedQuery holds the filters of GET /api/feed.
type FeedQuery struct {
	View      string
	Tags      []string
	TimeRange string
	Skip      int
	Limit     int
}

// TrendingItem is one ranked entity. Data holds an ArticleSummary, a
// SpaceSummary or a TagTrend depending on Type; use the typed accessors.
type TrendingItem struct {
	Type          string          `json:"type"`
	Data          json.RawMessage `json:"data"`
	Score         float64         `json:"score,omitempty"`
	ViewsInPeriod int             `json:"viewsInPeriod,omitempty"`
	Trend         string          `json:"trend,omitempty"`
	NewMembers    int             `json:"newMembers,omitempty"`
	ActivityScore float64         `json:"activityScore,omitempty"`
}

// NewTrendingItem encodes data into a TrendingItem.
func NewTrendingItem(kind string, data any) (TrendingItem, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return TrendingItem{}, fmt.Errorf("model: encoding trending %s: %w", kind, err)
	}
	return TrendingItem{Type: kind, Data: b}, nil
}

// Article decodes Data as an article summary.
func (t TrendingItem) Article() (*ArticleSummary, error) {
	var a ArticleSummary
	if err := t.decode("article", &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Space decodes Data as a space summary.
func (t TrendingItem) Space() (*SpaceSummary, error) {
	var s SpaceSummary
	if err := t.decode("space", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Tag decodes Data as a tag trend.
func (t TrendingItem) Tag() (*TagTrend, error) {
	var tt TagTrend
	if err := t.decode("tag", &tt); err != nil {
		return nil, err
	}
	return &tt, nil
}

func (t TrendingItem) decode(want string, v any) error {
	if t.Type != want {
		return fmt.Errorf("model: trending item is %q, not %q", t.Type, want)
	}
	if err := json.Unmarshal(t.Data, v); err != nil {
		return fmt.Errorf("model: decoding trending %s: %w", want, err)
	}
	return nil
}

// TagTrend is the payload of a tag trending item.
type TagTrend struct {
	Name         string `json:"name"`
	ArticleCount int    `json:"articleCount"`
	SpaceCount   int    `json:"spaceCount"`
}

// Trending is the response of GET /api/feed/trending.
type Trending struct {
	Articles []TrendingItem `json:"articles"`
	Spaces   []TrendingItem `json:"spaces"`
	Tags     []TrendingItem `json:"tags"`
}

// DiscoveryUser is the user payload of a new_users discovery item.
type DiscoveryUser struct {
	UserSummary
	JoinedAt time.Time `json:"joinedAt"`
}

// DiscoveryItem carries one of Article, Space or User with optional metrics.
type DiscoveryItem struct {
	Article *ArticleSummary    `json:"article,omitempty"`
	Space   *SpaceSummary      `json:"space,omitempty"`
	User    *DiscoveryUser     `json:"user,omitempty"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Discovery is the response of GET /api/feed/discover.
type Discovery struct {
	Category  string          `json:"category"`
	Items     []DiscoveryItem `json:"items"`
	RefreshAt time.Time       `json:"refreshAt"`
}

// Interaction is the POST /api/feed/interactions body.
type Interaction struct {
	Type       string         `json:"type"`
	TargetType string         `json:"targetType"`
	TargetID   string         `json:"targetId"`
	Duration   *int           `json:"duration,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// TrendingScore ranks content by engagement decayed over age:
// (views + 2·likes) / (ageHours + 2)^1.5.
func TrendingScore(views, likes int, ageHours float64) float64 {
	if ageHours < 0 {
		ageHours = 0
	}
	return float64(views+2*likes) / math.Pow(ageHours+2, 1.5)
}
