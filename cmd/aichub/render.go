package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/ui"
)

const dateLayout = "2006-01-02"

func byline(u model.UserSummary) string {
	if u.Username != "" {
		return u.Name() + " (@" + u.Username + ")"
	}
	return u.Name()
}

func date(t *time.Time) string {
	if t == nil {
		return "unpublished"
	}
	return t.Format(dateLayout)
}

func joinLines(blocks []string) string {
	return strings.Join(blocks, "\n")
}

func articleCard(a model.ArticleSummary) string {
	body := a.Summary
	if len(a.Tags) > 0 {
		if body != "" {
			body += "\n"
		}
		body += ui.TagBadges(a.Tags)
	}
	footer := fmt.Sprintf("%s · %s · %d views · %s", byline(a.Author), date(a.PublishedAt), a.ViewCount, a.Slug)
	return ui.Card(a.Title, body, footer)
}

func articleList(items []model.ArticleSummary, total int) string {
	if len(items) == 0 {
		return "No articles found."
	}
	blocks := make([]string, 0, len(items)+1)
	for _, a := range items {
		blocks = append(blocks, articleCard(a))
	}
	blocks = append(blocks, fmt.Sprintf("Showing %d of %d", len(items), total))
	return joinLines(blocks)
}

func articleDetail(a *model.Article) string {
	header := ui.StatusBadge(a.Status)
	if len(a.Tags) > 0 {
		header += " " + ui.TagBadges(a.Tags)
	}
	var parts []string
	parts = append(parts, header)
	if a.Summary != "" {
		parts = append(parts, a.Summary)
	}
	parts = append(parts, "", a.Content.PlainText())
	footer := fmt.Sprintf("%s · %s · %d views · id %s", byline(a.Author), date(a.PublishedAt), a.ViewCount, a.ID)
	return ui.Card(a.Title, strings.Join(parts, "\n"), footer)
}

func profileCard(p *model.PublicProfile, extra ...string) string {
	var lines []string
	if p.Bio != "" {
		lines = append(lines, p.Bio)
	}
	var where []string
	if p.Company != "" {
		where = append(where, p.Company)
	}
	if p.Location != "" {
		where = append(where, p.Location)
	}
	if len(where) > 0 {
		lines = append(lines, strings.Join(where, " · "))
	}
	if len(p.ExpertiseTags) > 0 {
		lines = append(lines, ui.TagBadges(p.ExpertiseTags))
	}
	lines = append(lines, extra...)
	title := p.DisplayName
	if title == "" {
		title = p.Username
	}
	footer := fmt.Sprintf("@%s · %d articles · %d spaces · joined %s",
		p.Username, p.ArticleCount, p.SpaceCount, p.CreatedAt.Format(dateLayout))
	return ui.Card(title, strings.Join(lines, "\n"), footer)
}

func privateProfileCard(p *model.PrivateProfile) string {
	extra := []string{"Email: " + p.Email}
	if p.GitHubUsername != "" {
		extra = append(extra, "GitHub: "+p.GitHubUsername)
	}
	if p.UsernameEditable {
		extra = append(extra, ui.Badge("username not chosen yet", ui.BadgeWarning))
	}
	return profileCard(&p.PublicProfile, extra...)
}

func spaceCard(s model.SpaceSummary) string {
	header := ui.Badge(string(s.Visibility), ui.BadgeNeutral)
	if s.IsMember && s.MemberRole != nil {
		header += " " + ui.RoleBadge(*s.MemberRole)
	}
	body := []string{header}
	if s.Description != "" {
		body = append(body, s.Description)
	}
	if len(s.Tags) > 0 {
		body = append(body, ui.TagBadges(s.Tags))
	}
	footer := fmt.Sprintf("owner %s · %d members · %d articles · %s",
		byline(s.Owner), s.MemberCount, s.ArticleCount, s.Slug)
	return ui.Card(s.Name, strings.Join(body, "\n"), footer)
}

func spaceList(items []model.SpaceSummary, total int) string {
	if len(items) == 0 {
		return "No spaces found."
	}
	blocks := make([]string, 0, len(items)+1)
	for _, s := range items {
		blocks = append(blocks, spaceCard(s))
	}
	blocks = append(blocks, fmt.Sprintf("Showing %d of %d", len(items), total))
	return joinLines(blocks)
}

func memberList(items []model.SpaceMember, total int) string {
	if len(items) == 0 {
		return "No members."
	}
	lines := make([]string, 0, len(items)+1)
	for _, m := range items {
		lines = append(lines, fmt.Sprintf("%s %s  id %s  joined %s",
			ui.RoleBadge(m.Role), byline(m.User), m.User.ID, m.JoinedAt.Format(dateLayout)))
	}
	lines = append(lines, fmt.Sprintf("Showing %d of %d", len(items), total))
	return joinLines(lines)
}

func sharedArticleList(items []model.SpaceArticle, total int) string {
	if len(items) == 0 {
		return "No articles shared yet."
	}
	blocks := make([]string, 0, len(items)+1)
	for _, sa := range items {
		line := fmt.Sprintf("shared by %s on %s", byline(sa.AddedBy), sa.AddedAt.Format(dateLayout))
		if sa.Pinned {
			line = "pinned · " + line
		}
		blocks = append(blocks, articleCard(sa.Article)+"\n"+line+" · id "+sa.Article.ID)
	}
	blocks = append(blocks, fmt.Sprintf("Showing %d of %d", len(items), total))
	return joinLines(blocks)
}

var feedViews = []string{model.FeedLatest, model.FeedTrending, model.FeedRecommended}

func feedList(view string, items []model.FeedItem, total int) string {
	blocks := []string{ui.Tabs(feedViews, ui.TabIndex(feedViews, view))}
	if len(items) == 0 {
		return joinLines(append(blocks, "Nothing here yet."))
	}
	for _, it := range items {
		switch {
		case it.Article != nil:
			blocks = append(blocks, articleCard(*it.Article))
		case it.Space != nil:
			blocks = append(blocks, spaceCard(*it.Space))
		default:
			blocks = append(blocks, ui.Card(it.Title(), "", it.Reason))
		}
	}
	blocks = append(blocks, fmt.Sprintf("Showing %d of %d", len(items), total))
	return joinLines(blocks)
}

func trendingSection(title string, items []model.TrendingItem) []string {
	if len(items) == 0 {
		return nil
	}
	out := []string{ui.Badge(title, ui.BadgeSuccess)}
	for i, it := range items {
		label := trendingLabel(it)
		detail := fmt.Sprintf("score %.2f", it.Score)
		switch it.Type {
		case "article":
			detail += fmt.Sprintf(" · %d views · %s", it.ViewsInPeriod, it.Trend)
		case "space":
			detail += fmt.Sprintf(" · +%d members · activity %.0f", it.NewMembers, it.ActivityScore)
		}
		out = append(out, fmt.Sprintf("%2d. %s  (%s)", i+1, label, detail))
	}
	return out
}

func trendingLabel(it model.TrendingItem) string {
	switch it.Type {
	case "article":
		if a, err := it.Article(); err == nil {
			return a.Title
		}
	case "space":
		if sp, err := it.Space(); err == nil {
			return sp.Name
		}
	case "tag":
		if tt, err := it.Tag(); err == nil {
			return fmt.Sprintf("%s (%d articles, %d spaces)", tt.Name, tt.ArticleCount, tt.SpaceCount)
		}
	}
	return it.Type
}

func trendingView(t *model.Trending) string {
	var lines []string
	lines = append(lines, trendingSection("articles", t.Articles)...)
	lines = append(lines, trendingSection("spaces", t.Spaces)...)
	lines = append(lines, trendingSection("tags", t.Tags)...)
	if len(lines) == 0 {
		return "Nothing is trending in this period."
	}
	return joinLines(lines)
}

func discoveryView(d *model.Discovery) string {
	blocks := []string{ui.Badge(d.Category, ui.BadgeInfo)}
	for _, it := range d.Items {
		metrics := metricsLine(it.Metrics)
		switch {
		case it.Article != nil:
			blocks = append(blocks, ui.Card(it.Article.Title, ui.TagBadges(it.Article.Tags), metrics))
		case it.Space != nil:
			blocks = append(blocks, ui.Card(it.Space.Name, it.Space.Description, metrics))
		case it.User != nil:
			blocks = append(blocks, ui.Card(byline(it.User.UserSummary), "", "joined "+it.User.JoinedAt.Format(dateLayout)))
		}
	}
	if len(d.Items) == 0 {
		blocks = append(blocks, "Nothing to discover right now.")
	}
	blocks = append(blocks, "Refresh after "+d.RefreshAt.Local().Format(time.Kitchen))
	return joinLines(blocks)
}

func metricsLine(m map[string]float64) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %g", k, m[k])
	}
	return strings.Join(parts, " · ")
}

func tagList(tags model.TagList) string {
	lines := make([]string, 0, len(tags.Tags))
	for _, t := range tags.Tags {
		line := ui.Badge(t.Name, ui.BadgeInfo) + " " + t.Description
		if len(t.Related) > 0 {
			line += "  (related: " + strings.Join(t.Related, ", ") + ")"
		}
		lines = append(lines, line)
	}
	return joinLines(lines)
}
