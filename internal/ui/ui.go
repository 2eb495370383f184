// Package ui holds the shared presentation primitives: card, badge and tabs.
//
// Every function is pure: it takes display strings and returns a styled
// string. Colours are applied through lipgloss, which drops them
// automatically when the output is not a colour terminal.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sakif/aic-hub/internal/model"
)

// BadgeKind selects a badge colour.
type BadgeKind int

const (
	BadgeNeutral BadgeKind = iota
	BadgeInfo
	BadgeSuccess
	BadgeWarning
	BadgeDanger
)

var badgeColors = map[BadgeKind]lipgloss.Color{
	BadgeNeutral: lipgloss.Color("245"),
	BadgeInfo:    lipgloss.Color("33"),
	BadgeSuccess: lipgloss.Color("42"),
	BadgeWarning: lipgloss.Color("214"),
	BadgeDanger:  lipgloss.Color("196"),
}

var (
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).BorderForeground(lipgloss.Color("63"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	activeTab   = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("205"))
	inactiveTab = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Card frames a title, a body and an optional footer. Empty parts are left out.
func Card(title, body, footer string) string {
	var parts []string
	if title != "" {
		parts = append(parts, titleStyle.Render(title))
	}
	if body != "" {
		parts = append(parts, body)
	}
	if footer != "" {
		parts = append(parts, footerStyle.Render(footer))
	}
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// Badge renders a short label as "[label]".
func Badge(label string, kind BadgeKind) string {
	color, ok := badgeColors[kind]
	if !ok {
		color = badgeColors[BadgeNeutral]
	}
	return lipgloss.NewStyle().Foreground(color).Render("[" + label + "]")
}

// Tabs renders labels on one line with the active one highlighted. An
// active index out of range highlights nothing.
func Tabs(labels []string, active int) string {
	out := make([]string, len(labels))
	for i, l := range labels {
		if i == active {
			out[i] = activeTab.Render("‹" + l + "›")
		} else {
			out[i] = inactiveTab.Render(" " + l + " ")
		}
	}
	return strings.Join(out, " ")
}

// TabIndex returns the index of value in labels, or -1.
func TabIndex(labels []string, value string) int {
	for i, l := range labels {
		if l == value {
			return i
		}
	}
	return -1
}

// StatusBadge renders an article status.
func StatusBadge(s model.ArticleStatus) string {
	switch s {
	case model.StatusPublished:
		return Badge(string(s), BadgeSuccess)
	case model.StatusDraft:
		return Badge(string(s), BadgeWarning)
	case model.StatusArchived:
		return Badge(string(s), BadgeNeutral)
	}
	return Badge(string(s), BadgeNeutral)
}

// RoleBadge renders a space role.
func RoleBadge(r model.Role) string {
	switch r {
	case model.RoleOwner:
		return Badge(string(r), BadgeDanger)
	case model.RoleModerator:
		return Badge(string(r), BadgeInfo)
	}
	return Badge(string(r), BadgeNeutral)
}

// TagBadges renders each tag as a badge, space separated.
func TagBadges(tags []string) string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = Badge(t, BadgeInfo)
	}
	return strings.Join(out, " ")
}
