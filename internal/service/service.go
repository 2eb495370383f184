// Package service holds the business rules of the dev API.
//
//	Handler (HTTP) → Service (rules) → Repository (SQL)
//
// Services take and return model types and *apperror.AppError, never HTTP
// types, so every rule here is testable with plain function calls. The
// repositories are interfaces; tests run them on an in-memory SQLite.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/validate"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
	// MaxSlugLength bounds generated article and space slugs, suffix excluded.
	MaxSlugLength = 50
)

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces  = regexp.MustCompile(`[-\s]+`)
)

// Slugify turns a title into a URL slug: ASCII-folded, lowercase, words
// joined by hyphens, at most MaxSlugLength characters.
func Slugify(text string) string {
	s := strings.ToLower(validate.ASCIIFold(text))
	s = slugInvalid.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = slugSpaces.ReplaceAllString(s, "-")
	if len(s) > MaxSlugLength {
		s = s[:MaxSlugLength]
	}
	return strings.Trim(s, "-")
}

// uniqueSlug returns base, or base-2, base-3 ... whichever is free. Titles
// with no usable characters get a random slug.
func uniqueSlug(ctx context.Context, base string, exists func(context.Context, string) (bool, error)) (string, error) {
	if base == "" {
		return xid.New().String(), nil
	}
	candidate := base
	for n := 2; n <= 100; n++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return base + "-" + xid.New().String(), nil
}

// clampPage applies the default and maximum page size.
func clampPage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return skip, limit
}

// invalid converts the field map returned by package validate into an
// AppError naming the first offending field (alphabetically).
func invalid(err error) error {
	var fields apperror.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return err
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return apperror.ValidationFailed(names[0], fields[names[0]])
}

// canonicalTags maps each tag onto its taxonomy spelling and rejects the rest.
func canonicalTags(field string, tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	var unknown []string
	for _, t := range tags {
		c, ok := model.CanonicalTag(t)
		if !ok {
			unknown = append(unknown, t)
			continue
		}
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	if len(unknown) > 0 {
		return nil, apperror.ValidationFailed(field, "Unknown tags: "+strings.Join(unknown, ", "))
	}
	return out, nil
}
