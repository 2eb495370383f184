// Package validate holds the client-side form rules.
//
// The server stays authoritative; these checks exist so a form can show
// inline messages and skip a round trip that is certain to fail. Every
// function returns apperror.ValidationErrors (field → message) or nil.
//
// Rules are expressed with ozzo-validation. Field names in the returned map
// are the JSON names of the request body, so they line up with what the
// server reports in AppError.Field.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/model"
)

const (
	MaxTitleLength       = 200
	MaxSummaryLength     = 500
	MinPasswordLength    = 8
	MaxPasswordLength    = 72
	MaxDisplayNameLength = 100
	MaxBioLength         = 500
	MaxCompanyLength     = 100
	MaxLocationLength    = 100
	MaxSpaceNameLength   = 100
	MaxSpaceDescLength   = 500
)

var (
	hasLetter = regexp.MustCompile(`[A-Za-z]`)
	hasDigit  = regexp.MustCompile(`[0-9]`)
)

func notBlank(message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return errors.New(message)
		}
		return nil
	})
}

func maxTags(limit int) validation.Rule {
	return validation.By(func(value interface{}) error {
		tags, _ := value.([]string)
		if len(tags) > limit {
			return fmt.Errorf("Choose at most %d tags", limit)
		}
		return nil
	})
}

func taxonomyOnly() validation.Rule {
	return validation.By(func(value interface{}) error {
		tags, _ := value.([]string)
		if bad := model.InvalidTags(tags); len(bad) > 0 {
			return fmt.Errorf("Unknown tags: %s", strings.Join(bad, ", "))
		}
		return nil
	})
}

// passwordRule enforces ≥8 characters with at least one letter and one digit.
var passwordRule = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	switch {
	case len(s) < MinPasswordLength:
		return fmt.Errorf("Password must be at least %d characters", MinPasswordLength)
	case len(s) > MaxPasswordLength:
		return fmt.Errorf("Password must be %d bytes or fewer", MaxPasswordLength)
	case !hasLetter.MatchString(s) || !hasDigit.MatchString(s):
		return errors.New("Password must contain at least one letter and one number")
	}
	return nil
})

var usernameRule = validation.Match(UsernamePattern).Error(ErrUsernameFormat.Error())

// fromOzzo flattens validation.Errors into apperror.ValidationErrors.
// Internal rule failures are returned unchanged.
func fromOzzo(err error) error {
	if err == nil {
		return nil
	}
	var ve validation.Errors
	if !errors.As(err, &ve) {
		return err
	}
	out := apperror.ValidationErrors{}
	for field, fe := range ve {
		if fe != nil {
			out[field] = fe.Error()
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ArticleFields are the user-editable parts of an article.
type ArticleFields struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

// Article checks title (required, ≤200), summary (≤500) and tag count (≤5).
func Article(a ArticleFields) error {
	return fromOzzo(validation.ValidateStruct(&a,
		validation.Field(&a.Title,
			notBlank("Title is required"),
			validation.RuneLength(0, MaxTitleLength).Error(fmt.Sprintf("Title must be %d characters or fewer", MaxTitleLength)),
		),
		validation.Field(&a.Summary,
			validation.RuneLength(0, MaxSummaryLength).Error(fmt.Sprintf("Summary must be %d characters or fewer", MaxSummaryLength)),
		),
		validation.Field(&a.Tags, maxTags(model.MaxArticleTags)),
	))
}

// SignupFields is the signup form.
type SignupFields struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// Signup checks email format, the password rule and a non-empty display name.
func Signup(f SignupFields) error {
	return fromOzzo(validation.ValidateStruct(&f,
		validation.Field(&f.Email,
			validation.Required.Error("Email is required"),
			is.Email.Error("Enter a valid email address"),
		),
		validation.Field(&f.Password, passwordRule),
		validation.Field(&f.DisplayName,
			notBlank("Display name is required"),
			validation.RuneLength(0, MaxDisplayNameLength).Error(fmt.Sprintf("Display name must be %d characters or fewer", MaxDisplayNameLength)),
		),
	))
}

// LoginFields is the login form. Only presence is checked; the password rule
// applies to new passwords, not to existing ones.
type LoginFields struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks that both fields are filled in and the email looks like one.
func Login(f LoginFields) error {
	return fromOzzo(validation.ValidateStruct(&f,
		validation.Field(&f.Email,
			validation.Required.Error("Email is required"),
			is.Email.Error("Enter a valid email address"),
		),
		validation.Field(&f.Password, validation.Required.Error("Password is required")),
	))
}

// Password applies the signup password rule alone.
func Password(p string) error {
	if err := passwordRule.Validate(p); err != nil {
		return apperror.ValidationErrors{"password": err.Error()}
	}
	return nil
}

// Username checks the public username format.
func Username(u string) error {
	if err := validation.Validate(u, validation.Required.Error("Username is required"), usernameRule); err != nil {
		return apperror.ValidationErrors{"username": err.Error()}
	}
	return nil
}

// Profile checks a PATCH /api/users/me body. Nil fields are skipped.
func Profile(u model.ProfileUpdate) error {
	errs := apperror.ValidationErrors{}
	check := func(field string, p *string, limit int, label string) {
		if p == nil {
			return
		}
		if utf8.RuneCountInString(strings.TrimSpace(*p)) > limit {
			errs[field] = fmt.Sprintf("%s must be %d characters or fewer", label, limit)
		}
	}
	check("displayName", u.DisplayName, MaxDisplayNameLength, "Display name")
	check("bio", u.Bio, MaxBioLength, "Bio")
	check("company", u.Company, MaxCompanyLength, "Company")
	check("location", u.Location, MaxLocationLength, "Location")

	if u.Username != nil {
		if err := Username(*u.Username); err != nil {
			errs["username"] = err.(apperror.ValidationErrors)["username"]
		}
	}
	if u.ExpertiseTags != nil {
		err := validation.Validate(*u.ExpertiseTags, maxTags(model.MaxExpertiseTags), taxonomyOnly())
		if err != nil {
			errs["expertiseTags"] = err.Error()
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// SpaceFields is the create-space form.
type SpaceFields struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Tags        []string         `json:"tags"`
	Visibility  model.Visibility `json:"visibility"`
}

// Space checks name (1-100), description (≤500), tags (≤5) and visibility.
func Space(s SpaceFields) error {
	return fromOzzo(validation.ValidateStruct(&s,
		validation.Field(&s.Name,
			notBlank("Name is required"),
			validation.RuneLength(0, MaxSpaceNameLength).Error(fmt.Sprintf("Name must be %d characters or fewer", MaxSpaceNameLength)),
		),
		validation.Field(&s.Description,
			validation.RuneLength(0, MaxSpaceDescLength).Error(fmt.Sprintf("Description must be %d characters or fewer", MaxSpaceDescLength)),
		),
		validation.Field(&s.Tags, maxTags(model.MaxArticleTags)),
		validation.Field(&s.Visibility,
			validation.In(model.VisibilityPublic, model.VisibilityPrivate).Error("Visibility must be public or private"),
		),
	))
}

// ToggleTag returns the selection with tag flipped.
//
// A selected tag is removed. An absent tag is appended only while fewer than
// limit tags are selected; at the limit the selection is returned unchanged.
// The input slice is never modified.
func ToggleTag(selected []string, tag string, limit int) []string {
	out := make([]string, 0, len(selected)+1)
	removed := false
	for _, t := range selected {
		if t == tag {
			removed = true
			continue
		}
		out = append(out, t)
	}
	if removed {
		return out
	}
	if len(selected) >= limit {
		return out
	}
	return append(out, tag)
}
