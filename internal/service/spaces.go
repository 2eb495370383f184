package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/repository"
	"github.com/sakif/aic-hub/internal/validate"
)

const (
	msgSpaceNotFound    = "Space not found"
	msgPrivateSpace     = "Access denied to private space"
	msgCannotLeave      = "Cannot leave space - either not a member or you are the owner"
	msgCannotSetRole    = "Cannot update member role"
	msgRoleManagement   = "Only owner or moderator can update member roles"
	msgMySpacesNeedsID  = "Authentication required for my_spaces"
	msgShareNeedsMember = "Only members can share articles"
	msgShareUnpublished = "Only published articles can be shared"
	msgPinManagement    = "Only owner or moderator can pin articles"
	msgRemoveArticle    = "Only the member who shared it, the owner or a moderator can remove this article"
)

// SpaceService implements spaces and their memberships.
//
// MEMBERSHIP RULES:
//   - the creator becomes the owner and first member
//   - anyone may join a public space; joining twice is a 409
//   - members may leave, the owner may not
//   - owners and moderators may switch other members between moderator
//     and member; the owner's role never changes
//   - private spaces are visible to members only
//
// SHARED ARTICLES:
//   - any member may share a published article once
//   - owners and moderators pin and unpin
//   - the sharer, the owner or a moderator may remove a shared article
type SpaceService struct {
	spaces   repository.SpaceRepository
	articles repository.ArticleRepository
	logger   *slog.Logger
}

// NewSpaceService creates a SpaceService.
func NewSpaceService(spaces repository.SpaceRepository, articles repository.ArticleRepository, logger *slog.Logger) *SpaceService {
	return &SpaceService{spaces: spaces, articles: articles, logger: logger}
}

// List returns visible spaces matching q. MySpaces requires a viewer.
func (s *SpaceService) List(ctx context.Context, viewerID string, q model.SpaceQuery) (*model.SpaceList, error) {
	if q.MySpaces && viewerID == "" {
		return nil, apperror.Unauthorized(msgMySpacesNeedsID)
	}
	skip, limit := clampPage(q.Skip, q.Limit)
	filter := repository.SpaceFilter{
		Tags:        q.Tags,
		Search:      q.Search,
		ViewerID:    viewerID,
		ListOptions: repository.ListOptions{Skip: skip, Limit: limit},
	}
	if q.MySpaces {
		filter.MemberID = viewerID
	}

	spaces, total, err := s.spaces.ListSpaces(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service/spaces: listing: %w", err)
	}
	out := &model.SpaceList{Spaces: []model.SpaceSummary{}, Total: total, Skip: skip, Limit: limit}
	for _, sp := range spaces {
		out.Spaces = append(out.Spaces, sp.SpaceSummary)
	}
	return out, nil
}

// Get resolves key as a slug first and then as an id.
func (s *SpaceService) Get(ctx context.Context, viewerID, key string) (*model.Space, error) {
	sp, err := s.spaces.GetSpaceBySlug(ctx, key, viewerID)
	if errors.Is(err, apperror.ErrNotFound) {
		sp, err = s.spaces.GetSpace(ctx, key, viewerID)
	}
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage(msgSpaceNotFound)
		}
		return nil, fmt.Errorf("service/spaces: %w", err)
	}
	if sp.Visibility == model.VisibilityPrivate && !sp.IsMember {
		return nil, apperror.Forbidden(msgPrivateSpace)
	}
	return sp, nil
}

// Create makes a new space owned by userID.
func (s *SpaceService) Create(ctx context.Context, userID string, in model.SpaceInput) (*model.Space, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Visibility == "" {
		in.Visibility = model.VisibilityPublic
	}
	if err := validate.Space(validate.SpaceFields{
		Name:        in.Name,
		Description: in.Description,
		Tags:        in.Tags,
		Visibility:  in.Visibility,
	}); err != nil {
		return nil, invalid(err)
	}
	tags, err := canonicalTags("tags", in.Tags)
	if err != nil {
		return nil, err
	}

	slug, err := uniqueSlug(ctx, Slugify(in.Name), s.spaces.SpaceSlugExists)
	if err != nil {
		return nil, fmt.Errorf("service/spaces: generating slug: %w", err)
	}

	sp := &model.Space{
		SpaceSummary: model.SpaceSummary{
			Name:        in.Name,
			Slug:        slug,
			Description: in.Description,
			Tags:        tags,
			Visibility:  in.Visibility,
		},
		OwnerID: userID,
	}
	if err := s.spaces.CreateSpace(ctx, sp); err != nil {
		return nil, fmt.Errorf("service/spaces: creating: %w", err)
	}
	s.logger.Info("space created", slog.String("spaceID", sp.ID), slog.String("slug", sp.Slug))
	return s.spaces.GetSpace(ctx, sp.ID, userID)
}

// Join adds userID to a space as a member.
func (s *SpaceService) Join(ctx context.Context, userID, spaceID string) (*model.JoinResult, error) {
	sp, err := s.byID(ctx, spaceID, userID)
	if err != nil {
		return nil, err
	}
	if sp.IsMember && sp.MemberRole != nil {
		return nil, apperror.ConflictMessage(fmt.Sprintf("Already a member with role: %s", *sp.MemberRole))
	}
	if sp.Visibility == model.VisibilityPrivate {
		return nil, apperror.Forbidden(msgPrivateSpace)
	}

	m, err := s.spaces.AddMember(ctx, spaceID, userID, model.RoleMember)
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ConflictMessage(fmt.Sprintf("Already a member with role: %s", model.RoleMember))
		}
		return nil, fmt.Errorf("service/spaces: joining %s: %w", spaceID, err)
	}
	s.logger.Info("space joined", slog.String("spaceID", spaceID), slog.String("userID", userID))
	joined := m.JoinedAt
	return &model.JoinResult{Success: true, Role: m.Role, JoinedAt: &joined}, nil
}

// Leave removes userID from a space. Owners and non-members get a 400.
func (s *SpaceService) Leave(ctx context.Context, userID, spaceID string) error {
	sp, err := s.byID(ctx, spaceID, userID)
	if err != nil {
		return err
	}
	if !sp.IsMember || sp.OwnerID == userID {
		return apperror.ValidationFailed("", msgCannotLeave)
	}
	if err := s.spaces.RemoveMember(ctx, spaceID, userID); err != nil {
		return fmt.Errorf("service/spaces: leaving %s: %w", spaceID, err)
	}
	s.logger.Info("space left", slog.String("spaceID", spaceID), slog.String("userID", userID))
	return nil
}

// Members lists a space's members, optionally only one role.
func (s *SpaceService) Members(ctx context.Context, viewerID, spaceID string, role model.Role, skip, limit int) (*model.MemberList, error) {
	sp, err := s.byID(ctx, spaceID, viewerID)
	if err != nil {
		return nil, err
	}
	if sp.Visibility == model.VisibilityPrivate && !sp.IsMember {
		return nil, apperror.Forbidden(msgPrivateSpace)
	}
	switch role {
	case "", model.RoleOwner, model.RoleModerator, model.RoleMember:
	default:
		return nil, apperror.ValidationFailed("role", "Invalid role")
	}

	skip, limit = clampPage(skip, limit)
	members, total, err := s.spaces.ListMembers(ctx, spaceID, role, repository.ListOptions{Skip: skip, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("service/spaces: listing members of %s: %w", spaceID, err)
	}
	return &model.MemberList{Members: members, Total: total, Skip: skip, Limit: limit}, nil
}

// Member returns one membership. Private spaces answer 403 to outsiders.
func (s *SpaceService) Member(ctx context.Context, viewerID, spaceID, userID string) (*model.SpaceMember, error) {
	sp, err := s.byID(ctx, spaceID, viewerID)
	if err != nil {
		return nil, err
	}
	if sp.Visibility == model.VisibilityPrivate && !sp.IsMember {
		return nil, apperror.Forbidden(msgPrivateSpace)
	}
	m, err := s.spaces.GetMembership(ctx, spaceID, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("Member not found")
		}
		return nil, fmt.Errorf("service/spaces: %w", err)
	}
	return m, nil
}

// UpdateMemberRole lets an owner or moderator change another member's role.
func (s *SpaceService) UpdateMemberRole(ctx context.Context, actorID, spaceID, targetID string, role model.Role) (*model.RoleUpdate, error) {
	sp, err := s.byID(ctx, spaceID, actorID)
	if err != nil {
		return nil, err
	}
	if sp.MemberRole == nil || !sp.MemberRole.CanManageMembers() {
		return nil, apperror.Forbidden(msgRoleManagement)
	}
	if role != model.RoleModerator && role != model.RoleMember {
		return nil, apperror.ValidationFailed("role", "Invalid role")
	}

	target, err := s.spaces.GetMembership(ctx, spaceID, targetID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ValidationFailed("userId", msgCannotSetRole)
		}
		return nil, fmt.Errorf("service/spaces: %w", err)
	}
	if target.Role == model.RoleOwner {
		return nil, apperror.ValidationFailed("userId", msgCannotSetRole)
	}

	if err := s.spaces.UpdateMemberRole(ctx, spaceID, targetID, role); err != nil {
		return nil, fmt.Errorf("service/spaces: updating role in %s: %w", spaceID, err)
	}
	s.logger.Info("member role changed",
		slog.String("spaceID", spaceID),
		slog.String("userID", targetID),
		slog.String("role", string(role)),
	)
	return &model.RoleUpdate{Role: role}, nil
}

// ShareArticle adds a published article to a space the caller belongs to.
func (s *SpaceService) ShareArticle(ctx context.Context, userID, spaceID, articleID string) (*model.SpaceArticle, error) {
	if strings.TrimSpace(articleID) == "" {
		return nil, apperror.ValidationFailed("articleId", "articleId is required")
	}
	sp, err := s.byID(ctx, spaceID, userID)
	if err != nil {
		return nil, err
	}
	if !sp.IsMember {
		return nil, apperror.Forbidden(msgShareNeedsMember)
	}
	a, err := s.articles.GetArticle(ctx, articleID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("Article not found")
		}
		return nil, fmt.Errorf("service/spaces: %w", err)
	}
	if !a.IsPublished() {
		return nil, apperror.ValidationFailed("articleId", msgShareUnpublished)
	}

	sa, err := s.spaces.AddSpaceArticle(ctx, spaceID, articleID, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/spaces: sharing %s to %s: %w", articleID, spaceID, err)
	}
	s.logger.Info("article shared",
		slog.String("spaceID", spaceID),
		slog.String("articleID", articleID),
		slog.String("userID", userID),
	)
	return sa, nil
}

// Articles lists the published articles shared to a space.
func (s *SpaceService) Articles(ctx context.Context, viewerID, spaceID string, pinnedFirst bool, skip, limit int) (*model.SpaceArticleList, error) {
	sp, err := s.byID(ctx, spaceID, viewerID)
	if err != nil {
		return nil, err
	}
	if sp.Visibility == model.VisibilityPrivate && !sp.IsMember {
		return nil, apperror.Forbidden(msgPrivateSpace)
	}
	skip, limit = clampPage(skip, limit)
	items, total, err := s.spaces.ListSpaceArticles(ctx, spaceID, pinnedFirst, repository.ListOptions{Skip: skip, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("service/spaces: listing articles of %s: %w", spaceID, err)
	}
	return &model.SpaceArticleList{Articles: items, Total: total, Skip: skip, Limit: limit}, nil
}

// SetPinned pins or unpins a shared article. Owners and moderators only.
func (s *SpaceService) SetPinned(ctx context.Context, actorID, spaceID, articleID string, pinned bool) (*model.PinUpdate, error) {
	sp, err := s.byID(ctx, spaceID, actorID)
	if err != nil {
		return nil, err
	}
	if sp.MemberRole == nil || !sp.MemberRole.CanManageMembers() {
		return nil, apperror.Forbidden(msgPinManagement)
	}
	if err := s.spaces.SetSpaceArticlePinned(ctx, spaceID, articleID, pinned); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/spaces: pinning %s in %s: %w", articleID, spaceID, err)
	}
	return &model.PinUpdate{Pinned: pinned}, nil
}

// RemoveArticle takes a shared article out of a space.
func (s *SpaceService) RemoveArticle(ctx context.Context, actorID, spaceID, articleID string) error {
	sp, err := s.byID(ctx, spaceID, actorID)
	if err != nil {
		return err
	}
	sa, err := s.spaces.GetSpaceArticle(ctx, spaceID, articleID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/spaces: %w", err)
	}
	manager := sp.MemberRole != nil && sp.MemberRole.CanManageMembers()
	if !manager && sa.AddedBy.ID != actorID {
		return apperror.Forbidden(msgRemoveArticle)
	}
	if err := s.spaces.RemoveSpaceArticle(ctx, spaceID, articleID); err != nil {
		return fmt.Errorf("service/spaces: removing %s from %s: %w", articleID, spaceID, err)
	}
	s.logger.Info("article removed from space", slog.String("spaceID", spaceID), slog.String("articleID", articleID))
	return nil
}

func (s *SpaceService) byID(ctx context.Context, spaceID, viewerID string) (*model.Space, error) {
	sp, err := s.spaces.GetSpace(ctx, spaceID, viewerID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage(msgSpaceNotFound)
		}
		return nil, fmt.Errorf("service/spaces: %w", err)
	}
	return sp, nil
}
