package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/repository"
)

func createTestSpace(t *testing.T, db *DB, owner *model.User, name string, visibility model.Visibility) *model.Space {
	t.Helper()
	sp := &model.Space{
		SpaceSummary: model.SpaceSummary{
			Name:       name,
			Slug:       slugFor(name),
			Tags:       []string{"Agents"},
			Visibility: visibility,
		},
		OwnerID: owner.ID,
	}
	if err := db.CreateSpace(context.Background(), sp); err != nil {
		t.Fatalf("failed to create test space: %v", err)
	}
	return sp
}

func TestCreateSpace_OwnerIsMember(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner")
	sp := createTestSpace(t, db, owner, "Agent Builders", model.VisibilityPublic)

	got, err := db.GetSpaceBySlug(context.Background(), "agent-builders", owner.ID)
	if err != nil {
		t.Fatalf("GetSpaceBySlug() error = %v", err)
	}
	if got.ID != sp.ID || got.MemberCount != 1 {
		t.Errorf("got %+v, want id %s with one member", got.SpaceSummary, sp.ID)
	}
	if !got.IsMember || got.MemberRole == nil || *got.MemberRole != model.RoleOwner {
		t.Errorf("owner membership not reported: %v %v", got.IsMember, got.MemberRole)
	}

	anon, _ := db.GetSpace(context.Background(), sp.ID, "")
	if anon.IsMember || anon.MemberRole != nil {
		t.Error("anonymous viewer should not be a member")
	}
}

func TestMembership_JoinLeave(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner")
	joiner := createTestUser(t, db, "joiner")
	sp := createTestSpace(t, db, owner, "Joinable", model.VisibilityPublic)

	m, err := db.AddMember(ctx, sp.ID, joiner.ID, model.RoleMember)
	if err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	if m.Role != model.RoleMember || m.User.Username != "joiner" {
		t.Errorf("membership = %+v", m)
	}
	if _, err := db.AddMember(ctx, sp.ID, joiner.ID, model.RoleMember); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("second AddMember() error = %v, want ErrConflict", err)
	}

	got, _ := db.GetSpace(ctx, sp.ID, joiner.ID)
	if got.MemberCount != 2 || !got.IsMember {
		t.Errorf("after join: count %d, member %v", got.MemberCount, got.IsMember)
	}
	if n, _ := db.CountMembersSince(ctx, sp.ID, time.Now().Add(-time.Minute)); n != 2 {
		t.Errorf("CountMembersSince() = %d, want 2", n)
	}

	if err := db.RemoveMember(ctx, sp.ID, joiner.ID); err != nil {
		t.Fatalf("RemoveMember() error = %v", err)
	}
	if _, err := db.GetMembership(ctx, sp.ID, joiner.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetMembership() after leave error = %v, want ErrNotFound", err)
	}
	got, _ = db.GetSpace(ctx, sp.ID, "")
	if got.MemberCount != 1 {
		t.Errorf("after leave: count %d, want 1", got.MemberCount)
	}
}

func TestListMembers_RoleFilterAndOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner")
	sp := createTestSpace(t, db, owner, "Roles", model.VisibilityPublic)
	for _, name := range []string{"m1", "m2", "m3"} {
		u := createTestUser(t, db, name)
		if _, err := db.AddMember(ctx, sp.ID, u.ID, model.RoleMember); err != nil {
			t.Fatalf("AddMember() error = %v", err)
		}
	}
	m3, _ := db.GetUserByUsername(ctx, "m3")
	if err := db.UpdateMemberRole(ctx, sp.ID, m3.ID, model.RoleModerator); err != nil {
		t.Fatalf("UpdateMemberRole() error = %v", err)
	}

	all, total, err := db.ListMembers(ctx, sp.ID, "", repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListMembers() error = %v", err)
	}
	if total != 4 || all[0].Role != model.RoleOwner || all[1].Role != model.RoleModerator {
		t.Errorf("total %d, order %v %v", total, all[0].Role, all[1].Role)
	}

	members, total, _ := db.ListMembers(ctx, sp.ID, model.RoleMember, repository.ListOptions{Limit: 1})
	if total != 2 || len(members) != 1 {
		t.Errorf("role filter: total %d, len %d; want 2, 1", total, len(members))
	}
}

func TestListSpaces_VisibilityAndFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	createTestSpace(t, db, alice, "Public Agents", model.VisibilityPublic)
	createTestSpace(t, db, alice, "Secret Lab", model.VisibilityPrivate)
	createTestSpace(t, db, bob, "Bob Public", model.VisibilityPublic)

	tests := []struct {
		name   string
		filter repository.SpaceFilter
		want   int
	}{
		{"anonymous sees public", repository.SpaceFilter{}, 2},
		{"member sees private", repository.SpaceFilter{ViewerID: alice.ID}, 3},
		{"my spaces", repository.SpaceFilter{ViewerID: bob.ID, MemberID: bob.ID}, 1},
		{"search", repository.SpaceFilter{Search: "agents"}, 1},
		{"tags", repository.SpaceFilter{Tags: []string{"Agents"}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := db.ListSpaces(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListSpaces() error = %v", err)
			}
			if total != tt.want || len(got) != tt.want {
				t.Errorf("got %d, total %d; want %d", len(got), total, tt.want)
			}
		})
	}
}

func TestActivities(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "viewer")

	for _, uid := range []string{user.ID, ""} {
		a := &repository.Activity{UserID: uid, Type: model.InteractionView, TargetType: "article", TargetID: "a1"}
		if err := db.RecordActivity(ctx, a); err != nil {
			t.Fatalf("RecordActivity() error = %v", err)
		}
	}
	n, err := db.CountActivities(ctx, "article", "a1", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("CountActivities() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CountActivities() = %d, want 2", n)
	}
}
