package service

import (
	"context"
	"errors"

	"github.com/sayaka/teamboard/internal/domain"
)

// OrgStore defines the organization data access interface consumed by the
// org service and, for membership checks, by every org-scoped service.
type OrgStore interface {
	Create(ctx context.Context, org domain.Organization) (*domain.Organization, error)
	FindByID(ctx context.Context, id int64) (*domain.Organization, error)
	ListForUser(ctx context.Context, userID int64) ([]domain.Organization, error)
	FindMembership(ctx context.Context, orgID, userID int64) (*domain.Membership, error)
	AddMember(ctx context.Context, m domain.Membership) (*domain.Membership, error)
	MemberIDs(ctx context.Context, orgID int64) ([]int64, error)
}

// MembershipSource is the subset of OrgStore other services need for
// authorization and fan-out.
type MembershipSource interface {
	FindMembership(ctx context.Context, orgID, userID int64) (*domain.Membership, error)
	MemberIDs(ctx context.Context, orgID int64) ([]int64, error)
}

// Dispatcher is the notification entry point consumed by the business
// services. NotificationService implements it.
type Dispatcher interface {
	Create(ctx context.Context, recipientID, orgID int64, in CreateInput, sendNow bool) (*domain.Notification, error)
	CreateBulk(ctx context.Context, recipientIDs []int64, orgID int64, in CreateInput, sendNow bool) ([]int64, error)
}

// requireMember resolves the actor's membership or returns ErrForbidden.
func requireMember(ctx context.Context, members MembershipSource, orgID, userID int64) (*domain.Membership, error) {
	m, err := members.FindMembership(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, err
	}
	return m, nil
}

// othersOf filters the actor out of a recipient list.
func othersOf(ids []int64, actorID int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != actorID {
			out = append(out, id)
		}
	}
	return out
}

// OrgService handles organizations and memberships.
type OrgService struct {
	store    OrgStore
	notifier Dispatcher
	audit    *AuditRecorder
}

// NewOrgService creates a new OrgService.
func NewOrgService(store OrgStore, notifier Dispatcher, audit *AuditRecorder) *OrgService {
	return &OrgService{store: store, notifier: notifier, audit: audit}
}

// Create creates an organization owned by the actor.
func (s *OrgService) Create(ctx context.Context, actorID int64, name string) (*domain.Organization, error) {
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Message: "is required"}
	}

	org, err := s.store.Create(ctx, domain.Organization{Name: name, OwnerID: actorID})
	if err != nil {
		return nil, err
	}

	s.audit.Record(org.ID, actorID, "organization.created", "organization", org.ID, nil)
	return org, nil
}

// Get returns an organization the actor is a member of.
func (s *OrgService) Get(ctx context.Context, orgID, actorID int64) (*domain.Organization, error) {
	if _, err := requireMember(ctx, s.store, orgID, actorID); err != nil {
		return nil, err
	}
	return s.store.FindByID(ctx, orgID)
}

// ListMine lists the organizations the actor belongs to.
func (s *OrgService) ListMine(ctx context.Context, actorID int64) ([]domain.Organization, error) {
	return s.store.ListForUser(ctx, actorID)
}

// AddMember adds a user to the organization and notifies them. Only owners
// and admins may add members.
func (s *OrgService) AddMember(ctx context.Context, orgID, actorID, userID int64, role domain.MemberRole) (*domain.Membership, error) {
	actor, err := requireMember(ctx, s.store, orgID, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.CanManage() {
		return nil, domain.ErrForbidden
	}
	if role == "" {
		role = domain.RoleMember
	}
	if role == domain.RoleOwner {
		return nil, &domain.ValidationError{Field: "role", Message: "ownership is not assignable"}
	}

	m, err := s.store.AddMember(ctx, domain.Membership{OrgID: orgID, UserID: userID, Role: role})
	if err != nil {
		return nil, err
	}

	org, err := s.store.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if _, err := s.notifier.Create(ctx, userID, orgID, CreateInput{
		Type:     domain.TypeMemberAdded,
		Category: domain.CategorySystem,
		Priority: domain.PriorityMedium,
		Title:    "You were added to " + org.Name,
		Message:  "You are now a member of the organization " + org.Name + ".",
		Payload:  domain.JSONMap{"org_id": orgID, "role": string(role)},
	}, true); err != nil {
		return nil, err
	}

	s.audit.Record(orgID, actorID, "organization.member_added", "user", userID,
		domain.JSONMap{"role": string(role)})
	return m, nil
}
