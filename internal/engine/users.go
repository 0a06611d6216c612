package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/domain"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/events"
)

// ForbiddenError is returned when the caller's role does not allow a
// privileged operation.
type ForbiddenError struct {
	Need string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("role %s required", e.Need)
}

// ErrProtectedUser guards the owner account from deletion.
var ErrProtectedUser = errors.New("the owner account cannot be deleted")

func (e Engine) ceoRole() string {
	if e.Config != nil && e.Config.Auth.CEORole != "" {
		return e.Config.Auth.CEORole
	}
	return "ceo"
}

// requireCEO loads the acting user and checks the privileged role.
func (e Engine) requireCEO(ctx context.Context, actorID string) (domain.User, error) {
	actor, err := e.Repo.GetUser(ctx, actorID)
	if err != nil {
		return domain.User{}, err
	}
	if actor.Role != e.ceoRole() {
		return domain.User{}, ForbiddenError{Need: e.ceoRole()}
	}
	return actor, nil
}

// UserCreateOptions are parameters for creating a user account.
type UserCreateOptions struct {
	ID      string
	Email   string
	Name    string
	Role    string
	GroupID string
	ActorID string
}

// CreateUser provisions an account, optionally adding it to a group.
// Only the privileged role may call it.
func (e Engine) CreateUser(ctx context.Context, opts UserCreateOptions) (domain.User, error) {
	if _, err := e.requireCEO(ctx, opts.ActorID); err != nil {
		return domain.User{}, err
	}
	if opts.Email == "" {
		return domain.User{}, errors.New("email is required")
	}
	if opts.Role == "" {
		return domain.User{}, errors.New("role is required")
	}
	if _, err := e.Repo.GetUserByEmail(ctx, opts.Email); err == nil {
		return domain.User{}, fmt.Errorf("user %s already exists", opts.Email)
	}
	if opts.GroupID != "" {
		if _, err := e.Repo.GetGroup(ctx, opts.GroupID); err != nil {
			return domain.User{}, err
		}
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	u := domain.User{
		ID:        opts.ID,
		Email:     opts.Email,
		Name:      opts.Name,
		Role:      opts.Role,
		CreatedAt: e.stamp(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertUser(ctx, tx, u); err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	if opts.GroupID != "" {
		if err := e.Repo.AddGroupMember(ctx, tx, opts.GroupID, u.ID); err != nil {
			return domain.User{}, err
		}
	}
	if err := e.audit().Append(ctx, tx, "user.create", "users", u.ID, opts.ActorID, events.EventPayload{"email": u.Email, "role": u.Role}); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	e.notify("users")
	return u, nil
}

// DeleteUser removes an account and its group memberships. The
// privileged account itself cannot be deleted.
func (e Engine) DeleteUser(ctx context.Context, userID, actorID string) error {
	if _, err := e.requireCEO(ctx, actorID); err != nil {
		return err
	}
	target, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if target.Role == e.ceoRole() {
		return ErrProtectedUser
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteUser(ctx, tx, userID); err != nil {
		return err
	}
	if err := e.audit().Append(ctx, tx, "user.delete", "users", userID, actorID, events.EventPayload{"email": target.Email}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.notify("users")
	return nil
}

func (e Engine) CreateGroup(ctx context.Context, name, actorID string) (domain.Group, error) {
	if _, err := e.requireCEO(ctx, actorID); err != nil {
		return domain.Group{}, err
	}
	if name == "" {
		return domain.Group{}, errors.New("name is required")
	}
	g := domain.Group{ID: uuid.NewString(), Name: name}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Group{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertGroup(ctx, tx, g); err != nil {
		return domain.Group{}, fmt.Errorf("insert group: %w", err)
	}
	if err := e.audit().Append(ctx, tx, "group.create", "groups", g.ID, actorID, events.EventPayload{"name": g.Name}); err != nil {
		return domain.Group{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Group{}, err
	}
	e.notify("groups")
	return g, nil
}

// DeleteGroup removes a group and, when deleteUsers is set, every
// member account too. One transaction covers the whole cascade so a
// failed member delete leaves the group intact. Members holding the
// privileged role survive the cascade.
func (e Engine) DeleteGroup(ctx context.Context, groupID string, deleteUsers bool, actorID string) error {
	if _, err := e.requireCEO(ctx, actorID); err != nil {
		return err
	}
	if _, err := e.Repo.GetGroup(ctx, groupID); err != nil {
		return err
	}
	members, err := e.Repo.ListGroupMembers(ctx, groupID)
	if err != nil {
		return err
	}
	var doomed []string
	if deleteUsers {
		for _, memberID := range members {
			member, err := e.Repo.GetUser(ctx, memberID)
			if err != nil {
				return err
			}
			if member.Role == e.ceoRole() {
				continue
			}
			doomed = append(doomed, memberID)
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, memberID := range doomed {
		if err := e.Repo.DeleteUser(ctx, tx, memberID); err != nil {
			return err
		}
	}
	if err := e.Repo.DeleteGroup(ctx, tx, groupID); err != nil {
		return err
	}
	if err := e.audit().Append(ctx, tx, "group.delete", "groups", groupID, actorID, events.EventPayload{"delete_users": deleteUsers, "members": len(members)}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.notify("groups")
	e.notify("users")
	return nil
}

// BootstrapUser creates the first account without a role gate. Refuses
// once any user exists.
func (e Engine) BootstrapUser(ctx context.Context, email, name, role string) (domain.User, error) {
	existing, err := e.Repo.ListUsers(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if len(existing) > 0 {
		return domain.User{}, errors.New("users already exist; use user create")
	}
	if email == "" {
		return domain.User{}, errors.New("email is required")
	}
	if role == "" {
		role = e.ceoRole()
	}
	u := domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: e.stamp(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertUser(ctx, tx, u); err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	if err := e.audit().Append(ctx, tx, "user.bootstrap", "users", u.ID, u.ID, events.EventPayload{"email": u.Email, "role": u.Role}); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	e.notify("users")
	return u, nil
}
