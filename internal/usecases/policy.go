package usecases

import (
	"errors"

	"conexbot/internal/entities"
)

var (
	ErrSelfDemotion = errors.New("you cannot remove your own administrator access")
	ErrSelfDeletion = errors.New("you cannot delete your own account")
	ErrInvalidRole  = errors.New("invalid role")
	ErrForbidden    = errors.New("insufficient permissions")
)

type ChangeKind int

const (
	ChangeProfile ChangeKind = iota
	ChangeRole
	ChangeDelete
)

// UserChange is a requested mutation of an account, as judged by
// AuthorizeUserChange.
type UserChange struct {
	Kind ChangeKind
	Role string // target role for ChangeRole
}

func RoleChange(role string) UserChange { return UserChange{Kind: ChangeRole, Role: role} }

func DeleteChange() UserChange { return UserChange{Kind: ChangeDelete} }

// AuthorizeUserChange is the single decision point for account mutations made
// through the admin API. The acting admin may never demote or delete
// themselves.
func AuthorizeUserChange(actor entities.Identity, targetID int, change UserChange) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	self := actor.ID == targetID

	switch change.Kind {
	case ChangeRole:
		if !entities.ValidRole(change.Role) {
			return ErrInvalidRole
		}
		if self && change.Role != entities.RoleAdmin {
			return ErrSelfDemotion
		}
	case ChangeDelete:
		if self {
			return ErrSelfDeletion
		}
	}
	return nil
}
