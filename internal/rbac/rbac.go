// Package rbac decides what a reader may do with a note given their relation
// to it.
package rbac

type Role string
type Action string

const (
	RoleOwner        Role = "owner"
	RoleCollaborator Role = "collaborator"
	RoleStranger     Role = "stranger"
)

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionCopy   Action = "copy"
	ActionDelete Action = "delete"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleOwner:
		return true
	case RoleCollaborator:
		return action == ActionRead
	default:
		return false
	}
}

// RoleFor derives a role from ownership and accepted collaboration.
func RoleFor(readerID, ownerID string, collaborator bool) Role {
	switch {
	case readerID != "" && readerID == ownerID:
		return RoleOwner
	case collaborator:
		return RoleCollaborator
	default:
		return RoleStranger
	}
}
