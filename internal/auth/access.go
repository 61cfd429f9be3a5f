package auth

import (
	"net/http"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Action names an operation subject to access control.
type Action string

const (
	ActionTicketCreate  Action = "ticket:create"
	ActionTicketRead    Action = "ticket:read"
	ActionTicketUpdate  Action = "ticket:update"
	ActionTicketDelete  Action = "ticket:delete"
	ActionTicketListAll Action = "ticket:list_all"
	ActionUserList      Action = "user:list"
	ActionUserSetRole   Action = "user:set_role"
)

// Decision is the outcome of an access check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

// String returns "allow" or "deny".
func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Decide evaluates the access rules in order; the first match wins:
//
//  1. admins may do anything;
//  2. a ticket's author may read, update or delete it;
//  3. any authenticated principal may create a ticket;
//  4. everything else is denied.
//
// ownerID is empty when the target has no owner.
func Decide(role domain.Role, principalID, ownerID string, action Action) Decision {
	if role == domain.RoleAdmin {
		return Allow
	}

	switch action {
	case ActionTicketRead, ActionTicketUpdate, ActionTicketDelete:
		if principalID != "" && principalID == ownerID {
			return Allow
		}
	case ActionTicketCreate:
		if principalID != "" {
			return Allow
		}
	}
	return Deny
}

// Authorize runs Decide for principal and converts a denial into a FORBIDDEN
// error. A nil principal is UNAUTHENTICATED.
func Authorize(principal *domain.User, ownerID string, action Action) error {
	if principal == nil || principal.ID == "" {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if Decide(principal.Role, principal.ID, ownerID, action) == Deny {
		return apperrors.NewDomainError(apperrors.CodeForbidden, "you do not have access", http.StatusForbidden,
			map[string]any{"action": string(action)})
	}
	return nil
}
