package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		role      domain.Role
		principal string
		owner     string
		action    Action
		want      Decision
	}{
		{"admin reads foreign ticket", domain.RoleAdmin, "a", "u", ActionTicketRead, Allow},
		{"admin deletes foreign ticket", domain.RoleAdmin, "a", "u", ActionTicketDelete, Allow},
		{"admin lists all tickets", domain.RoleAdmin, "a", "", ActionTicketListAll, Allow},
		{"admin lists users", domain.RoleAdmin, "a", "", ActionUserList, Allow},
		{"admin sets roles", domain.RoleAdmin, "a", "", ActionUserSetRole, Allow},
		{"author reads own ticket", domain.RoleUser, "u", "u", ActionTicketRead, Allow},
		{"author updates own ticket", domain.RoleUser, "u", "u", ActionTicketUpdate, Allow},
		{"author deletes own ticket", domain.RoleUser, "u", "u", ActionTicketDelete, Allow},
		{"user reads foreign ticket", domain.RoleUser, "u", "other", ActionTicketRead, Deny},
		{"user updates foreign ticket", domain.RoleUser, "u", "other", ActionTicketUpdate, Deny},
		{"user deletes foreign ticket", domain.RoleUser, "u", "other", ActionTicketDelete, Deny},
		{"user creates ticket", domain.RoleUser, "u", "", ActionTicketCreate, Allow},
		{"user lists all tickets", domain.RoleUser, "u", "", ActionTicketListAll, Deny},
		{"user lists users", domain.RoleUser, "u", "", ActionUserList, Deny},
		{"user sets roles", domain.RoleUser, "u", "", ActionUserSetRole, Deny},
		{"empty principal never owns", domain.RoleUser, "", "", ActionTicketRead, Deny},
		{"empty principal cannot create", domain.RoleUser, "", "", ActionTicketCreate, Deny},
		{"unknown role", domain.Role("guest"), "u", "u", ActionUserList, Deny},
		{"unknown action", domain.RoleUser, "u", "u", Action("ticket:archive"), Deny},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.role, tt.principal, tt.owner, tt.action))
		})
	}
}

func TestAuthorize(t *testing.T) {
	admin := &domain.User{ID: "a", Role: domain.RoleAdmin}
	user := &domain.User{ID: "u", Role: domain.RoleUser}

	assert.NoError(t, Authorize(admin, "u", ActionTicketDelete))
	assert.NoError(t, Authorize(user, "u", ActionTicketUpdate))

	err := Authorize(user, "", ActionUserSetRole)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "user:set_role", domainErr.Details["action"])

	err = Authorize(nil, "u", ActionTicketRead)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthenticated))
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "deny", Deny.String())
}

func TestFingerprint(t *testing.T) {
	assert.Empty(t, Fingerprint(""))

	fp := Fingerprint("token-value")
	assert.Len(t, fp, 16)
	assert.Equal(t, fp, Fingerprint("token-value"))
	assert.NotEqual(t, fp, Fingerprint("token-valuf"))
	assert.NotContains(t, fp, "token")
}
