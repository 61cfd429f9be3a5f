package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const principalKey = "auth_principal"

// PrincipalResolver turns a bearer token into the acting user.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, token string) (*domain.User, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. It returns "" when the header is missing or malformed.
func BearerToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// ResolveRequest resolves the caller of the current request. The result is
// cached in the request locals, so a handler may call it more than once.
func ResolveRequest(c *fiber.Ctx, resolver PrincipalResolver) (*domain.User, error) {
	if principal, ok := PrincipalFromContext(c); ok {
		return principal, nil
	}
	principal, err := resolver.ResolvePrincipal(c.UserContext(), BearerToken(c))
	if err != nil {
		return nil, err
	}
	c.Locals(principalKey, principal)
	return principal, nil
}

// PrincipalFromContext retrieves a principal resolved earlier in the request.
func PrincipalFromContext(c *fiber.Ctx) (*domain.User, bool) {
	principal, ok := c.Locals(principalKey).(*domain.User)
	return principal, ok && principal != nil
}
