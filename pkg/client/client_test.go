package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/app"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/pkg/client"
)

func newServer(t *testing.T) string {
	t.Helper()
	a, err := app.New(context.Background(), &config.Config{
		App: config.AppConfig{Name: "helpdesk-test", Version: "test"},
		Storage: config.StorageConfig{
			Backend:        config.BackendMemory,
			SessionBackend: config.BackendMemory,
		},
		Auth: config.AuthConfig{
			JWTSecret:              "test-secret",
			SessionTTL:             time.Hour,
			BcryptCost:             bcrypt.MinCost,
			BootstrapAdminUsername: "admin",
			BootstrapAdminPassword: "admin-password",
		},
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	srv := httptest.NewServer(adaptor.FiberApp(a.HTTP))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestClient_EndToEnd(t *testing.T) {
	ctx := context.Background()
	baseURL := newServer(t)

	alice := client.New(client.Config{BaseURL: baseURL})
	registered, err := alice.Register(ctx, "alice", "password-alice")
	require.NoError(t, err)
	assert.Equal(t, "user", registered.Role)

	_, err = alice.Register(ctx, "alice", "again")
	assert.True(t, client.IsCode(err, client.CodeConflict), "got %v", err)

	_, session, err := alice.Login(ctx, "alice", "password-alice")
	require.NoError(t, err)
	assert.Equal(t, session.Token, alice.Token())
	assert.True(t, session.ExpiresAt.After(time.Now()))

	me, err := alice.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, me.ID)

	ticket, err := alice.CreateTicket(ctx, client.TicketInput{Title: "Laptop", Description: "Will not boot"})
	require.NoError(t, err)
	assert.Equal(t, "open", ticket.Status)

	updated, err := alice.UpdateTicket(ctx, ticket.ID, client.TicketUpdate{
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      "closed",
	})
	require.NoError(t, err)
	assert.Equal(t, "closed", updated.Status)

	open, err := alice.ListTickets(ctx, "open")
	require.NoError(t, err)
	assert.Empty(t, open)

	closed, err := alice.ListTickets(ctx, "closed")
	require.NoError(t, err)
	assert.Len(t, closed, 1)

	_, err = alice.ListUsers(ctx)
	assert.True(t, client.IsCode(err, client.CodeForbidden))

	admin := client.New(client.Config{BaseURL: baseURL})
	_, _, err = admin.Login(ctx, "admin", "admin-password")
	require.NoError(t, err)

	users, err := admin.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	promoted, err := admin.SetRole(ctx, registered.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", promoted.Role)

	require.NoError(t, admin.DeleteTicket(ctx, ticket.ID))
	_, err = alice.GetTicket(ctx, ticket.ID)
	assert.True(t, client.IsCode(err, client.CodeNotFound))

	require.NoError(t, alice.Logout(ctx))
	assert.Empty(t, alice.Token())
	_, err = alice.Me(ctx)
	assert.True(t, client.IsCode(err, client.CodeUnauthenticated))
}

func TestClient_InvalidCredentials(t *testing.T) {
	c := client.New(client.Config{BaseURL: newServer(t)})

	_, _, err := c.Login(context.Background(), "nobody", "nope")
	require.Error(t, err)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, client.CodeInvalidCredentials, apiErr.Code)
	assert.Empty(t, c.Token())
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := client.New(client.Config{BaseURL: srv.URL}).Me(context.Background())
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Empty(t, apiErr.Code)
	assert.Equal(t, "upstream down", apiErr.Message)
}
