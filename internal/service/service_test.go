package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

func (d *recordingDispatcher) last() events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.events[len(d.events)-1]
}

type testEnv struct {
	users      repository.UserRepository
	tickets    repository.TicketRepository
	hasher     *auth.PasswordHasher
	dispatcher *recordingDispatcher
	auth       *AuthService
	ticketSvc  *TicketService
	userSvc    *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	users := repository.NewMemoryUserRepository()
	tickets := repository.NewMemoryTicketRepository()
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	dispatcher := &recordingDispatcher{}

	sessions := auth.NewSessionAuthority(auth.SessionDependencies{
		Sessions: repository.NewMemorySessionRepository(),
		Tokens:   auth.NewTokenManager("test-secret", nil),
	}, time.Hour)

	return &testEnv{
		users:      users,
		tickets:    tickets,
		hasher:     hasher,
		dispatcher: dispatcher,
		auth: NewAuthService(AuthDependencies{
			UserRepo:   users,
			Hasher:     hasher,
			Sessions:   sessions,
			Dispatcher: dispatcher,
		}),
		ticketSvc: NewTicketService(TicketDependencies{TicketRepo: tickets, Dispatcher: dispatcher}),
		userSvc:   NewUserService(UserDependencies{UserRepo: users, Dispatcher: dispatcher}),
	}
}

// register creates a user through the public operation and returns it.
func (e *testEnv) register(t *testing.T, username string) *domain.User {
	t.Helper()
	user, err := e.auth.Register(context.Background(), username, "password-"+username)
	require.NoError(t, err)
	return user
}

// admin creates an administrator via Bootstrap.
func (e *testEnv) admin(t *testing.T) *domain.User {
	t.Helper()
	admin, err := Bootstrap(context.Background(), BootstrapDependencies{Users: e.users, Hasher: e.hasher}, BootstrapConfig{
		Username: "admin",
		Password: "admin-password",
	})
	require.NoError(t, err)
	require.NotNil(t, admin)
	return admin
}
