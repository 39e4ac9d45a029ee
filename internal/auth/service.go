package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kharcha/internal/storage"
)

var (
	// ErrUnknownProvider is returned for a provider name that is not
	// configured.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrEmailRequired is returned when a provider asserts no email
	// address. We cannot link or create an account without one.
	ErrEmailRequired = errors.New("provider returned no email address")
)

// Service resolves provider identities to local accounts.
type Service struct {
	repo      *storage.SQLiteRepository
	providers map[string]*Provider
}

func NewService(repo *storage.SQLiteRepository, providers ...*Provider) *Service {
	byName := make(map[string]*Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Service{repo: repo, providers: byName}
}

// Provider looks a configured provider up by name.
func (s *Service) Provider(name string) (*Provider, error) {
	p, ok := s.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Providers lists the configured provider names.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	return names
}

// SignIn resolves an asserted identity to a local account. A credential
// seen before maps straight to its account. A new credential whose email
// already has an account gets linked to that account, so signing in with
// Google and later with GitHub on the same address lands in one expense
// set. Only a brand new email creates an account.
func (s *Service) SignIn(ctx context.Context, identity Identity) (storage.User, error) {
	user, err := s.repo.FindUserByProvider(ctx, identity.Provider, identity.ProviderUserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return storage.User{}, fmt.Errorf("lookup provider credential: %w", err)
	}

	if identity.Email == "" {
		return storage.User{}, ErrEmailRequired
	}

	user, err = s.repo.FindUserByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "Linking new provider to existing account",
			"user_id", user.ID, "provider", identity.Provider)
	case errors.Is(err, storage.ErrNotFound):
		user, err = s.repo.CreateUser(ctx, identity.Email)
		if err != nil {
			return storage.User{}, fmt.Errorf("create user: %w", err)
		}
		slog.InfoContext(ctx, "Created account for first sign-in",
			"user_id", user.ID, "provider", identity.Provider)
	default:
		return storage.User{}, fmt.Errorf("lookup user by email: %w", err)
	}

	if err := s.repo.LinkProvider(ctx, user.ID, identity.Provider, identity.ProviderUserID); err != nil {
		return storage.User{}, fmt.Errorf("link provider: %w", err)
	}
	return user, nil
}
