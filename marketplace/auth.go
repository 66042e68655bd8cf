package marketplace

import (
	"context"
	"log/slog"
	"strings"

	"github.com/goliatone/go-carmarket/failure"
	"github.com/goliatone/go-carmarket/guard"
	"github.com/goliatone/go-carmarket/remote"
)

func (s *Service) SignIn(ctx context.Context, email, password string) (*remote.Session, error) {
	return s.authenticate(ctx, "sign_in", email, password, s.client.Auth().SignIn)
}

func (s *Service) SignUp(ctx context.Context, email, password string) (*remote.Session, error) {
	return s.authenticate(ctx, "sign_up", email, password, s.client.Auth().SignUp)
}

func (s *Service) authenticate(
	ctx context.Context,
	op, email, password string,
	call func(context.Context, remote.Credentials) (*remote.Session, error),
) (*remote.Session, error) {
	if err := guard.ValidateCredentials(email, password); err != nil {
		return nil, err
	}

	creds := remote.Credentials{Email: strings.TrimSpace(email), Password: password}
	session, err := call(ctx, creds)
	if err != nil {
		ferr := failure.Normalize(err)
		s.opts.logger.Warn("authentication failed",
			slog.String("operation", op),
			slog.String("kind", string(failure.KindOf(ferr))),
		)
		return nil, ferr
	}
	return session, nil
}

// SignOut ends the session and clears the whole cache, since cached reads
// are not partitioned by user. The cache is cleared even when the remote
// sign-out fails.
func (s *Service) SignOut(ctx context.Context) error {
	signOutErr := s.client.Auth().SignOut(ctx)
	clearErr := s.clear(ctx, "sign_out")

	if signOutErr != nil {
		return failure.Normalize(signOutErr)
	}
	return clearErr
}

// CurrentUser returns nil when nobody is signed in.
func (s *Service) CurrentUser(ctx context.Context) (*remote.User, error) {
	user, err := s.client.Auth().CurrentUser(ctx)
	if err != nil {
		return nil, failure.Normalize(err)
	}
	return user, nil
}

func (s *Service) requireUser(ctx context.Context) (*remote.User, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, failure.Normalize(remote.NotAuthenticated())
	}
	return user, nil
}
