package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

type userStoreStub struct {
	users       map[string]User
	credentials map[string]UserCredentials
	createErr   error
	created     []User
	hashes      []string
}

func newUserStoreStub() *userStoreStub {
	return &userStoreStub{
		users:       map[string]User{},
		credentials: map[string]UserCredentials{},
	}
}

func (s *userStoreStub) CreateUser(ctx context.Context, user User, passwordHash string) (User, error) {
	if s.createErr != nil {
		return User{}, s.createErr
	}
	if _, exists := s.credentials[user.Email]; exists {
		return User{}, ErrAlreadyExists
	}
	s.users[user.ID] = user
	s.credentials[user.Email] = UserCredentials{User: user, PasswordHash: passwordHash}
	s.created = append(s.created, user)
	s.hashes = append(s.hashes, passwordHash)
	return user, nil
}

func (s *userStoreStub) GetUser(ctx context.Context, id string) (User, error) {
	user, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (s *userStoreStub) GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error) {
	creds, ok := s.credentials[email]
	if !ok {
		return UserCredentials{}, ErrNotFound
	}
	return creds, nil
}

type sessionRepositoryStub struct {
	sessions    map[string]Session
	createErr   error
	deleteErr   error
	deleteCalls []time.Time
}

func newSessionRepositoryStub() *sessionRepositoryStub {
	return &sessionRepositoryStub{sessions: map[string]Session{}}
}

func (s *sessionRepositoryStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	if s.createErr != nil {
		return Session{}, s.createErr
	}
	s.sessions[session.Token] = session
	return session, nil
}

func (s *sessionRepositoryStub) GetSession(ctx context.Context, token string) (Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return session, nil
}

func (s *sessionRepositoryStub) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	session.RevokedAt = &revokedAt
	s.sessions[token] = session
	return session, nil
}

func (s *sessionRepositoryStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.deleteCalls = append(s.deleteCalls, reference)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for token, session := range s.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}

type mailerStub struct {
	sent    []string
	sendErr error
}

func (m *mailerStub) SendVerification(ctx context.Context, email string) error {
	m.sent = append(m.sent, email)
	return m.sendErr
}

func newTestIdentityService(users UserStore, sessions SessionRepository, mailer VerificationMailer, now time.Time) *IdentityService {
	counter := 0
	return NewIdentityService(IdentityServiceConfig{
		Users:    users,
		Sessions: sessions,
		Mailer:   mailer,
		HashPassword: func(password string) (string, error) {
			return "hashed:" + password, nil
		},
		VerifyPassword: func(hashedPassword, password string) error {
			if hashedPassword != "hashed:"+password {
				return ErrInvalidCredentials
			}
			return nil
		},
		IDGenerator: func() string {
			counter++
			return "id-" + string(rune('0'+counter))
		},
		TokenGenerator: func() string { return "token-1" },
		Now:            func() time.Time { return now },
		SessionTTL:     time.Hour,
	})
}

func TestIdentityService_SignUp(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC)

	t.Run("registers an eligible student", func(t *testing.T) {
		t.Parallel()

		users := newUserStoreStub()
		mailer := &mailerStub{}
		svc := newTestIdentityService(users, newSessionRepositoryStub(), mailer, now)

		user, err := svc.SignUp(context.Background(), SignUpParams{
			Email:           "Jamie.Doe@state.edu",
			Password:        "longenough",
			ConfirmPassword: "longenough",
			University:      "State University",
			DisplayName:     "Jamie",
		})
		if err != nil {
			t.Fatalf("SignUp failed: %v", err)
		}
		if user.Email != "jamie.doe@state.edu" {
			t.Fatalf("expected normalised email, got %q", user.Email)
		}
		if len(users.hashes) != 1 || users.hashes[0] != "hashed:longenough" {
			t.Fatalf("expected hashed password to be stored, got %#v", users.hashes)
		}
		if len(mailer.sent) != 1 || mailer.sent[0] != "jamie.doe@state.edu" {
			t.Fatalf("expected verification email, got %#v", mailer.sent)
		}
	})

	t.Run("defaults display name to the email local part", func(t *testing.T) {
		t.Parallel()

		users := newUserStoreStub()
		svc := newTestIdentityService(users, newSessionRepositoryStub(), nil, now)

		user, err := svc.SignUp(context.Background(), SignUpParams{
			Email:           "casey@campus.edu",
			Password:        "longenough",
			ConfirmPassword: "longenough",
			University:      "Campus College",
		})
		if err != nil {
			t.Fatalf("SignUp failed: %v", err)
		}
		if user.DisplayName != "casey" {
			t.Fatalf("expected display name %q, got %q", "casey", user.DisplayName)
		}
	})

	t.Run("rejects non-campus email domains", func(t *testing.T) {
		t.Parallel()

		svc := newTestIdentityService(newUserStoreStub(), newSessionRepositoryStub(), nil, now)

		_, err := svc.SignUp(context.Background(), SignUpParams{
			Email:           "someone@gmail.com",
			Password:        "longenough",
			ConfirmPassword: "longenough",
			University:      "State University",
		})
		if !errors.Is(err, ErrInvalidEmailDomain) {
			t.Fatalf("expected ErrInvalidEmailDomain, got %v", err)
		}
	})

	t.Run("rejects short passwords", func(t *testing.T) {
		t.Parallel()

		svc := newTestIdentityService(newUserStoreStub(), newSessionRepositoryStub(), nil, now)

		_, err := svc.SignUp(context.Background(), SignUpParams{
			Email:           "someone@state.edu",
			Password:        "short",
			ConfirmPassword: "short",
			University:      "State University",
		})
		if !errors.Is(err, ErrWeakPassword) {
			t.Fatalf("expected ErrWeakPassword, got %v", err)
		}
	})

	t.Run("rejects mismatched confirmation", func(t *testing.T) {
		t.Parallel()

		svc := newTestIdentityService(newUserStoreStub(), newSessionRepositoryStub(), nil, now)

		_, err := svc.SignUp(context.Background(), SignUpParams{
			Email:           "someone@state.edu",
			Password:        "longenough",
			ConfirmPassword: "different!",
			University:      "State University",
		})
		if !errors.Is(err, ErrPasswordMismatch) {
			t.Fatalf("expected ErrPasswordMismatch, got %v", err)
		}
	})

	t.Run("requires a university", func(t *testing.T) {
		t.Parallel()

		svc := newTestIdentityService(newUserStoreStub(), newSessionRepositoryStub(), nil, now)

		_, err := svc.SignUp(context.Background(), SignUpParams{
			Email:           "someone@state.edu",
			Password:        "longenough",
			ConfirmPassword: "longenough",
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["university"]; !ok {
			t.Fatalf("expected university field error, got %#v", vErr.FieldErrors)
		}
	})

	t.Run("surfaces duplicate accounts", func(t *testing.T) {
		t.Parallel()

		users := newUserStoreStub()
		svc := newTestIdentityService(users, newSessionRepositoryStub(), nil, now)

		params := SignUpParams{
			Email:           "dup@state.edu",
			Password:        "longenough",
			ConfirmPassword: "longenough",
			University:      "State University",
		}
		if _, err := svc.SignUp(context.Background(), params); err != nil {
			t.Fatalf("first SignUp failed: %v", err)
		}
		_, err := svc.SignUp(context.Background(), params)
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("mailer failure does not block signup", func(t *testing.T) {
		t.Parallel()

		mailer := &mailerStub{sendErr: errors.New("smtp down")}
		svc := newTestIdentityService(newUserStoreStub(), newSessionRepositoryStub(), mailer, now)

		_, err := svc.SignUp(context.Background(), SignUpParams{
			Email:           "ok@state.edu",
			Password:        "longenough",
			ConfirmPassword: "longenough",
			University:      "State University",
		})
		if err != nil {
			t.Fatalf("SignUp failed: %v", err)
		}
	})
}

func TestIdentityService_SignIn(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC)

	signUp := func(t *testing.T, svc *IdentityService, email string) User {
		t.Helper()
		user, err := svc.SignUp(context.Background(), SignUpParams{
			Email:           email,
			Password:        "longenough",
			ConfirmPassword: "longenough",
			University:      "State University",
		})
		if err != nil {
			t.Fatalf("SignUp failed: %v", err)
		}
		return user
	}

	t.Run("issues sessions for valid credentials", func(t *testing.T) {
		t.Parallel()

		sessions := newSessionRepositoryStub()
		svc := newTestIdentityService(newUserStoreStub(), sessions, nil, now)
		user := signUp(t, svc, "player@state.edu")

		result, err := svc.SignIn(context.Background(), SignInParams{Email: "Player@state.edu", Password: "longenough"})
		if err != nil {
			t.Fatalf("SignIn failed: %v", err)
		}
		if result.User.ID != user.ID {
			t.Fatalf("expected user %s, got %s", user.ID, result.User.ID)
		}
		if result.Session.Token != "token-1" {
			t.Fatalf("expected issued token, got %s", result.Session.Token)
		}
		if !result.Session.ExpiresAt.Equal(now.Add(time.Hour)) {
			t.Fatalf("unexpected expiry %v", result.Session.ExpiresAt)
		}
		if len(sessions.deleteCalls) != 1 || !sessions.deleteCalls[0].Equal(now) {
			t.Fatalf("expected expired-session cleanup at %v, got %#v", now, sessions.deleteCalls)
		}
	})

	t.Run("rejects wrong passwords with sentinel error", func(t *testing.T) {
		t.Parallel()

		svc := newTestIdentityService(newUserStoreStub(), newSessionRepositoryStub(), nil, now)
		signUp(t, svc, "player@state.edu")

		_, err := svc.SignIn(context.Background(), SignInParams{Email: "player@state.edu", Password: "wrong-password"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("masks unknown accounts as invalid credentials", func(t *testing.T) {
		t.Parallel()

		svc := newTestIdentityService(newUserStoreStub(), newSessionRepositoryStub(), nil, now)

		_, err := svc.SignIn(context.Background(), SignInParams{Email: "ghost@state.edu", Password: "longenough"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("propagates session store failures", func(t *testing.T) {
		t.Parallel()

		sessions := newSessionRepositoryStub()
		sessions.createErr = errors.New("boom")
		svc := newTestIdentityService(newUserStoreStub(), sessions, nil, now)
		signUp(t, svc, "player@state.edu")

		_, err := svc.SignIn(context.Background(), SignInParams{Email: "player@state.edu", Password: "longenough"})
		if !errors.Is(err, sessions.createErr) {
			t.Fatalf("expected %v, got %v", sessions.createErr, err)
		}
	})
}

func TestIdentityService_ValidateSession(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC)

	seed := func(sessions *sessionRepositoryStub, session Session) {
		sessions.sessions[session.Token] = session
	}

	t.Run("returns the principal for an active session", func(t *testing.T) {
		t.Parallel()

		sessions := newSessionRepositoryStub()
		seed(sessions, Session{ID: "s1", UserID: "user-9", Token: "tok", ExpiresAt: now.Add(time.Hour)})
		svc := newTestIdentityService(newUserStoreStub(), sessions, nil, now)

		principal, err := svc.ValidateSession(context.Background(), "tok")
		if err != nil {
			t.Fatalf("ValidateSession failed: %v", err)
		}
		if principal.UserID != "user-9" {
			t.Fatalf("expected user-9, got %s", principal.UserID)
		}
	})

	t.Run("rejects expired sessions", func(t *testing.T) {
		t.Parallel()

		sessions := newSessionRepositoryStub()
		seed(sessions, Session{ID: "s1", UserID: "user-9", Token: "tok", ExpiresAt: now.Add(-time.Minute)})
		svc := newTestIdentityService(newUserStoreStub(), sessions, nil, now)

		_, err := svc.ValidateSession(context.Background(), "tok")
		if !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("rejects revoked sessions", func(t *testing.T) {
		t.Parallel()

		revoked := now.Add(-time.Minute)
		sessions := newSessionRepositoryStub()
		seed(sessions, Session{ID: "s1", UserID: "user-9", Token: "tok", ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked})
		svc := newTestIdentityService(newUserStoreStub(), sessions, nil, now)

		_, err := svc.ValidateSession(context.Background(), "tok")
		if !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
	})

	t.Run("rejects unknown tokens", func(t *testing.T) {
		t.Parallel()

		svc := newTestIdentityService(newUserStoreStub(), newSessionRepositoryStub(), nil, now)

		_, err := svc.ValidateSession(context.Background(), "missing")
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestIdentityService_RevokeSession(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC)

	t.Run("revokes an active session", func(t *testing.T) {
		t.Parallel()

		sessions := newSessionRepositoryStub()
		sessions.sessions["tok"] = Session{ID: "s1", UserID: "user-9", Token: "tok", ExpiresAt: now.Add(time.Hour)}
		svc := newTestIdentityService(newUserStoreStub(), sessions, nil, now)

		if err := svc.RevokeSession(context.Background(), "tok"); err != nil {
			t.Fatalf("RevokeSession failed: %v", err)
		}
		_, err := svc.ValidateSession(context.Background(), "tok")
		if !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked after revoke, got %v", err)
		}
	})

	t.Run("maps unknown tokens to invalid credentials", func(t *testing.T) {
		t.Parallel()

		svc := newTestIdentityService(newUserStoreStub(), newSessionRepositoryStub(), nil, now)

		err := svc.RevokeSession(context.Background(), "missing")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}
