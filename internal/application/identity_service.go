package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// minPasswordLength is the floor enforced at signup.
const minPasswordLength = 8

// UserStore exposes the account storage operations the identity service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user User, passwordHash string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// VerificationMailer is the external collaborator that delivers account
// verification emails. Failures are logged but never block signup.
type VerificationMailer interface {
	SendVerification(ctx context.Context, email string) error
}

// PasswordHasher derives a storable hash from a plaintext password.
type PasswordHasher func(password string) (string, error)

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// IdentityService gates account creation and sign-in behind the campus
// eligibility rules and manages session lifecycle.
type IdentityService struct {
	users          UserStore
	sessions       SessionRepository
	mailer         VerificationMailer
	hashPassword   PasswordHasher
	verifyPassword PasswordVerifier
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	allowedDomains []string
	logger         *slog.Logger
}

// IdentityServiceConfig wires the dependencies of an IdentityService.
type IdentityServiceConfig struct {
	Users          UserStore
	Sessions       SessionRepository
	Mailer         VerificationMailer
	HashPassword   PasswordHasher
	VerifyPassword PasswordVerifier
	IDGenerator    func() string
	TokenGenerator func() string
	Now            func() time.Time
	SessionTTL     time.Duration
	// AllowedDomains lists accepted email suffixes. Defaults to {".edu"}.
	AllowedDomains []string
	Logger         *slog.Logger
}

// NewIdentityService constructs an IdentityService with the provided
// dependencies, applying defaults for optional fields.
func NewIdentityService(cfg IdentityServiceConfig) *IdentityService {
	hash := cfg.HashPassword
	if hash == nil {
		hash = HashPassword
	}
	verify := cfg.VerifyPassword
	if verify == nil {
		verify = VerifyPassword
	}
	idGen := cfg.IDGenerator
	if idGen == nil {
		idGen = func() string { return "" }
	}
	tokenGen := cfg.TokenGenerator
	if tokenGen == nil {
		tokenGen = idGen
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	domains := cfg.AllowedDomains
	if len(domains) == 0 {
		domains = []string{".edu"}
	}

	return &IdentityService{
		users:          cfg.Users,
		sessions:       cfg.Sessions,
		mailer:         cfg.Mailer,
		hashPassword:   hash,
		verifyPassword: verify,
		idGenerator:    idGen,
		tokenGenerator: tokenGen,
		now:            now,
		sessionTTL:     ttl,
		allowedDomains: domains,
		logger:         defaultLogger(cfg.Logger),
	}
}

func (s *IdentityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "IdentityService", operation, attrs...)
}

// SignUp validates the campus eligibility rules and registers a new account.
func (s *IdentityService) SignUp(ctx context.Context, params SignUpParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("IdentityService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user store not configured")
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	logger := s.loggerWith(ctx, "SignUp", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "signup rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "account created")
	}()

	if !s.emailDomainAllowed(email) {
		err = ErrInvalidEmailDomain
		return
	}
	if len(params.Password) < minPasswordLength {
		err = ErrWeakPassword
		return
	}
	if params.Password != params.ConfirmPassword {
		err = ErrPasswordMismatch
		return
	}

	vErr := &ValidationError{}
	university := strings.TrimSpace(params.University)
	if university == "" {
		vErr.add("university", "university is required")
	}
	displayName := strings.TrimSpace(params.DisplayName)
	if displayName == "" {
		displayName = email[:strings.Index(email, "@")]
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hashPassword(params.Password)
	if err != nil {
		return
	}

	now := s.now()
	candidate := User{
		ID:          s.idGenerator(),
		Email:       email,
		University:  university,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	user, err = s.users.CreateUser(ctx, candidate, hash)
	if err != nil {
		return
	}

	if s.mailer != nil {
		if mailErr := s.mailer.SendVerification(ctx, email); mailErr != nil {
			logger.ErrorContext(ctx, "verification email failed", "error", mailErr)
		}
	}
	return
}

// SignIn validates credentials and issues a new session token.
func (s *IdentityService) SignIn(ctx context.Context, params SignInParams) (result SignInResult, err error) {
	if s == nil {
		err = fmt.Errorf("IdentityService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user store not configured")
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	logger := s.loggerWith(ctx, "SignIn", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "sign-in failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"user_id", result.User.ID,
			"session_id", result.Session.ID,
		).InfoContext(ctx, "sign-in succeeded")
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}
	if !s.emailDomainAllowed(email) {
		err = ErrInvalidEmailDomain
		return
	}

	var creds UserCredentials
	creds, err = s.users.GetUserCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
			return
		}
		return
	}

	if err = s.verifyPassword(creds.PasswordHash, params.Password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	now := s.now()
	session := Session{
		ID:        s.idGenerator(),
		UserID:    creds.User.ID,
		Token:     s.tokenGenerator(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	if s.sessions != nil {
		if err = s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
			return
		}
		var persisted Session
		persisted, err = s.sessions.CreateSession(ctx, session)
		if err != nil {
			return
		}
		session = persisted
	}

	result = SignInResult{User: creds.User, Session: session}
	return
}

// ValidateSession verifies the token corresponds to an active session and
// returns its principal.
func (s *IdentityService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("IdentityService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if trimmed == "" {
		err = ErrInvalidCredentials
		return
	}

	var session Session
	session, err = s.sessions.GetSession(ctx, trimmed)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}

	now := s.now()
	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		err = ErrSessionRevoked
		return
	}
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(now) {
		err = ErrSessionExpired
		return
	}

	principal = Principal{UserID: session.UserID}
	return
}

// RevokeSession invalidates an existing session token.
func (s *IdentityService) RevokeSession(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("IdentityService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrInvalidCredentials
	}

	logger := s.loggerWith(ctx, "RevokeSession", "token_provided", true)

	if _, err := s.sessions.RevokeSession(ctx, trimmed, s.now()); err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.ErrorContext(ctx, "failed to revoke session", "error", ErrInvalidCredentials, "error_kind", ErrorKind(ErrInvalidCredentials))
			return ErrInvalidCredentials
		}
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if err := s.sessions.DeleteExpiredSessions(ctx, s.now()); err != nil {
		logger.ErrorContext(ctx, "failed to prune expired sessions", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "session revoked")
	return nil
}

func (s *IdentityService) emailDomainAllowed(email string) bool {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	for _, suffix := range s.allowedDomains {
		if strings.HasSuffix(email, suffix) {
			return true
		}
	}
	return false
}
