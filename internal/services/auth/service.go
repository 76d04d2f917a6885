package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/quill/internal/dependencies/clock"
	"github.com/mcoot/quill/internal/dependencies/random"
	"github.com/mcoot/quill/internal/metrics"
	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/storage"
	"github.com/mcoot/quill/internal/validation"
)

// Errors
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidSession      = errors.New("invalid or expired session")
	ErrEmailNotConfirmed   = errors.New("email not confirmed")
	ErrInvalidConfirmation = errors.New("invalid confirmation code")
)

// confirmationAlphabet avoids ambiguous characters (0/O, 1/I/L)
const confirmationAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const confirmationCodeLength = 6

// Session represents an authenticated session handed to a client
type Session struct {
	Token     string
	ID        model.SessionID
	Identity  model.Identity
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SignUpResult is the outcome of a sign-up. Session is nil when the
// account must be confirmed before it can sign in.
type SignUpResult struct {
	Identity             model.Identity
	Session              *Session
	ConfirmationRequired bool
}

// Notifier receives session events for delivery to connected clients
type Notifier interface {
	Publish(identityID model.IdentityID, event model.SessionEvent)
}

type nopNotifier struct{}

func (nopNotifier) Publish(model.IdentityID, model.SessionEvent) {}

// Config holds configuration for the auth service
type Config struct {
	SessionDuration     time.Duration
	RequireConfirmation bool
	TokenSecret         string
	TokenIssuer         string
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 7 * 24 * time.Hour,
		TokenIssuer:     "quill",
	}
}

type signUpInput struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=8,max=72"`
}

type signInInput struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// Service is the identity provider: it owns accounts and sessions
type Service struct {
	storage  storage.Storage
	clock    clock.Clock
	random   random.Random
	tokens   *TokenIssuer
	validate *validation.Validator
	notifier Notifier
	metrics  metrics.Recorder
	logger   *slog.Logger
	cfg      Config
}

// New creates a new auth Service
func New(
	storage storage.Storage,
	clock clock.Clock,
	random random.Random,
	notifier Notifier,
	recorder metrics.Recorder,
	cfg Config,
	logger *slog.Logger,
) *Service {
	defaults := DefaultConfig()
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = defaults.SessionDuration
	}
	if cfg.TokenIssuer == "" {
		cfg.TokenIssuer = defaults.TokenIssuer
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Service{
		storage:  storage,
		clock:    clock,
		random:   random,
		tokens:   NewTokenIssuer(cfg.TokenSecret, cfg.TokenIssuer, clock.Now),
		validate: validation.New(),
		notifier: notifier,
		metrics:  recorder,
		logger:   logger.With(slog.String("component", "auth")),
		cfg:      cfg,
	}
}

// SignUp creates an identity with email/password credentials
func (s *Service) SignUp(ctx context.Context, email, password string) (*SignUpResult, error) {
	result, err := s.signUp(ctx, normalizeEmail(email), password)
	s.metrics.RecordAuth("sign_up", resultLabel(err))
	return result, err
}

func (s *Service) signUp(ctx context.Context, email, password string) (*SignUpResult, error) {
	if err := s.validate.Struct(signUpInput{Email: email, Password: password}); err != nil {
		return nil, err
	}

	// Check if email exists
	_, err := s.storage.GetCredentialByEmail(ctx, email)
	if err == nil {
		return nil, model.ErrEmailTaken
	}
	if !errors.Is(err, model.ErrIdentityNotFound) {
		return nil, err
	}

	// Hash password
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	identity := &model.Identity{
		ID:          model.IdentityID(uuid.NewString()),
		Email:       email,
		DisplayName: defaultDisplayName(email),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	cred := &model.Credential{
		IdentityID:   identity.ID,
		Email:        email,
		PasswordHash: string(hash),
		Confirmed:    !s.cfg.RequireConfirmation,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if s.cfg.RequireConfirmation {
		cred.ConfirmationCode = s.random.String(confirmationCodeLength, confirmationAlphabet)
	}

	// The credential claims the email, so save it first
	if err := s.storage.SaveCredential(ctx, cred); err != nil {
		return nil, err
	}
	if err := s.storage.SaveIdentity(ctx, identity); err != nil {
		return nil, err
	}

	s.logger.Info("identity created",
		slog.String("identity_id", string(identity.ID)),
		slog.Bool("confirmation_required", s.cfg.RequireConfirmation))

	result := &SignUpResult{Identity: *identity}
	if s.cfg.RequireConfirmation {
		// No mail transport is configured, the code goes to the operator log
		s.logger.Info("confirmation code issued",
			slog.String("email", email),
			slog.String("code", cred.ConfirmationCode))
		result.ConfirmationRequired = true
		return result, nil
	}

	session, err := s.createSession(ctx, identity)
	if err != nil {
		return nil, err
	}
	result.Session = session
	return result, nil
}

// Confirm marks an account's email as confirmed
func (s *Service) Confirm(ctx context.Context, email, code string) error {
	cred, err := s.storage.GetCredentialByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, model.ErrIdentityNotFound) {
			return ErrInvalidConfirmation
		}
		return err
	}
	if cred.Confirmed {
		return nil
	}
	if cred.ConfirmationCode == "" || !strings.EqualFold(cred.ConfirmationCode, strings.TrimSpace(code)) {
		return ErrInvalidConfirmation
	}

	cred.Confirmed = true
	cred.ConfirmationCode = ""
	cred.UpdatedAt = s.clock.Now()
	return s.storage.SaveCredential(ctx, cred)
}

// SignIn authenticates with email and password and creates a session
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	session, err := s.signIn(ctx, normalizeEmail(email), password)
	s.metrics.RecordAuth("sign_in", resultLabel(err))
	return session, err
}

func (s *Service) signIn(ctx context.Context, email, password string) (*Session, error) {
	if err := s.validate.Struct(signInInput{Email: email, Password: password}); err != nil {
		return nil, err
	}

	cred, err := s.storage.GetCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrIdentityNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !cred.Confirmed {
		return nil, ErrEmailNotConfirmed
	}

	identity, err := s.storage.GetIdentity(ctx, cred.IdentityID)
	if err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, identity)
	if err != nil {
		return nil, err
	}

	s.publish(model.SessionEvent{
		Type:       model.EventSignedIn,
		IdentityID: identity.ID,
		SessionID:  session.ID,
	})
	return session, nil
}

// SignOut revokes the session named by token, or every session of its
// identity for the global scope. Signing out an unknown or already revoked
// token succeeds.
func (s *Service) SignOut(ctx context.Context, token string, scope model.SignOutScope) error {
	err := s.signOut(ctx, token, scope)
	s.metrics.RecordAuth("sign_out", resultLabel(err))
	return err
}

func (s *Service) signOut(ctx context.Context, token string, scope model.SignOutScope) error {
	sessionID, identityID, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}

	if scope == model.SignOutGlobal {
		sessions, err := s.storage.GetSessionsForIdentity(ctx, identityID)
		if err != nil {
			return err
		}
		for _, session := range sessions {
			if err := s.storage.DeleteSession(ctx, session.ID); err != nil {
				return err
			}
		}
		s.logger.Info("signed out everywhere",
			slog.String("identity_id", string(identityID)),
			slog.Int("sessions", len(sessions)))
		s.publish(model.SessionEvent{Type: model.EventSignedOut, IdentityID: identityID})
		return nil
	}

	if err := s.storage.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	s.logger.Info("signed out",
		slog.String("identity_id", string(identityID)),
		slog.String("session_id", string(sessionID)))
	s.publish(model.SessionEvent{Type: model.EventSignedOut, IdentityID: identityID, SessionID: sessionID})
	return nil
}

// Validate checks a bearer token and returns its live session
func (s *Service) Validate(ctx context.Context, token string) (*Session, error) {
	sessionID, _, err := s.tokens.Parse(token)
	if err != nil {
		return nil, ErrInvalidSession
	}

	session, err := s.storage.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}

	if session.Expired(s.clock.Now()) {
		if err := s.storage.DeleteSession(ctx, session.ID); err != nil {
			return nil, err
		}
		s.publish(model.SessionEvent{
			Type:       model.EventSessionExpired,
			IdentityID: session.IdentityID,
			SessionID:  session.ID,
		})
		return nil, ErrInvalidSession
	}

	identity, err := s.storage.GetIdentity(ctx, session.IdentityID)
	if err != nil {
		if errors.Is(err, model.ErrIdentityNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}

	return &Session{
		Token:     token,
		ID:        session.ID,
		Identity:  *identity,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// GetIdentity returns an identity by id
func (s *Service) GetIdentity(ctx context.Context, id model.IdentityID) (*model.Identity, error) {
	return s.storage.GetIdentity(ctx, id)
}

// UpdateProfile applies a profile update and announces it to the identity's sessions
func (s *Service) UpdateProfile(ctx context.Context, id model.IdentityID, update model.ProfileUpdate) (*model.Identity, error) {
	if err := s.validate.Struct(update); err != nil {
		return nil, err
	}

	identity, err := s.storage.GetIdentity(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.DisplayName != nil {
		identity.DisplayName = strings.TrimSpace(*update.DisplayName)
	}
	if update.AvatarURL != nil {
		identity.AvatarURL = *update.AvatarURL
	}
	if update.Bio != nil {
		identity.Bio = *update.Bio
	}
	if update.Website != nil {
		identity.Website = *update.Website
	}
	identity.UpdatedAt = s.clock.Now()

	if err := s.storage.SaveIdentity(ctx, identity); err != nil {
		return nil, err
	}

	updated := *identity
	s.publish(model.SessionEvent{
		Type:       model.EventIdentityUpdated,
		IdentityID: id,
		Identity:   &updated,
	})
	return identity, nil
}

// CleanExpiredSessions removes expired sessions (call periodically) and
// tells their clients the session is gone
func (s *Service) CleanExpiredSessions(ctx context.Context) (int, error) {
	expired, err := s.storage.DeleteExpiredSessions(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	for _, session := range expired {
		s.publish(model.SessionEvent{
			Type:       model.EventSessionExpired,
			IdentityID: session.IdentityID,
			SessionID:  session.ID,
		})
	}
	if len(expired) > 0 {
		s.logger.Info("expired sessions cleaned up", slog.Int("removed", len(expired)))
	}
	return len(expired), nil
}

// RunJanitor cleans expired sessions every interval until ctx is done
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.CleanExpiredSessions(ctx); err != nil {
				s.logger.Error("session cleanup failed", slog.Any("error", err))
			}
		}
	}
}

// createSession creates and stores a session for an identity
func (s *Service) createSession(ctx context.Context, identity *model.Identity) (*Session, error) {
	now := s.clock.Now()
	session := &model.Session{
		ID:         model.SessionID(uuid.NewString()),
		IdentityID: identity.ID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.SessionDuration),
	}

	token, err := s.tokens.Issue(session)
	if err != nil {
		return nil, err
	}
	if err := s.storage.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	return &Session{
		Token:     token,
		ID:        session.ID,
		Identity:  *identity,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *Service) publish(event model.SessionEvent) {
	event.Timestamp = s.clock.Now()
	s.metrics.RecordSessionEvent(string(event.Type))
	s.notifier.Publish(event.IdentityID, event)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// defaultDisplayName uses the local part of the email until the user sets one
func defaultDisplayName(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrEmailNotConfirmed):
		return "unconfirmed"
	case errors.Is(err, validation.ErrInvalid):
		return "invalid"
	case errors.Is(err, model.ErrEmailTaken):
		return "email_taken"
	default:
		return "error"
	}
}
