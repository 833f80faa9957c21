package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/AtharvDutare/Scan-Crop/internal/common"
)

const (
	minPasswordLength = 6
	watchBuffer       = 16
)

// Mailer delivers verification codes.
type Mailer interface {
	SendVerification(ctx context.Context, email, code string) error
}

// LogMailer "delivers" codes by logging them.
type LogMailer struct {
	Logger *zerolog.Logger
}

func (m LogMailer) SendVerification(ctx context.Context, email, code string) error {
	m.Logger.Info().
		Str("email", email).
		Str("code", code).
		Msg("Verification email queued")
	return nil
}

type Config struct {
	SessionTTL      time.Duration
	VerificationTTL time.Duration
	BcryptCost      int
}

// Service handles email/password accounts and their sessions.
type Service struct {
	store  Store
	mailer Mailer
	cfg    Config
	logger *zerolog.Logger
	now    func() time.Time

	watchMu   sync.Mutex
	watchers  map[uint64]chan Event
	nextWatch uint64
}

func NewService(logger *zerolog.Logger, store Store, mailer Mailer, cfg Config) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		store:    store,
		mailer:   mailer,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		watchers: make(map[uint64]chan Event),
	}
}

// SignUp creates an account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (Grant, error) {
	email = strings.TrimSpace(email)
	if err := common.ValidateVar(email, "required,email"); err != nil {
		return Grant{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return Grant{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return Grant{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateUser(user); err != nil {
		if errors.Is(err, ErrRecordExists) {
			return Grant{}, ErrEmailTaken
		}
		return Grant{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("User signed up")
	s.emit(EventSignedUp, user)

	return s.startSession(user)
}

// SignIn checks credentials and opens a new session.
func (s *Service) SignIn(ctx context.Context, email, password string) (Grant, error) {
	user, err := s.store.UserByEmail(strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			return Grant{}, ErrInvalidCredentials
		}
		return Grant{}, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return Grant{}, ErrInvalidCredentials
	}

	return s.startSession(user)
}

func (s *Service) startSession(user User) (Grant, error) {
	sess := Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.cfg.SessionTTL),
	}
	if err := s.store.SaveSession(sess); err != nil {
		return Grant{}, fmt.Errorf("save session: %w", err)
	}

	s.emit(EventSignedIn, user)
	return Grant{Token: sess.Token, User: user, ExpiresAt: sess.ExpiresAt}, nil
}

// SignOut ends the session identified by token.
func (s *Service) SignOut(ctx context.Context, token string) error {
	user, err := s.CurrentUser(ctx, token)
	if err != nil {
		return err
	}
	if err := s.store.DeleteSession(token); err != nil && !errors.Is(err, ErrNoRecord) {
		return fmt.Errorf("delete session: %w", err)
	}

	s.emit(EventSignedOut, user)
	return nil
}

// CurrentUser resolves token to its signed-in user.
func (s *Service) CurrentUser(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, ErrSessionNotFound
	}

	sess, err := s.store.Session(token)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			return User{}, ErrSessionNotFound
		}
		return User{}, fmt.Errorf("find session: %w", err)
	}

	if !sess.ExpiresAt.After(s.now()) {
		_ = s.store.DeleteSession(token)
		return User{}, ErrSessionExpired
	}

	user, err := s.store.UserByID(sess.UserID)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			return User{}, ErrSessionNotFound
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// SendEmailVerification issues a verification code for the signed-in user.
func (s *Service) SendEmailVerification(ctx context.Context, token string) error {
	user, err := s.CurrentUser(ctx, token)
	if err != nil {
		return err
	}

	v := Verification{
		Code:      uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.cfg.VerificationTTL),
	}
	if err := s.store.SaveVerification(v); err != nil {
		return fmt.Errorf("save verification: %w", err)
	}
	if err := s.mailer.SendVerification(ctx, user.Email, v.Code); err != nil {
		return fmt.Errorf("send verification: %w", err)
	}

	s.emit(EventVerificationSent, user)
	return nil
}

// VerifyEmail consumes code and marks its user verified.
func (s *Service) VerifyEmail(ctx context.Context, code string) (User, error) {
	v, err := s.store.TakeVerification(code)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			return User{}, ErrVerificationNotFound
		}
		return User{}, fmt.Errorf("find verification: %w", err)
	}
	if !v.ExpiresAt.After(s.now()) {
		return User{}, ErrVerificationExpired
	}

	user, err := s.store.UserByID(v.UserID)
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}
	user.EmailVerified = true
	if err := s.store.UpdateUser(user); err != nil {
		return User{}, fmt.Errorf("update user: %w", err)
	}

	s.emit(EventEmailVerified, user)
	return user, nil
}

// Watch streams auth events until ctx is done, then closes the channel.
// A watcher that falls behind by more than a small buffer misses events.
func (s *Service) Watch(ctx context.Context) <-chan Event {
	ch := make(chan Event, watchBuffer)

	s.watchMu.Lock()
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = ch
	s.watchMu.Unlock()

	go func() {
		<-ctx.Done()
		s.watchMu.Lock()
		delete(s.watchers, id)
		close(ch)
		s.watchMu.Unlock()
	}()

	return ch
}

func (s *Service) emit(kind EventKind, user User) {
	ev := Event{Kind: kind, User: user, At: s.now()}

	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	for _, ch := range s.watchers {
		select {
		case ch <- ev:
		default:
			s.logger.Warn().Str("kind", string(kind)).Msg("Auth watcher is full; dropping event")
		}
	}
}
