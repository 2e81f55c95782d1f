package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	accountdomain "phone-otp-auth/backend/internal/account/domain"
	accountrepo "phone-otp-auth/backend/internal/account/repository"
	attemptdomain "phone-otp-auth/backend/internal/attempt/domain"
	auditdomain "phone-otp-auth/backend/internal/audit/domain"
	"phone-otp-auth/backend/internal/clock"
	"phone-otp-auth/backend/internal/otp"
	otpdomain "phone-otp-auth/backend/internal/otp/domain"
	"phone-otp-auth/backend/internal/security"
)

// Sentinel errors for the auth flow; the handler maps them to HTTP statuses.
var (
	ErrTooManyAttempts        = errors.New("too many failed attempts")
	ErrChallengeAlreadySent   = errors.New("verification code already sent")
	ErrInvalidOrExpiredCode   = errors.New("invalid or expired code")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrMissingCredentials     = errors.New("missing credentials")
	ErrPhoneAlreadyRegistered = errors.New("phone number already registered")
	ErrEmailInUse             = errors.New("email already in use")
	ErrIdentityNotFound       = errors.New("identity not found")
)

// AuthResult holds the outcome of VerifyCode or Login.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	IdentityID   string
	// Created is true when VerifyCode created the identity.
	Created bool
}

// RegisterResult is returned by Register. Code is set only when codes are returned to the client.
type RegisterResult struct {
	Code      string
	ExpiresAt time.Time
}

// AccountRepo is the identity store the auth flow needs.
type AccountRepo interface {
	GetByID(ctx context.Context, id string) (*accountdomain.Identity, error)
	GetByPhone(ctx context.Context, phone string) (*accountdomain.Identity, error)
	GetOrCreate(ctx context.Context, phone string, now time.Time) (*accountdomain.Identity, bool, error)
	SetPassword(ctx context.Context, id, passwordHash string, now time.Time) error
	UpdateProfile(ctx context.Context, id string, p accountdomain.Profile, now time.Time) error
	EmailTaken(ctx context.Context, email, exceptID string) (bool, error)
}

// Challenges is the verification code lifecycle.
type Challenges interface {
	Issue(ctx context.Context, phone string) (*otpdomain.Challenge, error)
	Verify(ctx context.Context, phone, code string) (bool, error)
}

// Limiter is the sliding-window abuse limiter.
type Limiter interface {
	IsBlocked(ctx context.Context, source, phone string, kind attemptdomain.Kind) (bool, error)
	RecordFailure(ctx context.Context, source, phone string, kind attemptdomain.Kind)
}

// CodeSender delivers a verification code to a phone.
type CodeSender interface {
	Send(ctx context.Context, phone, code string) error
}

// CodeStore keeps issued codes for the dev-only retrieval endpoint.
type CodeStore interface {
	Put(ctx context.Context, phone, code string, expiresAt time.Time)
	Delete(ctx context.Context, phone string)
}

// AuditLogger records auth events best-effort.
type AuditLogger interface {
	LogEvent(ctx context.Context, identityID, phone, action, metadata string)
}

// Metrics counts successful flow steps. Failures and blocks are counted by the limiter.
type Metrics interface {
	OTPIssued(ctx context.Context)
	OTPVerified(ctx context.Context)
	LoginSucceeded(ctx context.Context)
}

// Options carries the optional collaborators of AuthService. Nil fields are skipped.
type Options struct {
	Sender CodeSender
	// DevCodes receives every issued code. Set only in test mode.
	DevCodes CodeStore
	// ReturnCodeToClient puts the issued code in RegisterResult. Set only in test mode.
	ReturnCodeToClient bool
	Audit              AuditLogger
	Metrics            Metrics
	Clock              clock.Clock
	Logger             *zap.Logger
}

// AuthService implements phone registration, code verification, password login and the
// post-verification account updates.
type AuthService struct {
	accounts   AccountRepo
	challenges Challenges
	limiter    Limiter
	hasher     *security.Hasher
	tokens     *security.TokenProvider

	sender     CodeSender
	devCodes   CodeStore
	returnCode bool
	audit      AuditLogger
	metrics    Metrics
	clock      clock.Clock
	logger     *zap.Logger
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(
	accounts AccountRepo,
	challenges Challenges,
	limiter Limiter,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	opts Options,
) *AuthService {
	s := &AuthService{
		accounts:   accounts,
		challenges: challenges,
		limiter:    limiter,
		hasher:     hasher,
		tokens:     tokens,
		sender:     opts.Sender,
		devCodes:   opts.DevCodes,
		returnCode: opts.ReturnCodeToClient,
		audit:      opts.Audit,
		metrics:    opts.Metrics,
		clock:      opts.Clock,
		logger:     opts.Logger,
	}
	if s.clock == nil {
		s.clock = clock.System{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Register issues a verification code for a phone number that has no identity yet.
func (s *AuthService) Register(ctx context.Context, phone, source string) (*RegisterResult, error) {
	if phone == "" {
		return nil, &ValidationError{Field: fieldPhone, Message: msgPhoneRequired}
	}
	if err := accountdomain.ValidatePhone(phone); err != nil {
		return nil, &ValidationError{Field: fieldPhone, Message: msgPhoneInvalid}
	}
	if err := s.checkBlocked(ctx, source, phone, attemptdomain.KindVerification); err != nil {
		return nil, err
	}
	existing, err := s.accounts.GetByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("register lookup: %w", err)
	}
	if existing != nil {
		return nil, ErrPhoneAlreadyRegistered
	}
	challenge, err := s.challenges.Issue(ctx, phone)
	if err != nil {
		if errors.Is(err, otp.ErrAlreadyPending) {
			return nil, ErrChallengeAlreadySent
		}
		return nil, err
	}
	s.deliver(ctx, challenge)
	if s.metrics != nil {
		s.metrics.OTPIssued(ctx)
	}
	s.logEvent(ctx, "", phone, auditdomain.ActionRegister, "")

	res := &RegisterResult{ExpiresAt: challenge.ExpiresAt}
	if s.returnCode {
		res.Code = challenge.Code
	}
	return res, nil
}

// deliver hands the code to the SMS sender and, in test mode, the dev store. Send errors are logged only.
func (s *AuthService) deliver(ctx context.Context, c *otpdomain.Challenge) {
	if s.devCodes != nil {
		s.devCodes.Put(ctx, c.PhoneNumber, c.Code, c.ExpiresAt)
	}
	if s.sender == nil {
		return
	}
	if err := s.sender.Send(ctx, c.PhoneNumber, c.Code); err != nil {
		s.logger.Warn("verification code delivery failed", zap.Error(err))
	}
}

// VerifyCode consumes the code for phone and returns a token pair, creating the identity on first use.
// A malformed phone number is treated as a wrong code.
func (s *AuthService) VerifyCode(ctx context.Context, phone, code, source string) (*AuthResult, error) {
	if phone == "" || code == "" {
		return nil, ErrMissingCredentials
	}
	if err := s.checkBlocked(ctx, source, phone, attemptdomain.KindVerification); err != nil {
		return nil, err
	}
	ok := false
	if accountdomain.ValidatePhone(phone) == nil {
		var err error
		if ok, err = s.challenges.Verify(ctx, phone, code); err != nil {
			return nil, err
		}
	}
	if !ok {
		s.limiter.RecordFailure(ctx, source, phone, attemptdomain.KindVerification)
		s.logEvent(ctx, "", phone, auditdomain.ActionVerifyFailure, "")
		return nil, ErrInvalidOrExpiredCode
	}
	if s.devCodes != nil {
		s.devCodes.Delete(ctx, phone)
	}

	ident, created, err := s.accounts.GetOrCreate(ctx, phone, s.clock.Now())
	if err != nil {
		return nil, err
	}
	res, err := s.issueTokens(ident)
	if err != nil {
		return nil, err
	}
	res.Created = created
	if s.metrics != nil {
		s.metrics.OTPVerified(ctx)
	}
	meta := ""
	if created {
		meta = "identity created"
	}
	s.logEvent(ctx, ident.ID, phone, auditdomain.ActionVerifySuccess, meta)
	return res, nil
}

// Login checks the password for phone. Unknown phone, inactive identity and wrong password all
// record a failure and return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, phone, password, source string) (*AuthResult, error) {
	if phone == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if err := accountdomain.ValidatePhone(phone); err != nil {
		return nil, &ValidationError{Field: fieldPhone, Message: msgPhoneInvalid}
	}
	if err := s.checkBlocked(ctx, source, phone, attemptdomain.KindLogin); err != nil {
		return nil, err
	}
	ident, err := s.accounts.GetByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("login lookup: %w", err)
	}
	if ident == nil || !ident.IsActive || !s.hasher.Check(ident.PasswordHash, password) {
		s.limiter.RecordFailure(ctx, source, phone, attemptdomain.KindLogin)
		identityID := ""
		if ident != nil {
			identityID = ident.ID
		}
		s.logEvent(ctx, identityID, phone, auditdomain.ActionLoginFailure, "")
		return nil, ErrInvalidCredentials
	}
	res, err := s.issueTokens(ident)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.LoginSucceeded(ctx)
	}
	s.logEvent(ctx, ident.ID, phone, auditdomain.ActionLoginSuccess, "")
	return res, nil
}

// SetPassword replaces the identity's credential.
func (s *AuthService) SetPassword(ctx context.Context, identityID, password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	ident, err := s.accounts.GetByID(ctx, identityID)
	if err != nil {
		return err
	}
	if ident == nil {
		return ErrIdentityNotFound
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.accounts.SetPassword(ctx, ident.ID, hash, s.clock.Now()); err != nil {
		return err
	}
	s.logEvent(ctx, ident.ID, ident.PhoneNumber, auditdomain.ActionPasswordSet, "")
	return nil
}

// CompleteProfile overwrites the identity's profile fields. An email owned by another identity is rejected.
func (s *AuthService) CompleteProfile(ctx context.Context, identityID string, in ProfileInput) error {
	p, err := in.normalize()
	if err != nil {
		return err
	}
	ident, err := s.accounts.GetByID(ctx, identityID)
	if err != nil {
		return err
	}
	if ident == nil {
		return ErrIdentityNotFound
	}
	if p.Email != nil {
		taken, err := s.accounts.EmailTaken(ctx, *p.Email, ident.ID)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailInUse
		}
	}
	// The unique index still catches a concurrent claim of the same email.
	if err := s.accounts.UpdateProfile(ctx, ident.ID, p, s.clock.Now()); err != nil {
		if errors.Is(err, accountrepo.ErrEmailTaken) {
			return ErrEmailInUse
		}
		return err
	}
	s.logEvent(ctx, ident.ID, ident.PhoneNumber, auditdomain.ActionProfileCompleted, "")
	return nil
}

// checkBlocked returns ErrTooManyAttempts when the limiter blocks the triple.
func (s *AuthService) checkBlocked(ctx context.Context, source, phone string, kind attemptdomain.Kind) error {
	blocked, err := s.limiter.IsBlocked(ctx, source, phone, kind)
	if err != nil {
		return err
	}
	if blocked {
		s.logEvent(ctx, "", phone, auditdomain.ActionBlocked, string(kind))
		return ErrTooManyAttempts
	}
	return nil
}

func (s *AuthService) issueTokens(ident *accountdomain.Identity) (*AuthResult, error) {
	pair, err := s.tokens.IssuePair(ident.ID, ident.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return &AuthResult{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		ExpiresAt:    pair.AccessExpiresAt,
		IdentityID:   ident.ID,
	}, nil
}

func (s *AuthService) logEvent(ctx context.Context, identityID, phone, action, metadata string) {
	if s.audit != nil {
		s.audit.LogEvent(ctx, identityID, phone, action, metadata)
	}
}
