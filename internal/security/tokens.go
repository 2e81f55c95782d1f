package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"phone-otp-auth/backend/internal/clock"
)

var (
	// ErrInvalidToken is returned when a token is malformed or invalid.
	ErrInvalidToken = errors.New("invalid token")
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims are carried by both tokens of a pair. TokenType keeps a refresh token from being used as access.
type Claims struct {
	jwt.RegisteredClaims
	PhoneNumber string `json:"phone_number"`
	TokenType   string `json:"token_type"`
}

// TokenPair is a freshly minted access and refresh token.
type TokenPair struct {
	Access           string
	Refresh          string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Principal is the identity a validated token was issued to.
type Principal struct {
	IdentityID  string
	PhoneNumber string
	TokenID     string
}

// TokenProvider issues and validates JWT access and refresh tokens using RS256 or ES256 (private/public key).
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      clock.Clock
}

// NewTokenProvider returns a TokenProvider that signs with the given private key (RS256 or ES256).
// issuer and audience are set on claims and validated on parse.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		clock:      clock.System{},
	}
}

// WithClock returns a copy of p that reads time from clk.
func (p *TokenProvider) WithClock(clk clock.Clock) *TokenProvider {
	cp := *p
	cp.clock = clk
	return &cp
}

// IssuePair mints an access and a refresh token for the identity.
func (p *TokenProvider) IssuePair(identityID, phone string) (TokenPair, error) {
	now := p.clock.Now()
	access, accessExp, err := p.issue(identityID, phone, tokenTypeAccess, now, p.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := p.issue(identityID, phone, tokenTypeRefresh, now, p.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh, AccessExpiresAt: accessExp, RefreshExpiresAt: refreshExp}, nil
}

func (p *TokenProvider) issue(identityID, phone, tokenType string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   identityID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		PhoneNumber: phone,
		TokenType:   tokenType,
	}
	token, err := p.sign(claims)
	return token, expiresAt, err
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidToken
	}
	t := jwt.NewWithClaims(method, claims)
	return t.SignedString(p.privateKey)
}

// ValidateAccess parses an access token (signature, exp, iss, aud, token type).
func (p *TokenProvider) ValidateAccess(tokenString string) (Principal, error) {
	return p.validate(tokenString, tokenTypeAccess)
}

// ValidateRefresh parses a refresh token (signature, exp, iss, aud, token type).
func (p *TokenProvider) ValidateRefresh(tokenString string) (Principal, error) {
	return p.validate(tokenString, tokenTypeRefresh)
}

func (p *TokenProvider) validate(tokenString, tokenType string) (Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			return p.publicKey, nil
		}
		return nil, ErrInvalidToken
	},
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithTimeFunc(p.clock.Now),
	)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType || claims.Subject == "" {
		return Principal{}, ErrInvalidToken
	}
	return Principal{IdentityID: claims.Subject, PhoneNumber: claims.PhoneNumber, TokenID: claims.ID}, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
