// Package handler serves the phone auth JSON endpoints.
package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"phone-otp-auth/backend/internal/identity/service"
	"phone-otp-auth/backend/internal/server/middleware"
)

// Response texts. Invalid code and invalid credentials never say which check failed.
const (
	msgCodeSent          = "Verification code sent."
	msgVerified          = "Verification successful. Please set your password."
	msgPasswordSet       = "Password set successfully."
	msgProfileUpdated    = "Profile updated successfully."
	msgTooManyAttempts   = "Too many failed attempts. Please try again later."
	msgAlreadySent       = "Verification code already sent for this phone number."
	msgAlreadyRegistered = "This phone number is already registered."
	msgInvalidCode       = "Invalid code or code expired."
	msgInvalidCreds      = "Invalid credentials."
	msgVerifyMissing     = "Phone number and code are required."
	msgLoginMissing      = "Phone number and password are required."
	msgEmailInUse        = "This email is already in use."
	msgFieldRequired     = "This field is required."
	msgMalformedBody     = "Malformed request body."
	msgNotAuthenticated  = "Authentication credentials were not provided."
	msgUserNotFound      = "User not found"
	msgInternal          = "Internal server error."
)

// AuthFlow is the service behind the handler.
type AuthFlow interface {
	Register(ctx context.Context, phone, source string) (*service.RegisterResult, error)
	VerifyCode(ctx context.Context, phone, code, source string) (*service.AuthResult, error)
	Login(ctx context.Context, phone, password, source string) (*service.AuthResult, error)
	SetPassword(ctx context.Context, identityID, password string) error
	CompleteProfile(ctx context.Context, identityID string, in service.ProfileInput) error
}

// Handler maps HTTP requests onto AuthFlow.
type Handler struct {
	svc    AuthFlow
	logger *zap.Logger
}

// NewHandler returns a Handler over svc.
func NewHandler(svc AuthFlow, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Mount registers the public endpoints on public and the session-bound ones on protected.
func (h *Handler) Mount(public, protected gin.IRoutes) {
	public.POST("/register", h.Register)
	public.POST("/verify", h.Verify)
	public.POST("/login", h.Login)
	protected.POST("/set-password", h.SetPassword)
	protected.POST("/complete-profile", h.CompleteProfile)
}

type registerRequest struct {
	PhoneNumber string `json:"phone_number"`
}

type verifyRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
}

type loginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

type passwordRequest struct {
	Password *string `json:"password"`
}

type profileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
}

// Register handles POST /register.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.svc.Register(c.Request.Context(), req.PhoneNumber, clientIP(c))
	if err != nil {
		h.authError(c, err, "")
		return
	}
	body := gin.H{"detail": msgCodeSent}
	if res.Code != "" {
		body["verification_code"] = res.Code
	}
	c.JSON(http.StatusOK, body)
}

// Verify handles POST /verify.
func (h *Handler) Verify(c *gin.Context) {
	var req verifyRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.svc.VerifyCode(c.Request.Context(), req.PhoneNumber, req.Code, clientIP(c))
	if err != nil {
		h.authError(c, err, msgVerifyMissing)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"detail":  msgVerified,
		"refresh": res.RefreshToken,
		"access":  res.AccessToken,
	})
}

// Login handles POST /login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req.PhoneNumber, req.Password, clientIP(c))
	if err != nil {
		h.authError(c, err, msgLoginMissing)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"refresh": res.RefreshToken,
		"access":  res.AccessToken,
	})
}

// SetPassword handles POST /set-password. Requires a bearer session.
func (h *Handler) SetPassword(c *gin.Context) {
	p, ok := middleware.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": msgNotAuthenticated})
		return
	}
	var req passwordRequest
	if !h.bind(c, &req) {
		return
	}
	if req.Password == nil {
		fieldErrors(c, "password", msgFieldRequired)
		return
	}
	if err := h.svc.SetPassword(c.Request.Context(), p.IdentityID, *req.Password); err != nil {
		h.profileError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": msgPasswordSet})
}

// CompleteProfile handles POST /complete-profile. Requires a bearer session.
func (h *Handler) CompleteProfile(c *gin.Context) {
	p, ok := middleware.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": msgNotAuthenticated})
		return
	}
	var req profileRequest
	if !h.bind(c, &req) {
		return
	}
	in := service.ProfileInput{FirstName: req.FirstName, LastName: req.LastName, Email: req.Email}
	if err := h.svc.CompleteProfile(c.Request.Context(), p.IdentityID, in); err != nil {
		h.profileError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": msgProfileUpdated})
}

// bind decodes the JSON body into dst. An empty body leaves dst zero so missing fields
// get their own messages.
func (h *Handler) bind(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	c.JSON(http.StatusBadRequest, gin.H{"detail": msgMalformedBody})
	return false
}

// authError maps AuthFlow errors of register, verify and login to {detail} responses.
func (h *Handler) authError(c *gin.Context, err error, missingMsg string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"detail": ve.Message})
	case errors.Is(err, service.ErrTooManyAttempts):
		c.JSON(http.StatusForbidden, gin.H{"detail": msgTooManyAttempts})
	case errors.Is(err, service.ErrChallengeAlreadySent):
		c.JSON(http.StatusBadRequest, gin.H{"detail": msgAlreadySent})
	case errors.Is(err, service.ErrPhoneAlreadyRegistered):
		c.JSON(http.StatusBadRequest, gin.H{"detail": msgAlreadyRegistered})
	case errors.Is(err, service.ErrInvalidOrExpiredCode):
		c.JSON(http.StatusBadRequest, gin.H{"detail": msgInvalidCode})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"detail": msgInvalidCreds})
	case errors.Is(err, service.ErrMissingCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"detail": missingMsg})
	default:
		h.internal(c, err)
	}
}

// profileError maps SetPassword and CompleteProfile errors to {errors} responses.
func (h *Handler) profileError(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		fieldErrors(c, ve.Field, ve.Message)
	case errors.Is(err, service.ErrEmailInUse):
		fieldErrors(c, "email", msgEmailInUse)
	case errors.Is(err, service.ErrIdentityNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"detail": msgUserNotFound})
	default:
		h.internal(c, err)
	}
}

func (h *Handler) internal(c *gin.Context, err error) {
	h.logger.Error("auth request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"detail": msgInternal})
}

func fieldErrors(c *gin.Context, field, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{field: []string{message}}})
}

// clientIP prefers the address ClientIP middleware resolved, falling back to gin's.
func clientIP(c *gin.Context) string {
	if ip := middleware.ClientIPFromContext(c.Request.Context()); ip != "" {
		return ip
	}
	return c.ClientIP()
}
