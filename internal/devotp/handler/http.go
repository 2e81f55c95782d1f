// Package handler serves the dev-only /dev/otp endpoints.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"phone-otp-auth/backend/internal/devotp"
	"phone-otp-auth/backend/internal/otp"
	otpdomain "phone-otp-auth/backend/internal/otp/domain"
)

const devOTPNote = "DEV MODE ONLY"

// Regenerator overwrites the code of an outstanding challenge. *otp.Service implements it.
type Regenerator interface {
	Regenerate(ctx context.Context, phone string) (*otpdomain.Challenge, error)
}

// Handler reads codes from a devotp.Store. Only mounted in test mode.
type Handler struct {
	store devotp.Store
	regen Regenerator
}

// NewHandler returns a Handler. regen may be nil; then POST /dev/otp/regenerate is not mounted.
func NewHandler(store devotp.Store, regen Regenerator) *Handler {
	return &Handler{store: store, regen: regen}
}

// Register mounts the handler on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/dev/otp", h.GetOTP)
	if h.regen != nil {
		r.POST("/dev/otp/regenerate", h.Regenerate)
	}
}

// GetOTP returns the pending code for ?phone_number=. 404 if missing or expired.
func (h *Handler) GetOTP(c *gin.Context) {
	phone := c.Query("phone_number")
	if phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "phone_number is required"})
		return
	}
	code, ok := h.store.Get(c.Request.Context(), phone)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "OTP not found or expired"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"verification_code": code, "note": devOTPNote})
}

// Regenerate replaces the code of the pending challenge for ?phone_number= and returns the new one.
func (h *Handler) Regenerate(c *gin.Context) {
	phone := c.Query("phone_number")
	if phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "phone_number is required"})
		return
	}
	ch, err := h.regen.Regenerate(c.Request.Context(), phone)
	if errors.Is(err, otp.ErrNoChallenge) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "OTP not found or expired"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error."})
		return
	}
	h.store.Put(c.Request.Context(), phone, ch.Code, ch.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{"verification_code": ch.Code, "note": devOTPNote})
}
