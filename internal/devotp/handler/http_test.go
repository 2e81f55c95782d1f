package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"phone-otp-auth/backend/internal/clock"
	"phone-otp-auth/backend/internal/devotp"
	"phone-otp-auth/backend/internal/otp"
	otprepo "phone-otp-auth/backend/internal/otp/repository"
)

func newRouter(store devotp.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(store, nil).Register(r)
	return r
}

func TestGetOTP(t *testing.T) {
	store := devotp.NewMemoryStore(nil)
	store.Put(context.Background(), "09123456789", "482913", time.Now().Add(time.Minute))
	r := newRouter(store)

	testCases := []struct {
		name   string
		query  string
		status int
		code   string
	}{
		{"found", "?phone_number=09123456789", http.StatusOK, "482913"},
		{"missing param", "", http.StatusBadRequest, ""},
		{"unknown phone", "?phone_number=09000000000", http.StatusNotFound, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dev/otp"+tc.query, nil))
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d", w.Code, tc.status)
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["verification_code"] != tc.code {
				t.Errorf("verification_code = %q, want %q", body["verification_code"], tc.code)
			}
			if tc.status == http.StatusOK && body["note"] != devOTPNote {
				t.Errorf("note = %q", body["note"])
			}
		})
	}
}

func TestRegenerate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	src := otp.StaticSource("111111")
	svc := otp.NewService(otprepo.NewMemoryRepository(), clk, &src)
	store := devotp.NewMemoryStore(clk)
	ch, err := svc.Issue(ctx, "09123456789")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	store.Put(ctx, ch.PhoneNumber, ch.Code, ch.ExpiresAt)

	r := gin.New()
	NewHandler(store, svc).Register(r)
	src = "222222"

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/dev/otp/regenerate?phone_number=09123456789", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["verification_code"] != "222222" {
		t.Errorf("verification_code = %q, want 222222", body["verification_code"])
	}
	if code, _ := store.Get(ctx, "09123456789"); code != "222222" {
		t.Errorf("stored code = %q, want 222222", code)
	}
	if ok, _ := svc.Verify(ctx, "09123456789", "111111"); ok {
		t.Error("old code should no longer verify")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/dev/otp/regenerate?phone_number=09000000000", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown phone status = %d, want 404", w.Code)
	}
}

func TestRegenerate_NotMountedWithoutService(t *testing.T) {
	r := newRouter(devotp.NewMemoryStore(nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/dev/otp/regenerate?phone_number=09123456789", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
