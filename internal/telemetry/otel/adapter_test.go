package otel

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"phone-otp-auth/backend/internal/telemetry/domain"
)

func TestNewEventEmitter_NilProvider_ReturnsNoop(t *testing.T) {
	em := NewEventEmitter(nil)
	if em == nil {
		t.Fatal("NewEventEmitter(nil) returned nil")
	}
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("noop Emit(ctx, nil): %v", err)
	}
	if err := em.Emit(context.Background(), &domain.AuthEvent{Type: domain.EventRegister}); err != nil {
		t.Errorf("noop Emit(ctx, event): %v", err)
	}
}

func TestEmit_NilEvent_ReturnsNil(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	em := NewEventEmitter(provider)
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(ctx, nil): %v", err)
	}
}

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	rec   otellog.Record
	calls int
}

func (r *recordCapture) Emit(_ context.Context, rec otellog.Record) {
	r.rec = rec
	r.calls++
}

func attrsOf(rec otellog.Record) map[string]string {
	attrs := make(map[string]string)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	return attrs
}

func TestEmit_AttributeAndBodyMapping(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	created := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	event := &domain.AuthEvent{
		ID:          "evt-1",
		Type:        domain.EventLoginFailure,
		IdentityID:  "id-1",
		PhoneNumber: "05551234567",
		Source:      "203.0.113.7",
		Attributes:  map[string]string{"reason": "bad_password"},
		CreatedAt:   created,
	}
	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rec := cap.rec

	if got := rec.Body().AsString(); got != "login_failure" {
		t.Errorf("body = %q, want login_failure", got)
	}
	if !rec.Timestamp().Equal(created) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), created)
	}
	if rec.Severity() != otellog.SeverityInfo2 {
		t.Errorf("severity = %v, want Info2", rec.Severity())
	}

	attrs := attrsOf(rec)
	want := map[string]string{
		"event_id": "evt-1", "event_type": "login_failure", "identity_id": "id-1",
		"phone_number": "05551234567", "source": "203.0.113.7", "attr.reason": "bad_password",
	}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attr %q = %q, want %q", k, attrs[k], v)
		}
	}
}

func TestEmit_PartialFields(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	if err := em.Emit(context.Background(), &domain.AuthEvent{Type: domain.EventBlocked, Source: "::1"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	attrs := attrsOf(cap.rec)
	if attrs["source"] != "::1" || attrs["event_type"] != "blocked" {
		t.Errorf("attributes = %v", attrs)
	}
	if _, ok := attrs["identity_id"]; ok {
		t.Error("identity_id should not be set for empty string")
	}
	if _, ok := attrs["phone_number"]; ok {
		t.Error("phone_number should not be set for empty string")
	}
	if cap.rec.Severity() != otellog.SeverityWarn {
		t.Errorf("severity = %v, want Warn", cap.rec.Severity())
	}
}

func TestEmit_ZeroTimestamp_SetsCurrentTime(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	before := time.Now().UTC()
	if err := em.Emit(context.Background(), &domain.AuthEvent{Type: domain.EventRegister}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	after := time.Now().UTC()
	ts := cap.rec.Timestamp()
	if ts.Before(before) || ts.After(after) {
		t.Errorf("timestamp = %v, should be between %v and %v", ts, before, after)
	}
}

func TestNewEventEmitterWithLogger_Nil(t *testing.T) {
	em := NewEventEmitterWithLogger(nil)
	if err := em.Emit(context.Background(), &domain.AuthEvent{Type: domain.EventRegister}); err != nil {
		t.Errorf("Emit: %v", err)
	}
}
