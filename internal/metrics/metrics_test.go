package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestInitAndRecord verifies registration and counting.
func TestInitAndRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Init(reg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	RecordVerify("granted")
	RecordVerify("granted")
	RecordVerify("denied")
	RecordGateCheck("blocked")
	RecordAuthFailure("bad_password")

	if got := testutil.ToFloat64(verifyTotal.Load().WithLabelValues("granted")); got != 2 {
		t.Errorf("expected 2 granted verifies, got %v", got)
	}
	if got := testutil.ToFloat64(verifyTotal.Load().WithLabelValues("denied")); got != 1 {
		t.Errorf("expected 1 denied verify, got %v", got)
	}
	if got := testutil.ToFloat64(gateChecksTotal.Load().WithLabelValues("blocked")); got != 1 {
		t.Errorf("expected 1 blocked gate check, got %v", got)
	}
	if got := testutil.ToFloat64(authFailuresTotal.Load().WithLabelValues("bad_password")); got != 1 {
		t.Errorf("expected 1 auth failure, got %v", got)
	}
}

// TestInitDuplicateRegistration verifies double registration is reported.
func TestInitDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Init(reg); err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	if err := Init(reg); err == nil {
		t.Error("expected error on duplicate registration")
	}
}

// TestRecordBeforeInit verifies recording is a no-op before initialization.
func TestRecordBeforeInit(t *testing.T) {
	// Fresh pointers are nil until Init stores the vectors; recording must
	// not panic either way.
	RecordVerify("granted")
	RecordGateCheck("blocked")
	RecordAuthFailure("bad_csrf")
}
