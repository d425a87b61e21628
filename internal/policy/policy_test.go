package policy

import (
	"testing"
)

func TestDefault(t *testing.T) {
	p := Default()

	if p.FingerprintTolerance != 0.90 {
		t.Errorf("expected tolerance 0.90, got %f", p.FingerprintTolerance)
	}
	if p.GraceDays != 3 {
		t.Errorf("expected grace days 3, got %d", p.GraceDays)
	}
	if p.AllowTrial {
		t.Error("expected trials disabled by default")
	}
	if p.TrialDays != 30 {
		t.Errorf("expected trial days 30, got %d", p.TrialDays)
	}
}

func TestEnvProviderDefaultsWhenUnset(t *testing.T) {
	p := EnvProvider{}.Current()
	if p != Default() {
		t.Errorf("expected defaults with no env set, got %+v", p)
	}
}

func TestEnvProviderReadsEnv(t *testing.T) {
	t.Setenv("FINGERPRINT_TOLERANCE", "0.75")
	t.Setenv("GRACE_DAYS", "7")
	t.Setenv("ALLOW_TRIAL", "true")
	t.Setenv("TRIAL_DAYS", "14")

	p := EnvProvider{}.Current()
	if p.FingerprintTolerance != 0.75 {
		t.Errorf("expected tolerance 0.75, got %f", p.FingerprintTolerance)
	}
	if p.GraceDays != 7 {
		t.Errorf("expected grace days 7, got %d", p.GraceDays)
	}
	if !p.AllowTrial {
		t.Error("expected trials enabled")
	}
	if p.TrialDays != 14 {
		t.Errorf("expected trial days 14, got %d", p.TrialDays)
	}
}

func TestEnvProviderRejectsOutOfRangeValues(t *testing.T) {
	t.Setenv("FINGERPRINT_TOLERANCE", "1.5")
	t.Setenv("GRACE_DAYS", "-1")
	t.Setenv("TRIAL_DAYS", "0")
	t.Setenv("ALLOW_TRIAL", "maybe")

	p := EnvProvider{}.Current()
	if p != Default() {
		t.Errorf("expected defaults for out-of-range values, got %+v", p)
	}
}

func TestStaticProvider(t *testing.T) {
	want := Policy{FingerprintTolerance: 0.5, GraceDays: 1, AllowTrial: true, TrialDays: 7}
	got := Static{Policy: want}.Current()
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}
