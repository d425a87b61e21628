// Package policy supplies the tunable activation thresholds.
package policy

import (
	"os"
	"strconv"
	"strings"
)

// Policy holds the thresholds governing activation, drift tolerance, and trials.
type Policy struct {
	// FingerprintTolerance is the minimum similarity score treated as the
	// same device, in [0,1].
	FingerprintTolerance float64 `json:"fingerprint_tolerance"`
	// GraceDays is how many days a device may fail the tolerance check
	// before it is blocked.
	GraceDays int `json:"grace_days"`
	// AllowTrial enables auto-provisioning of trial licenses for unknown keys.
	AllowTrial bool `json:"allow_trial"`
	// TrialDays is the lifetime of an auto-provisioned trial.
	TrialDays int `json:"trial_days"`
}

// Default returns the built-in policy values.
func Default() Policy {
	return Policy{
		FingerprintTolerance: 0.90,
		GraceDays:            3,
		AllowTrial:           false,
		TrialDays:            30,
	}
}

// Provider supplies the current policy. Implementations must be cheap to call:
// services read the policy on every request rather than caching it.
type Provider interface {
	Current() Policy
}

// EnvProvider reads the policy from environment variables on every call,
// falling back to defaults for unset or invalid values.
type EnvProvider struct{}

// Current implements Provider.
func (EnvProvider) Current() Policy {
	p := Default()

	if v := getEnvFloat("FINGERPRINT_TOLERANCE", p.FingerprintTolerance); v >= 0 && v <= 1 {
		p.FingerprintTolerance = v
	}
	if v := getEnvInt("GRACE_DAYS", p.GraceDays); v >= 0 {
		p.GraceDays = v
	}
	p.AllowTrial = getEnvBool("ALLOW_TRIAL", p.AllowTrial)
	if v := getEnvInt("TRIAL_DAYS", p.TrialDays); v > 0 {
		p.TrialDays = v
	}

	return p
}

// Static always returns a fixed policy. Intended for tests.
type Static struct {
	Policy Policy
}

// Current implements Provider.
func (s Static) Current() Policy {
	return s.Policy
}

// getEnvFloat reads a float from an environment variable, returning the default if unset or invalid.
func getEnvFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

// getEnvInt reads an integer from an environment variable, returning the default if unset or invalid.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvBool reads a boolean from an environment variable, returning the default if unset or invalid.
func getEnvBool(key string, defaultVal bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultVal
	}
}
