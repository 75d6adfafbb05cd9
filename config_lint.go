package authshift

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

/*
====================================
CONFIG LINT
====================================
*/

// LintSeverity ranks lint findings. Severities are ordered, so callers can
// compare them directly when filtering.
type LintSeverity int

const (
	LintLow LintSeverity = iota + 1
	LintMedium
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintLow:
		return "LOW"
	case LintMedium:
		return "MEDIUM"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is a single finding from [Config.Lint].
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintWarnings holds the findings from [Config.Lint] in the order the checks
// ran.
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	codes := make([]string, 0, len(ws))
	for _, w := range ws {
		codes = append(codes, w.Code)
	}
	return codes
}

// BySeverity returns the warnings at or above min.
func (ws LintWarnings) BySeverity(min LintSeverity) LintWarnings {
	var out LintWarnings
	for _, w := range ws {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError collapses the warnings at or above min into a single error, or nil
// when there are none. Intended as a deploy gate:
//
//	if err := cfg.Lint().AsError(authshift.LintHigh); err != nil {
//		log.Fatal(err)
//	}
func (ws LintWarnings) AsError(min LintSeverity) error {
	filtered := ws.BySeverity(min)
	if len(filtered) == 0 {
		return nil
	}
	parts := make([]string, 0, len(filtered))
	for _, w := range filtered {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return errors.New("config lint: " + strings.Join(parts, "; "))
}

// Lint reports configuration choices that are valid but likely unwise.
// Unlike [Config.Validate] it never blocks Build; callers decide what to do
// with the findings, typically logging them or gating deploys with
// [LintWarnings.AsError].
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings

	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{
			Code:     code,
			Severity: sev,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	if c.Token.Leeway > time.Minute {
		add("leeway_large", LintMedium,
			"clock leeway of %s extends every token's effective lifetime", c.Token.Leeway)
	}
	if c.Token.AccessTTL > time.Hour {
		add("access_ttl_long", LintMedium,
			"access tokens live %s; revocation only takes effect at expiry", c.Token.AccessTTL)
	}
	if c.Refresh.TTL > 90*24*time.Hour {
		add("refresh_ttl_long", LintMedium,
			"refresh records live %s; a stolen token stays usable for the full window", c.Refresh.TTL)
	}

	if !c.Refresh.Throttle.Enabled {
		add("rate_limits_disabled", LintHigh,
			"refresh throttling is off; secret guessing is limited only by network speed")
	} else if !c.Refresh.Throttle.EnableIPThrottle {
		add("ip_throttle_disabled", LintLow,
			"refresh attempts are throttled per record but not per client IP")
	}

	if !c.Audit.Enabled {
		add("audit_disabled", LintLow,
			"no audit trail; incident forensics will have nothing to work with")
	}
	if c.Token.SigningMethod == "" || c.Token.SigningMethod == "hs256" {
		add("signing_hs256", LintLow,
			"HS256 is acceptable; HS512 widens the margin at negligible cost")
	}

	if c.Mode != ModeLegacyOnly && !c.Rollout.Enabled {
		add("rollout_disabled", LintMedium,
			"mode %s with rollout disabled sends every request down the legacy path", c.Mode)
	}
	if c.Mode == ModeTokenOnly && c.Rollout.Enabled && c.Rollout.Percent < 100 {
		add("tokenonly_partial_rollout", LintHigh,
			"token-only mode with a %d%% rollout locks excluded users out entirely", c.Rollout.Percent)
	}
	if c.Rollout.Enabled && c.Rollout.Percent > 0 && c.Rollout.Percent < 100 && c.Rollout.Salt == "" {
		add("rollout_salt_empty", LintLow,
			"partial rollout with an empty salt makes cohort assignment guessable")
	}

	return ws
}
