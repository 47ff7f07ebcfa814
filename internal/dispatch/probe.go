package dispatch

import (
	"os"
	"runtime"
	"strings"
)

// AccessibilityEnv overrides the accessibility probe.
const AccessibilityEnv = "AUTOCLICKER_ACCESSIBILITY"

// Status enumerates coarse permission results for synthetic input.
type Status string

const (
	StatusUnknown        Status = "unknown"
	StatusGranted        Status = "granted"
	StatusDenied         Status = "denied"
	StatusPromptRequired Status = "prompt"
	StatusUnavailable    Status = "unavailable"
)

// ProbeResult is the outcome of an accessibility probe.
type ProbeResult struct {
	Status   Status
	Message  string
	Guidance string
}

// Allowed reports whether synthetic input may be attempted.
// Prompt and unknown states are allowed: the OS asks on first use.
func (p ProbeResult) Allowed() bool {
	return p.Status != StatusDenied && p.Status != StatusUnavailable
}

// LookupEnvFunc exposes environment probing for testability.
type LookupEnvFunc func(string) (string, bool)

// ProbeAccessibility reports whether the host lets this process synthesize
// mouse input. lookup defaults to os.LookupEnv.
func ProbeAccessibility(lookup LookupEnvFunc) ProbeResult {
	return probe(lookup, runtime.GOOS)
}

func probe(lookup LookupEnvFunc, goos string) ProbeResult {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if value, ok := lookup(AccessibilityEnv); ok {
		return interpretFlag(value)
	}
	switch goos {
	case "darwin":
		return ProbeResult{
			Status:   StatusPromptRequired,
			Message:  "accessibility trust required",
			Guidance: "allow the terminal under System Settings > Privacy & Security > Accessibility",
		}
	case "windows", "linux":
		return ProbeResult{Status: StatusGranted, Message: "no accessibility gate on " + goos}
	default:
		return ProbeResult{Status: StatusUnavailable, Message: "synthetic input unsupported on " + goos}
	}
}

func interpretFlag(value string) ProbeResult {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "granted", "allow", "allowed", "yes", "true":
		return ProbeResult{Status: StatusGranted, Message: "accessibility pre-authorised via env override"}
	case "denied", "no", "false", "blocked":
		return ProbeResult{
			Status:   StatusDenied,
			Message:  "accessibility denied via env override",
			Guidance: "unset " + AccessibilityEnv + " or set it to granted",
		}
	case "prompt", "ask":
		return ProbeResult{Status: StatusPromptRequired, Message: "accessibility will prompt at runtime"}
	case "unavailable", "unsupported":
		return ProbeResult{Status: StatusUnavailable, Message: "accessibility unavailable via env override"}
	default:
		return ProbeResult{Status: StatusUnknown, Message: "accessibility state unknown"}
	}
}
