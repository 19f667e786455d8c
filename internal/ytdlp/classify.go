package ytdlp

import "strings"

// Class is the outcome category of one strategy attempt.
type Class string

const (
	ClassSuccess            Class = "success"
	ClassRateLimited        Class = "rate_limited"
	ClassForbidden          Class = "forbidden"
	ClassRestrictedProtocol Class = "restricted_protocol"
	ClassUnknown            Class = "unknown"
)

var (
	rateLimitSignatures = []string{
		"HTTP Error 429",
		"Too Many Requests",
		"Got error: 429",
		"status code 429",
	}
	forbiddenSignatures = []string{
		"HTTP Error 403",
		"Forbidden",
		"unable to download video data",
		"Got error: 403",
	}
)

// Classify maps an attempt's exit status and captured output to a Class.
// Precedence: success, rate limited, restricted protocol, forbidden, unknown.
func Classify(exitOK bool, output string) Class {
	switch {
	case exitOK:
		return ClassSuccess
	case containsAny(output, rateLimitSignatures):
		return ClassRateLimited
	case restrictedProtocol(output):
		return ClassRestrictedProtocol
	case containsAny(output, forbiddenSignatures):
		return ClassForbidden
	default:
		return ClassUnknown
	}
}

// Retryable reports whether the engine should continue with the next strategy.
func (c Class) Retryable() bool {
	switch c {
	case ClassRateLimited, ClassForbidden, ClassRestrictedProtocol:
		return true
	default:
		return false
	}
}

// restrictedProtocol reports the SABR streaming marker. It is checked apart from
// Classify because the marker can accompany a rate limit.
func restrictedProtocol(output string) bool {
	return strings.Contains(strings.ToLower(output), "sabr")
}

func containsAny(output string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(output, needle) {
			return true
		}
	}
	return false
}
