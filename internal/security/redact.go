package security

import "strings"

var sensitiveSubstrings = []string{
	"token",
	"password",
	"passwd",
	"pwd",
	"authorization",
	"apikey",
	"api_key",
	"secret",
	"credential",
	"cookie",
	"session",
	"jwt",
	"bearer",
	"otp",
	"verifier",
}

// sensitiveKeys match exactly after lowercasing.
var sensitiveKeys = map[string]struct{}{
	"code": {},
}

// allowList keeps collection options that only contain sensitive words.
var allowList = map[string]struct{}{
	"passwordauth":       {},
	"otpauth":            {},
	"identityfields":     {},
	"authrule":           {},
	"collectionid":       {},
	"collectionidorname": {},
}

// RedactArguments returns a deep copy of values with sensitive values replaced.
func RedactArguments(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	redacted := make(map[string]any, len(values))
	for key, value := range values {
		if isSensitiveKey(key) {
			redacted[key] = "***"
			continue
		}
		redacted[key] = redactValue(value)
	}
	return redacted
}

func redactValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return RedactArguments(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = redactValue(item)
		}
		return out
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(strings.TrimSpace(key))
	if _, ok := allowList[lower]; ok {
		return false
	}
	if _, ok := sensitiveKeys[lower]; ok {
		return true
	}
	for _, part := range sensitiveSubstrings {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}
