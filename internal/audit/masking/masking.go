package masking

import "strings"

const maskToken = "****"

// sensitiveKeys are metadata keys whose values never reach the audit table in clear.
var sensitiveKeys = map[string]struct{}{
	"email":    {},
	"token":    {},
	"password": {},
	"secret":   {},
}

// MaskSecret redacts a secret while keeping a minimal suffix for auditing.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(value string) string {
	trimmed := strings.TrimSpace(value)
	at := strings.LastIndex(trimmed, "@")
	if at <= 0 {
		return MaskSecret(trimmed)
	}
	return trimmed[:1] + maskToken + trimmed[at:]
}

// MaskMetadata returns a copy of the input with sensitive keys masked.
// Nested maps are walked.
func MaskMetadata(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		masked[trimmedKey] = maskValue(trimmedKey, value)
	}
	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(key string, value any) any {
	switch cast := value.(type) {
	case map[string]any:
		return MaskMetadata(cast)
	case string:
		if !isSensitive(key) {
			return cast
		}
		if strings.Contains(strings.ToLower(key), "email") {
			return MaskEmail(cast)
		}
		return MaskSecret(cast)
	default:
		return value
	}
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	if _, ok := sensitiveKeys[lower]; ok {
		return true
	}
	for k := range sensitiveKeys {
		if strings.HasSuffix(lower, "_"+k) {
			return true
		}
	}
	return false
}
