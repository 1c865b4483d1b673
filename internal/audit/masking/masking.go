package masking

import "strings"

const maskToken = "****"

var sensitiveKeys = map[string]bool{
	"password":      true,
	"new_password":  true,
	"token":         true,
	"session_token": true,
	"secret":        true,
	"api_key":       true,
	"webhook_url":   true,
	"smtp_password": true,
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

// MaskSensitiveKeys returns a copy of the input with values under credential
// keys redacted. Nested maps are walked; everything else passes through.
func MaskSensitiveKeys(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		masked[trimmedKey] = maskValue(trimmedKey, value)
	}
	return masked
}

func maskValue(key string, value any) any {
	if sensitiveKeys[strings.ToLower(key)] {
		if cast, ok := value.(string); ok {
			return MaskSecret(cast)
		}
		return maskToken
	}
	if cast, ok := value.(map[string]any); ok {
		return MaskSensitiveKeys(cast)
	}
	return value
}
