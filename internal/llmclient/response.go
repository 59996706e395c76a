package llmclient

import (
	"github.com/tidwall/gjson"
)

// extractText pulls the provider-specific text path out of a raw JSON
// envelope and strips markdown fences. gjson tolerates a malformed or
// partial envelope by returning a zero Result rather than an error;
// extraction never panics, and an empty string means the caller treats
// the batch as malformed.
func extractText(rawJSON []byte, path string) string {
	result := gjson.GetBytes(rawJSON, path)
	if !result.Exists() {
		return ""
	}
	return stripMarkdownFence(result.String())
}

// gjsonInt reads an integer field, defaulting to 0 if absent.
func gjsonInt(rawJSON []byte, path string) int64 {
	return gjson.GetBytes(rawJSON, path).Int()
}

// UnwrapSingleKeyArray tolerates providers that force object-typed
// top-level JSON: if the top-level value is an object with exactly one
// array-valued field, return that array's raw JSON text; otherwise
// return text unchanged.
func UnwrapSingleKeyArray(text string) string {
	parsed := gjson.Parse(text)
	if !parsed.IsObject() {
		return text
	}
	var onlyValue gjson.Result
	count := 0
	parsed.ForEach(func(key, value gjson.Result) bool {
		count++
		if count > 1 {
			return false
		}
		onlyValue = value
		return true
	})
	if count != 1 || !onlyValue.IsArray() {
		return text
	}
	return onlyValue.Raw
}
