package utils

import (
	"strings"
	"unicode"
)

// ToSnakeCase converts a camelCase string to snake_case
func ToSnakeCase(s string) string {
	if s == "" {
		return s
	}

	var result strings.Builder
	result.Grow(len(s) + 5)

	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				result.WriteRune('_')
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// ToCamelCase converts a snake_case key to camelCase.
// Keys without an underscore are returned unchanged. Segments after the first
// are title cased, except segments that are already fully upper case, which
// keep their underscore and casing ("user_ID" stays "user_ID").
func ToCamelCase(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}

	parts := strings.Split(s, "_")

	var result strings.Builder
	result.Grow(len(s))
	result.WriteString(parts[0])

	for _, part := range parts[1:] {
		switch {
		case part == "":
			// empty segment from a doubled or trailing underscore, dropped
		case strings.ToUpper(part) == part:
			result.WriteByte('_')
			result.WriteString(part)
		default:
			result.WriteString(title(part))
		}
	}

	return result.String()
}

// ToPascalCase converts string to PascalCase
func ToPascalCase(s string) string {
	if s == "" {
		return s
	}

	if strings.Contains(s, "_") {
		var result strings.Builder
		for _, part := range strings.Split(s, "_") {
			if part != "" {
				result.WriteString(title(part))
			}
		}
		return result.String()
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// title upper-cases the first rune and lower-cases the rest
func title(s string) string {
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// Pluralize adds 's' to make a word plural (simple implementation)
func Pluralize(word string) string {
	if word == "" {
		return word
	}

	word = strings.ToLower(word)

	if strings.HasSuffix(word, "s") || strings.HasSuffix(word, "x") ||
		strings.HasSuffix(word, "z") || strings.HasSuffix(word, "ch") ||
		strings.HasSuffix(word, "sh") {
		return word + "es"
	}

	if strings.HasSuffix(word, "y") && len(word) > 1 {
		prev := rune(word[len(word)-2])
		if !isVowel(prev) {
			return word[:len(word)-1] + "ies"
		}
	}

	if strings.HasSuffix(word, "fe") {
		return word[:len(word)-2] + "ves"
	}

	if strings.HasSuffix(word, "f") {
		return word[:len(word)-1] + "ves"
	}

	return word + "s"
}

func isVowel(r rune) bool {
	switch unicode.ToLower(r) {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	default:
		return false
	}
}
