package strings

import (
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// ToSnakeCase converts CamelCase to snake_case
// Handles acronyms properly (HTTPRequest -> http_request)
func ToSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				// Add underscore before uppercase letter if:
				// 1. Previous char is lowercase
				// 2. Next char is lowercase (for acronyms like HTTPRequest -> http_request)
				if unicode.IsLower(prev) {
					result.WriteRune('_')
				} else if i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
					result.WriteRune('_')
				}
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// ToCamelCase converts snake_case to CamelCase (line_items -> LineItems)
func ToCamelCase(s string) string {
	var result strings.Builder
	upper := true
	for _, r := range s {
		if r == '_' || r == '-' || r == ' ' {
			upper = true
			continue
		}
		if upper {
			result.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Classify turns a plural attribute name into a type name (employees -> Employee)
func Classify(s string) string {
	return ToCamelCase(inflection.Singular(s))
}

// Pluralize returns the plural form of a word
func Pluralize(s string) string {
	return inflection.Plural(s)
}

// ToTableName converts a type name to a snake_case plural table name
func ToTableName(name string) string {
	return inflection.Plural(ToSnakeCase(name))
}
