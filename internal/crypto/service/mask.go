package service

import (
	"regexp"
	"strconv"
	"strings"
)

// maskPlaceholderRe matches the {firstN} and {lastN} placeholders recognized
// in registry mask patterns, e.g. "****{last4}" or "{first2}***{last2}".
var maskPlaceholderRe = regexp.MustCompile(`\{(first|last)(\d+)\}`)

// maskRune is the character used to redact hidden portions of a value.
const maskRune = "*"

// Mask redacts a value keeping only the last visibleSuffixLen characters.
// Independent of encryption state; operates on whatever string it is given.
func Mask(value string, visibleSuffixLen int) string {
	runes := []rune(value)
	if visibleSuffixLen <= 0 || len(runes) <= visibleSuffixLen {
		return strings.Repeat(maskRune, len(runes))
	}
	hidden := len(runes) - visibleSuffixLen
	return strings.Repeat(maskRune, hidden) + string(runes[hidden:])
}

// MaskMiddle redacts the middle of a value, keeping prefixLen leading and
// suffixLen trailing characters visible. If the value is too short to hide
// anything it is fully redacted.
func MaskMiddle(value string, prefixLen, suffixLen int) string {
	runes := []rune(value)
	if prefixLen < 0 {
		prefixLen = 0
	}
	if suffixLen < 0 {
		suffixLen = 0
	}
	if len(runes) <= prefixLen+suffixLen {
		return strings.Repeat(maskRune, len(runes))
	}
	hidden := len(runes) - prefixLen - suffixLen
	return string(runes[:prefixLen]) + strings.Repeat(maskRune, hidden) + string(runes[len(runes)-suffixLen:])
}

// ApplyMaskPattern renders a value through a registry mask pattern. Literal
// characters in the pattern are kept as-is; {firstN} and {lastN} placeholders
// expand to the corresponding slice of the value. An empty pattern falls back
// to keeping the last four characters.
func ApplyMaskPattern(value, pattern string) string {
	if value == "" {
		return ""
	}
	if pattern == "" {
		return Mask(value, 4)
	}

	runes := []rune(value)
	return maskPlaceholderRe.ReplaceAllStringFunc(pattern, func(match string) string {
		groups := maskPlaceholderRe.FindStringSubmatch(match)
		n, err := strconv.Atoi(groups[2])
		if err != nil || n <= 0 {
			return ""
		}
		if n > len(runes) {
			n = len(runes)
		}
		if groups[1] == "first" {
			return string(runes[:n])
		}
		return string(runes[len(runes)-n:])
	})
}
