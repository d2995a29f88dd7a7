// internal/rowfilter/validate.go
package rowfilter

import (
	"fmt"
	"strings"
	"unicode"
)

// Validate rejects conditions outside the comparison-and-logic subset:
// no member access, arithmetic or function calls. String literals are not
// inspected, so step names may contain any character.
func Validate(cond string) error {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return nil
	}

	code, err := stripLiterals(cond)
	if err != nil {
		return err
	}

	illegalChars := []rune{'{', '}', ';', ':', '?', '@', '#', '$', '\\'}
	for _, ch := range illegalChars {
		if strings.ContainsRune(code, ch) {
			return fmt.Errorf("illegal character %q", ch)
		}
	}

	if strings.Contains(code, ".") {
		return fmt.Errorf("dot access is not allowed")
	}

	illegalOps := []string{"+", "-", "*", "/", "%"}
	for _, op := range illegalOps {
		if strings.Contains(code, op) {
			return fmt.Errorf("arithmetic operator %q is not allowed", op)
		}
	}

	for i := 0; i < len(code); i++ {
		if code[i] != '(' {
			continue
		}
		j := i - 1
		for j >= 0 && unicode.IsSpace(rune(code[j])) {
			j--
		}
		if j < 0 || !(unicode.IsLetter(rune(code[j])) || unicode.IsDigit(rune(code[j])) || code[j] == '_') {
			continue
		}
		k := j
		for k >= 0 && (unicode.IsLetter(rune(code[k])) || unicode.IsDigit(rune(code[k])) || code[k] == '_') {
			k--
		}
		ident := code[k+1 : j+1]
		if !wordOperators[ident] {
			return fmt.Errorf("function calls are not allowed (found %q(...))", ident)
		}
	}

	return nil
}

// wordOperators may legally precede a parenthesis.
var wordOperators = map[string]bool{
	"and": true, "or": true, "not": true, "in": true,
	"matches": true, "contains": true, "startsWith": true, "endsWith": true,
}

// stripLiterals replaces the body of every quoted literal with nothing,
// keeping the quotes.
func stripLiterals(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '"' && c != '\'' && c != '`' {
			b.WriteByte(c)
			continue
		}
		quote := c
		b.WriteByte(quote)
		i++
		for ; i < len(s) && s[i] != quote; i++ {
			if s[i] == '\\' && quote != '`' {
				i++
			}
		}
		if i >= len(s) {
			return "", fmt.Errorf("unterminated string literal")
		}
		b.WriteByte(quote)
	}
	return b.String(), nil
}
