package config

import (
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/vango-dev/precache/internal/errors"
)

// validateJSRegexps checks each expression as a JavaScript regular
// expression, reporting the option on failure. These options are evaluated
// by the service worker, not by Go.
func validateJSRegexps(option string, exprs []string) error {
	for _, expr := range exprs {
		if err := validateJSRegexp(option, expr); err != nil {
			return err
		}
	}
	return nil
}

func validateJSRegexp(option, expr string) error {
	if construct := nonJSConstruct(expr); construct != "" {
		return errors.New("E105").
			WithOption(option).
			WithDetail("Expression " + expr + " uses " + construct + ", which JavaScript regular expressions do not support.").
			WithSuggestion("Write the expression in JavaScript syntax; it is copied into the service worker as a regex literal")
	}
	if _, err := regexp2.Compile(expr, regexp2.ECMAScript); err != nil {
		return errors.New("E105").WithOption(option).Wrap(err)
	}
	return nil
}

// nonJSConstruct returns the first construct in expr that ECMAScript-mode
// compilation accepts but a browser rejects: inline flag groups such as (?i)
// or (?s:...), (?P<name>...), (?#...), (?>...), and the anchors \A \z \Z \G.
// It returns "" when there is none.
func nonJSConstruct(expr string) string {
	inClass := false
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch {
		case c == '\\':
			if i+1 < len(expr) && !inClass {
				switch expr[i+1] {
				case 'A', 'z', 'Z', 'G':
					return expr[i : i+2]
				}
			}
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
		case c == '(' && strings.HasPrefix(expr[i:], "(?"):
			rest := expr[i+2:]
			switch {
			case strings.HasPrefix(rest, ":"),
				strings.HasPrefix(rest, "="),
				strings.HasPrefix(rest, "!"),
				strings.HasPrefix(rest, "<="),
				strings.HasPrefix(rest, "<!"),
				strings.HasPrefix(rest, "<"):
			default:
				if end := strings.IndexAny(rest, ":)"); end >= 0 {
					return "(?" + rest[:end+1]
				}
				return "(?" + rest
			}
		}
	}
	return ""
}
