// Package pattern compiles the expressions that select source entries.
//
// A pattern is matched against the whole path of an entry relative to its
// source base, using '/' as separator, so "*.txt"-style globs and regular
// expressions both behave as full-string matches.
package pattern

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrEmpty is returned when an empty expression is compiled.
var ErrEmpty = errors.New("empty pattern")

// Compile anchors expr and compiles it as a regular expression.
func Compile(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, ErrEmpty
	}
	re, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", expr, err)
	}
	return re, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(expr string) *regexp.Regexp {
	re, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return re
}

// FromGlob converts a shell glob into an anchored regular expression.
//
// '*' and '?' do not cross directory boundaries, "**" does, and "**/"
// also matches zero directories. Character classes use '!' for negation.
func FromGlob(glob string) (*regexp.Regexp, error) {
	if glob == "" {
		return nil, ErrEmpty
	}
	return Compile(globToRegex(filepath.ToSlash(glob)))
}

// Match reports whether rel, a path relative to a source base, matches re.
func Match(re *regexp.Regexp, rel string) bool {
	return re.MatchString(filepath.ToSlash(rel))
}

//nolint:gocyclo,revive // cognitive-complexity: character-by-character glob parser
func globToRegex(glob string) string {
	var b strings.Builder
	for i := 0; i < len(glob); {
		c := glob[i]
		switch c {
		case '*':
			if strings.HasPrefix(glob[i:], "**/") {
				b.WriteString("(?:.*/)?")
				i += 3
				continue
			}
			if strings.HasPrefix(glob[i:], "**") {
				b.WriteString(".*")
				i += 2
				continue
			}
			b.WriteString("[^/]*")
			i++
		case '?':
			b.WriteString("[^/]")
			i++
		case '[':
			end := classEnd(glob, i)
			if end < 0 {
				b.WriteString(`\[`)
				i++
				continue
			}
			cls := glob[i+1 : end]
			if strings.HasPrefix(cls, "!") {
				cls = "^" + cls[1:]
			}
			b.WriteString("[" + cls + "]")
			i = end + 1
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}
	return b.String()
}

// classEnd returns the index of the ']' closing the class opened at
// glob[start], or -1. A ']' directly after the opener (or after '!') is a
// literal member.
func classEnd(glob string, start int) int {
	j := start + 1
	if j < len(glob) && glob[j] == '!' {
		j++
	}
	if j < len(glob) && glob[j] == ']' {
		j++
	}
	for ; j < len(glob); j++ {
		if glob[j] == ']' {
			return j
		}
	}
	return -1
}
