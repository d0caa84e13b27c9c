package engine

import (
	"strings"
	"unicode"
)

// SplitStatements splits a script into single statements on top-level semicolons.
// Quoted strings and identifiers, comments and the BEGIN ... END body of CREATE TRIGGER
// are kept intact. Statements holding only whitespace or comments are dropped.
func SplitStatements(script string) []string {
	var (
		res     []string
		start   int
		content bool // statement has something besides whitespace and comments

		words    []string // leading keywords of the current statement, upper case
		trigger  bool
		inBody   bool
		caseDeep int
	)

	flush := func(end int) {
		if content {
			res = append(res, strings.TrimSpace(script[start:end]))
		}
		start, content = end+1, false
		words, trigger, inBody, caseDeep = words[:0], false, false, 0
	}

	for i := 0; i < len(script); i++ {
		ch := script[i]
		switch {
		case ch == '-' && i+1 < len(script) && script[i+1] == '-':
			for i < len(script) && script[i] != '\n' {
				i++
			}
		case ch == '/' && i+1 < len(script) && script[i+1] == '*':
			end := strings.Index(script[i+2:], "*/")
			if end < 0 {
				i = len(script)
			} else {
				i += end + 3
			}
		case ch == '\'' || ch == '"' || ch == '`':
			content = true
			i = skipQuoted(script, i, ch)
		case ch == '[':
			content = true
			if end := strings.IndexByte(script[i:], ']'); end < 0 {
				i = len(script)
			} else {
				i += end
			}
		case ch == ';':
			if inBody {
				continue
			}
			flush(i)
		case isWordByte(ch):
			content = true
			j := i
			for j < len(script) && isWordByte(script[j]) {
				j++
			}
			w := strings.ToUpper(script[i:j])
			i = j - 1
			if len(words) < 4 {
				words = append(words, w)
				trigger = trigger || isCreateTrigger(words)
			}
			if !trigger {
				continue
			}
			switch {
			case w == "BEGIN" && !inBody:
				inBody = true
			case w == "CASE" && inBody:
				caseDeep++
			case w == "END" && inBody:
				if caseDeep > 0 {
					caseDeep--
				} else {
					inBody = false
				}
			}
		case !unicode.IsSpace(rune(ch)):
			content = true
		}
	}
	if start < len(script) {
		flush(len(script))
	}
	return res
}

// skipQuoted returns the index of the quote closing the one at i, doubled quotes escape.
func skipQuoted(s string, i int, q byte) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] != q {
			continue
		}
		if j+1 < len(s) && s[j+1] == q {
			j++
			continue
		}
		return j
	}
	return len(s)
}

func isWordByte(ch byte) bool {
	return ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch >= 0x80
}

func isCreateTrigger(words []string) bool {
	if len(words) < 2 || words[0] != "CREATE" {
		return false
	}
	switch words[1] {
	case "TRIGGER":
		return true
	case "TEMP", "TEMPORARY":
		return len(words) > 2 && words[2] == "TRIGGER"
	}
	return false
}
