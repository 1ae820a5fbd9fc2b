package format

import (
	"strings"
	"unicode"
)

var keywords = map[string]bool{
	"ALL": true, "AND": true, "AS": true, "ASC": true, "BETWEEN": true, "BY": true,
	"CASE": true, "CAST": true, "CROSS": true, "DESC": true, "DISTINCT": true, "ELSE": true,
	"END": true, "EXCEPT": true, "EXISTS": true, "FALSE": true, "FROM": true, "FULL": true,
	"GROUP": true, "HAVING": true, "ILIKE": true, "IN": true, "INNER": true, "INTERSECT": true,
	"INTERVAL": true, "IS": true, "JOIN": true, "LEFT": true, "LIKE": true, "LIMIT": true,
	"NATURAL": true, "NOT": true, "NULL": true, "OFFSET": true, "ON": true, "OR": true,
	"ORDER": true, "OUTER": true, "OVER": true, "PARTITION": true, "QUALIFY": true, "RIGHT": true,
	"SELECT": true, "THEN": true, "TRUE": true, "UNION": true, "USING": true, "WHEN": true,
	"WHERE": true, "WINDOW": true, "WITH": true,
}

// Clause keywords that start a new line when they appear outside parentheses.
var clauses = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "GROUP": true, "ORDER": true, "HAVING": true,
	"LIMIT": true, "OFFSET": true, "UNION": true, "EXCEPT": true, "INTERSECT": true,
	"QUALIFY": true, "WINDOW": true, "JOIN": true, "LEFT": true, "RIGHT": true, "INNER": true,
	"FULL": true, "CROSS": true, "NATURAL": true,
}

var joinModifiers = map[string]bool{
	"LEFT": true, "RIGHT": true, "INNER": true, "FULL": true, "CROSS": true, "NATURAL": true, "OUTER": true,
}

const selectIndent = "       "

type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenSpace
	tokenQuoted
	tokenComment
	tokenBlockComment
	tokenSymbol
)

type token struct {
	kind tokenKind
	text string
}

// SQL upper-cases keywords and puts each top-level clause on its own line.
// Select lists break after every top-level comma and boolean conditions
// in WHERE and HAVING break before AND/OR. Text inside quotes, comments and
// parentheses is left as written apart from keyword case.
func SQL(query string) string {
	tokens := tokenize(strings.TrimSpace(query))
	var out strings.Builder
	depth := 0
	clause := ""
	prevWord := ""
	inBetween := false
	skipSpace := false

	newline := func(indent string) {
		trimmed := strings.TrimRight(out.String(), " ")
		out.Reset()
		out.WriteString(trimmed)
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(indent)
		skipSpace = true
	}

	for i, tok := range tokens {
		switch tok.kind {
		case tokenSpace:
			if skipSpace || out.Len() == 0 {
				continue
			}
			out.WriteByte(' ')
			continue
		case tokenComment:
			out.WriteString(tok.text)
			newline("")
			continue
		case tokenQuoted, tokenBlockComment:
			out.WriteString(tok.text)
		case tokenSymbol:
			switch tok.text {
			case "(":
				depth++
			case ")":
				if depth > 0 {
					depth--
				}
			}
			out.WriteString(tok.text)
			if tok.text == "," && depth == 0 && clause == "SELECT" {
				newline(selectIndent)
				continue
			}
		case tokenWord:
			upper := strings.ToUpper(tok.text)
			text := tok.text
			if keywords[upper] {
				text = upper
			}
			if depth == 0 {
				switch {
				case clauses[upper] && startsClause(upper, prevWord, tokens[i+1:]):
					newline("")
					clause = upper
				case (upper == "AND" || upper == "OR") && (clause == "WHERE" || clause == "HAVING") && !inBetween:
					newline("  ")
				}
				if upper == "BETWEEN" {
					inBetween = true
				} else if upper == "AND" {
					inBetween = false
				}
			}
			out.WriteString(text)
			prevWord = upper
		}
		skipSpace = false
	}
	return strings.TrimSpace(out.String())
}

func startsClause(word, prevWord string, rest []token) bool {
	if next := nextSignificant(rest); next != nil && next.text == "(" {
		return false
	}
	switch word {
	case "JOIN":
		return !joinModifiers[prevWord]
	case "LEFT", "RIGHT", "INNER", "FULL", "CROSS":
		return prevWord != "NATURAL"
	case "ORDER":
		return prevWord != "WITHIN"
	}
	return true
}

func nextSignificant(tokens []token) *token {
	for i := range tokens {
		if tokens[i].kind != tokenSpace {
			return &tokens[i]
		}
	}
	return nil
}

func tokenize(input string) []token {
	var tokens []token
	runes := []rune(input)
	for i := 0; i < len(runes); {
		r := runes[i]
		start := i
		switch {
		case unicode.IsSpace(r):
			for i < len(runes) && unicode.IsSpace(runes[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokenSpace, text: " "})
		case r == '\'' || r == '"':
			i = scanQuoted(runes, i, r)
			tokens = append(tokens, token{kind: tokenQuoted, text: string(runes[start:i])})
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			tokens = append(tokens, token{kind: tokenComment, text: string(runes[start:i])})
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i += 2
			for i < len(runes) && !(runes[i] == '*' && i+1 < len(runes) && runes[i+1] == '/') {
				i++
			}
			i = min(i+2, len(runes))
			tokens = append(tokens, token{kind: tokenBlockComment, text: string(runes[start:i])})
		case isWordRune(r):
			for i < len(runes) && isWordRune(runes[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokenWord, text: string(runes[start:i])})
		default:
			i++
			tokens = append(tokens, token{kind: tokenSymbol, text: string(r)})
		}
	}
	return tokens
}

// scanQuoted returns the index just past the closing quote. A doubled quote
// is an escaped quote. Unterminated literals run to the end of input.
func scanQuoted(runes []rune, i int, quote rune) int {
	i++
	for i < len(runes) {
		if runes[i] == quote {
			if i+1 < len(runes) && runes[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return i
}

func isWordRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
