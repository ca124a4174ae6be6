package parser

import (
	"strings"
	"unicode"

	"github.com/tuannm99/bongodb/internal/bongoerr"
)

type tokenKind uint8

const (
	tkEOF tokenKind = iota
	tkIdent
	tkNumber
	tkString
	tkSymbol
)

type token struct {
	kind tokenKind
	text string
}

// isKeyword matches keywords case-insensitively. Identifiers stay
// case-sensitive; only the comparison here folds case.
func (t token) isKeyword(kw string) bool {
	return t.kind == tkIdent && strings.EqualFold(t.text, kw)
}

func isIdentStart(r rune) bool { return unicode.IsLetter(r) || r == '_' }
func isIdentRune(r rune) bool  { return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' }

// lex splits sql into tokens. Strings use single quotes with backslash
// escapes; a '' pair also escapes a quote.
func lex(sql string) ([]token, error) {
	var toks []token
	rs := []rune(sql)
	i := 0

	for i < len(rs) {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case isIdentStart(r):
			start := i
			for i < len(rs) && isIdentRune(rs[i]) {
				i++
			}
			toks = append(toks, token{kind: tkIdent, text: string(rs[start:i])})

		case unicode.IsDigit(r) || (r == '-' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			start := i
			i++
			for i < len(rs) && unicode.IsDigit(rs[i]) {
				i++
			}
			toks = append(toks, token{kind: tkNumber, text: string(rs[start:i])})

		case r == '\'':
			i++
			var sb strings.Builder
			closed := false
			for i < len(rs) {
				switch {
				case rs[i] == '\\' && i+1 < len(rs):
					sb.WriteRune(rs[i+1])
					i += 2
				case rs[i] == '\'' && i+1 < len(rs) && rs[i+1] == '\'':
					sb.WriteByte('\'')
					i += 2
				case rs[i] == '\'':
					i++
					closed = true
				default:
					sb.WriteRune(rs[i])
					i++
				}
				if closed {
					break
				}
			}
			if !closed {
				return nil, bongoerr.Parsef("unterminated string literal")
			}
			toks = append(toks, token{kind: tkString, text: sb.String()})

		case r == '<' || r == '>' || r == '!':
			if i+1 < len(rs) && rs[i+1] == '=' {
				toks = append(toks, token{kind: tkSymbol, text: string(rs[i : i+2])})
				i += 2
				break
			}
			if r == '!' {
				return nil, bongoerr.Parsef("unexpected character %q", r)
			}
			toks = append(toks, token{kind: tkSymbol, text: string(r)})
			i++

		case strings.ContainsRune("()=,;*", r):
			toks = append(toks, token{kind: tkSymbol, text: string(r)})
			i++

		default:
			return nil, bongoerr.Parsef("unexpected character %q", r)
		}
	}

	return append(toks, token{kind: tkEOF}), nil
}
