//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package filter

import (
	"fmt"

	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

const (
	whitespaceToken = iota
	orToken
	andToken
	geToken
	leToken
	eqToken
	neToken
	gtToken
	ltToken
	lParenToken
	rParenToken
	lBracketToken
	rBracketToken
	commaToken
	stringToken
	identifierToken
	numberToken
	eofToken
)

var (
	whitespaceMatcher = parsly.NewToken(whitespaceToken, "Whitespace", matcher.NewWhiteSpace())
	orMatcher         = parsly.NewToken(orToken, "||", matcher.NewFragment("||"))
	andMatcher        = parsly.NewToken(andToken, "&&", matcher.NewFragment("&&"))
	geMatcher         = parsly.NewToken(geToken, ">=", matcher.NewFragment(">="))
	leMatcher         = parsly.NewToken(leToken, "<=", matcher.NewFragment("<="))
	eqMatcher         = parsly.NewToken(eqToken, "==", matcher.NewFragment("=="))
	neMatcher         = parsly.NewToken(neToken, "!=", matcher.NewFragment("!="))
	gtMatcher         = parsly.NewToken(gtToken, ">", matcher.NewByte('>'))
	ltMatcher         = parsly.NewToken(ltToken, "<", matcher.NewByte('<'))
	lParenMatcher     = parsly.NewToken(lParenToken, "(", matcher.NewByte('('))
	rParenMatcher     = parsly.NewToken(rParenToken, ")", matcher.NewByte(')'))
	lBracketMatcher   = parsly.NewToken(lBracketToken, "[", matcher.NewByte('['))
	rBracketMatcher   = parsly.NewToken(rBracketToken, "]", matcher.NewByte(']'))
	commaMatcher      = parsly.NewToken(commaToken, ",", matcher.NewByte(','))
	stringMatcher     = parsly.NewToken(stringToken, "String", &quotedMatch{})
	identifierMatcher = parsly.NewToken(identifierToken, "Identifier", &identifierMatch{})
	numberMatcher     = parsly.NewToken(numberToken, "Number", &numberMatch{})
)

// candidates lists two-byte operators ahead of their one-byte prefixes and
// identifiers ahead of numbers so "24h_High" is read as one identifier.
var candidates = []*parsly.Token{
	orMatcher, andMatcher,
	geMatcher, leMatcher, eqMatcher, neMatcher, gtMatcher, ltMatcher,
	lParenMatcher, rParenMatcher, lBracketMatcher, rBracketMatcher, commaMatcher,
	stringMatcher, identifierMatcher, numberMatcher,
}

type token struct {
	code   int
	text   string
	offset int
}

func (t token) String() string {
	if t.code == eofToken {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.text)
}

func lex(input string) ([]token, error) {
	cursor := parsly.NewCursor("", []byte(input), 0)
	var tokens []token
	for {
		matched := cursor.MatchAfterOptional(whitespaceMatcher, candidates...)
		switch matched.Code {
		case parsly.EOF:
			return append(tokens, token{code: eofToken, offset: len(input)}), nil
		case parsly.Invalid:
			offset := skipSpaces(input, cursor.Pos)
			msg := "unexpected end of input"
			if offset < len(input) {
				msg = fmt.Sprintf("unexpected character %q", input[offset])
			}
			return nil, &ParseError{Input: input, Offset: offset, Msg: msg}
		}
		tokens = append(tokens, token{code: matched.Code, text: matched.Text(cursor), offset: matched.Offset})
	}
}

func skipSpaces(input string, pos int) int {
	for pos < len(input) && isSpace(input[pos]) {
		pos++
	}
	return pos
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

// quotedMatch matches '...' or "..." without escapes.
type quotedMatch struct{}

func (q *quotedMatch) Match(cursor *parsly.Cursor) int {
	if cursor.Pos >= cursor.InputSize {
		return 0
	}
	quote := cursor.Input[cursor.Pos]
	if quote != '\'' && quote != '"' {
		return 0
	}
	for i := cursor.Pos + 1; i < cursor.InputSize; i++ {
		if cursor.Input[i] == quote {
			return i - cursor.Pos + 1
		}
	}
	return 0
}

// identifierMatch matches [a-zA-Z_][a-zA-Z0-9_]* and [0-9]+[a-zA-Z_]+[a-zA-Z0-9_]*.
type identifierMatch struct{}

func (i *identifierMatch) Match(cursor *parsly.Cursor) int {
	if cursor.Pos >= cursor.InputSize {
		return 0
	}
	input := cursor.Input
	pos := cursor.Pos
	if isDigit(input[pos]) {
		for pos < cursor.InputSize && isDigit(input[pos]) {
			pos++
		}
		if pos >= cursor.InputSize || !isIdentifierStart(input[pos]) {
			return 0
		}
	} else if !isIdentifierStart(input[pos]) {
		return 0
	}
	for pos < cursor.InputSize && isIdentifierPart(input[pos]) {
		pos++
	}
	return pos - cursor.Pos
}

// numberMatch matches \d+(\.\d+)?.
type numberMatch struct{}

func (n *numberMatch) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	for pos < cursor.InputSize && isDigit(input[pos]) {
		pos++
	}
	if pos == cursor.Pos {
		return 0
	}
	if pos+1 < cursor.InputSize && input[pos] == '.' && isDigit(input[pos+1]) {
		pos++
		for pos < cursor.InputSize && isDigit(input[pos]) {
			pos++
		}
	}
	return pos - cursor.Pos
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isIdentifierStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}

func isIdentifierPart(b byte) bool {
	return isIdentifierStart(b) || isDigit(b)
}

// IsIdentifier reports whether s can be written as a bare identifier.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	cursor := parsly.NewCursor("", []byte(s), 0)
	return (&identifierMatch{}).Match(cursor) == len(s)
}
