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
	"strings"
)

// ParseError reports an expression the grammar rejects.
type ParseError struct {
	// Input is the text handed to the parser, after preprocessing.
	Input string
	// Offset is the byte offset of the offending token.
	Offset int
	// Msg describes the failure.
	Msg string
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("filter: %s at offset %d in %q", e.Msg, e.Offset, e.Input)
}

// Parse parses expr into a raw tree without preprocessing or canonicalization.
//
// Grammar, loosest binding first:
//
//	expr       := and_expr ("||" and_expr)*
//	and_expr   := factor ("&&" factor)*
//	factor     := atom OP atom | atom | "(" expr ")"
//	atom       := IDENT "(" [expr ("," expr)*] ")" | "[" STRING "]" | IDENT | NUMBER | STRING | BOOL
//	OP         := ">" | "<" | "==" | ">=" | "<=" | "!="
//
// Runs of the same combinator at one level produce a single n-ary node.
func Parse(expr string) (*Node, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, &ParseError{Input: expr, Msg: "empty expression"}
	}
	tokens, err := lex(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{input: expr, tokens: tokens}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.code != eofToken {
		return nil, p.errorf(tok, "unexpected token %s", tok)
	}
	return node, nil
}

type parser struct {
	input  string
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.code != eofToken {
		p.pos++
	}
	return tok
}

func (p *parser) expect(code int, what string) (token, error) {
	tok := p.next()
	if tok.code != code {
		return tok, p.errorf(tok, "expected %s, found %s", what, tok)
	}
	return tok, nil
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return &ParseError{Input: p.input, Offset: tok.offset, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseExpr() (*Node, error) {
	return p.parseSequence(KindOr, orToken, p.parseAnd)
}

func (p *parser) parseAnd() (*Node, error) {
	return p.parseSequence(KindAnd, andToken, p.parseFactor)
}

func (p *parser) parseSequence(kind Kind, separator int, operand func() (*Node, error)) (*Node, error) {
	first, err := operand()
	if err != nil {
		return nil, err
	}
	if p.peek().code != separator {
		return first, nil
	}
	node := &Node{Kind: kind, Children: []*Node{first}}
	for p.peek().code == separator {
		p.next()
		child, err := operand()
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

func (p *parser) parseFactor() (*Node, error) {
	if p.peek().code == lParenToken {
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(rParenToken, `")"`); err != nil {
			return nil, err
		}
		return inner, nil
	}
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	op, ok := comparisonOperator(p.peek())
	if !ok {
		return left, nil
	}
	p.next()
	right, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KindComparison, Value: op, Children: []*Node{left, right}}, nil
}

func comparisonOperator(tok token) (string, bool) {
	switch tok.code {
	case gtToken, ltToken, eqToken, geToken, leToken, neToken:
		return tok.text, true
	}
	return "", false
}

func (p *parser) parseAtom() (*Node, error) {
	tok := p.next()
	switch tok.code {
	case identifierToken:
		if p.peek().code == lParenToken {
			return p.parseCall(tok)
		}
		if tok.text == "true" || tok.text == "false" {
			return &Node{Kind: KindBoolean, Value: tok.text}, nil
		}
		return &Node{Kind: KindIdentifier, Value: tok.text}, nil
	case numberToken:
		return &Node{Kind: KindNumber, Value: tok.text}, nil
	case stringToken:
		return &Node{Kind: KindString, Value: unquote(tok.text)}, nil
	case lBracketToken:
		key, err := p.expect(stringToken, "quoted key")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(rBracketToken, `"]"`); err != nil {
			return nil, err
		}
		return &Node{Kind: KindIdentifier, Value: unquote(key.text)}, nil
	}
	return nil, p.errorf(tok, "unexpected token %s", tok)
}

func (p *parser) parseCall(name token) (*Node, error) {
	p.next()
	call := &Node{Kind: KindCall, Value: name.text}
	if p.peek().code == rParenToken {
		p.next()
		return call, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		call.Children = append(call.Children, arg)
		tok := p.next()
		switch tok.code {
		case commaToken:
			continue
		case rParenToken:
			return call, nil
		}
		return nil, p.errorf(tok, `expected "," or ")", found %s`, tok)
	}
}

func unquote(s string) string {
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}
