// Package parser implements the Pratt/precedence parser of spec §4.B,
// driven by the token-kind binding powers in spec §6. It is pure and
// synchronous (spec §5): it never suspends and never mutates its input.
package parser

import (
	"fmt"

	"github.com/vegafusion-go/vf/ast"
	"github.com/vegafusion-go/vf/lexer"
	"github.com/vegafusion-go/vf/token"
	"github.com/vegafusion-go/vf/vferr"
)

// Parse lexes and parses src into a single Expression.
func Parse(src string) (*ast.Expression, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		tok := p.peek()
		return nil, vferr.WithSpan(
			vferr.ErrParse.New(fmt.Sprintf("unexpected trailing token %q", tok.Token)),
			vferr.Span{Start: tok.Span.Start, End: tok.Span.End},
		)
	}
	return expr, nil
}

type parser struct {
	toks []token.Spanned
	pos  int
}

func (p *parser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() token.Spanned {
	if p.atEnd() {
		return token.Spanned{Token: token.Token{}, Span: token.Span{}}
	}
	return p.toks[p.pos]
}

func (p *parser) advance() token.Spanned {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) expect(k token.Kind) (token.Spanned, error) {
	if p.atEnd() || p.peek().Token.Kind != k {
		return token.Spanned{}, p.errorHere(fmt.Sprintf("expected %s", k))
	}
	return p.advance(), nil
}

func (p *parser) errorHere(msg string) error {
	if p.atEnd() {
		return vferr.ErrParse.New(fmt.Sprintf("%s, found end of input", msg))
	}
	t := p.peek()
	err := vferr.ErrParse.New(fmt.Sprintf("%s, found %q", msg, t.Token))
	return vferr.WithSpan(err, vferr.Span{Start: t.Span.Start, End: t.Span.End})
}

// parseExpr parses an expression binding at least as tightly as
// minBP, implementing the standard Pratt led/nud loop.
func (p *parser) parseExpr(minBP float64) (*ast.Expression, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	for {
		if p.atEnd() {
			return left, nil
		}
		tk := p.peek().Token.Kind

		if lbp, rbp, ok := infixBindingPower(tk); ok {
			if lbp < minBP {
				return left, nil
			}
			left, err = p.parseInfix(left, rbp)
			if err != nil {
				return nil, err
			}
			continue
		}

		if tk == token.Question {
			leftBP, _, rightBP := ternaryBP()
			if leftBP < minBP {
				return left, nil
			}
			left, err = p.parseConditional(left, rightBP)
			if err != nil {
				return nil, err
			}
			continue
		}

		if tk == token.Dot || tk == token.OpenSquare {
			memberLBP, memberRBP := memberBP()
			if memberLBP < minBP {
				return left, nil
			}
			left, err = p.parseMember(left, memberRBP)
			if err != nil {
				return nil, err
			}
			continue
		}

		return left, nil
	}
}

func (p *parser) parseInfix(left *ast.Expression, rbp float64) (*ast.Expression, error) {
	opTok := p.advance()
	right, err := p.parseExpr(rbp)
	if err != nil {
		return nil, err
	}
	span := ast.Span{Start: left.Span.Start, End: right.Span.End}

	if lop, ok := ast.TokenLogicalOp(opTok.Token.Kind); ok {
		return ast.NewLogical(lop, left, right, span), nil
	}
	if bop, ok := ast.TokenBinaryOp(opTok.Token.Kind); ok {
		return ast.NewBinary(bop, left, right, span), nil
	}
	return nil, p.errorHere("unsupported infix operator")
}

func (p *parser) parseConditional(test *ast.Expression, rbp float64) (*ast.Expression, error) {
	if _, err := p.expect(token.Question); err != nil {
		return nil, err
	}
	_, midRBP, _ := ternaryBP()
	cons, err := p.parseExpr(midRBP)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Colon); err != nil {
		return nil, err
	}
	alt, err := p.parseExpr(rbp)
	if err != nil {
		return nil, err
	}
	span := ast.Span{Start: test.Span.Start, End: alt.Span.End}
	return ast.NewConditional(test, cons, alt, span), nil
}

func (p *parser) parseMember(object *ast.Expression, rbp float64) (*ast.Expression, error) {
	tk := p.advance()
	if tk.Token.Kind == token.Dot {
		nameTok, err := p.expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		prop := ast.NewIdentifier(nameTok.Token.Str, spanOf(nameTok))
		span := ast.Span{Start: object.Span.Start, End: nameTok.Span.End}
		return ast.NewMember(object, prop, false, span), nil
	}

	// OpenSquare: computed member access.
	prop, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	closeTok, err := p.expect(token.CloseSquare)
	if err != nil {
		return nil, err
	}
	span := ast.Span{Start: object.Span.Start, End: closeTok.Span.End}
	return ast.NewMember(object, prop, true, span), nil
}

// parsePrefix parses a prefix/nud position: literal, identifier, call,
// array, object, parenthesised group, or unary operator.
func (p *parser) parsePrefix() (*ast.Expression, error) {
	if p.atEnd() {
		return nil, p.errorHere("expected expression")
	}
	tk := p.advance()

	switch tk.Token.Kind {
	case token.Null:
		return ast.NewNull(spanOf(tk)), nil
	case token.Bool:
		return ast.NewBool(tk.Token.Bool, spanOf(tk)), nil
	case token.Number:
		return ast.NewNumber(tk.Token.Num, spanOf(tk)), nil
	case token.String:
		return ast.NewString(tk.Token.Str, spanOf(tk)), nil
	case token.Identifier:
		return p.parseIdentifierOrCall(tk)
	case token.OpenParen:
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.CloseParen); err != nil {
			return nil, err
		}
		// Parenthesised groups do not introduce nodes (spec §4.B); the
		// inner expression's own span and binding power are preserved.
		return inner, nil
	case token.OpenSquare:
		return p.parseArray(tk)
	case token.OpenCurly:
		return p.parseObject(tk)
	case token.Plus, token.Minus, token.Exclamation:
		op, _ := ast.TokenUnaryOp(tk.Token.Kind)
		arg, err := p.parseExpr(17.0)
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(op, arg, ast.Span{Start: tk.Span.Start, End: arg.Span.End}), nil
	default:
		p.pos--
		return nil, p.errorHere("expected expression")
	}
}

func (p *parser) parseIdentifierOrCall(nameTok token.Spanned) (*ast.Expression, error) {
	ident := ast.NewIdentifier(nameTok.Token.Str, spanOf(nameTok))
	if p.atEnd() || p.peek().Token.Kind != token.OpenParen {
		return ident, nil
	}

	p.advance() // consume '('
	var args []*ast.Expression
	if p.atEnd() || p.peek().Token.Kind != token.CloseParen {
		for {
			arg, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.atEnd() || p.peek().Token.Kind != token.Comma {
				break
			}
			p.advance()
		}
	}
	closeTok, err := p.expect(token.CloseParen)
	if err != nil {
		return nil, err
	}
	span := ast.Span{Start: nameTok.Span.Start, End: closeTok.Span.End}
	return ast.NewCall(ident, args, span), nil
}

func (p *parser) parseArray(openTok token.Spanned) (*ast.Expression, error) {
	var elements []*ast.Expression
	if p.atEnd() || p.peek().Token.Kind != token.CloseSquare {
		for {
			el, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			elements = append(elements, el)
			if p.atEnd() || p.peek().Token.Kind != token.Comma {
				break
			}
			p.advance()
		}
	}
	closeTok, err := p.expect(token.CloseSquare)
	if err != nil {
		return nil, err
	}
	return ast.NewArray(elements, ast.Span{Start: openTok.Span.Start, End: closeTok.Span.End}), nil
}

func (p *parser) parseObject(openTok token.Spanned) (*ast.Expression, error) {
	var props []ast.Property
	if p.atEnd() || p.peek().Token.Kind != token.CloseCurly {
		for {
			prop, err := p.parseProperty()
			if err != nil {
				return nil, err
			}
			props = append(props, prop)
			if p.atEnd() || p.peek().Token.Kind != token.Comma {
				break
			}
			p.advance()
		}
	}
	closeTok, err := p.expect(token.CloseCurly)
	if err != nil {
		return nil, err
	}
	return ast.NewObject(props, ast.Span{Start: openTok.Span.Start, End: closeTok.Span.End}), nil
}

func (p *parser) parseProperty() (ast.Property, error) {
	var key *ast.Expression
	switch {
	case !p.atEnd() && p.peek().Token.Kind == token.Identifier:
		tk := p.advance()
		key = ast.NewIdentifier(tk.Token.Str, spanOf(tk))
	case !p.atEnd() && p.peek().Token.Kind == token.String:
		tk := p.advance()
		key = ast.NewString(tk.Token.Str, spanOf(tk))
	case !p.atEnd() && p.peek().Token.Kind == token.Number:
		tk := p.advance()
		key = ast.NewNumber(tk.Token.Num, spanOf(tk))
	default:
		return ast.Property{}, p.errorHere("expected object key")
	}

	if _, err := p.expect(token.Colon); err != nil {
		return ast.Property{}, err
	}
	val, err := p.parseExpr(0)
	if err != nil {
		return ast.Property{}, err
	}
	return ast.Property{Key: key, Value: val}, nil
}

func spanOf(t token.Spanned) ast.Span {
	return ast.Span{Start: t.Span.Start, End: t.Span.End}
}

// infixBindingPower returns the (lbp, rbp) pair for binary/logical
// operator tokens per spec §6; comma and non-operator tokens are not
// infix operators here (comma is only an argument separator).
func infixBindingPower(k token.Kind) (float64, float64, bool) {
	switch k {
	case token.Plus, token.Minus:
		return 14.0, 14.5, true
	case token.Asterisk, token.Slash, token.Percent:
		return 15.0, 15.5, true
	case token.GreaterThan, token.LessThan, token.GreaterThanEquals, token.LessThanEquals:
		return 12.0, 12.5, true
	case token.DoubleEquals, token.TripleEquals, token.ExclamationEquals, token.ExclamationDoubleEquals:
		return 11.0, 11.5, true
	case token.LogicalAnd:
		return 7.0, 7.5, true
	case token.LogicalOr:
		return 6.0, 6.5, true
	default:
		return 0, 0, false
	}
}

func ternaryBP() (float64, float64, float64) { return 4.8, 4.6, 4.4 }
func memberBP() (float64, float64)           { return 20.0, 20.5 }
