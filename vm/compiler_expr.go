package vm

import (
	"strconv"

	"dyms/lexer"
)

// precedence orders binding strength low to high.
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precBitOr                 // |
	precBitXor                // ^
	precBitAnd                // &
	precComparison            // < > <= >=
	precShift                 // << >>
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! - ~
	precCall                  // . () []
	precPrimary
)

type parseFn func(p *Parser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

var rules map[lexer.TokenType]parseRule

func init() {
	rules = map[lexer.TokenType]parseRule{
		lexer.LeftParen:      {prefix: (*Parser).grouping, infix: (*Parser).call, precedence: precCall},
		lexer.LeftBracket:    {prefix: (*Parser).arrayLiteral, infix: (*Parser).subscript, precedence: precCall},
		lexer.Dot:            {infix: (*Parser).dot, precedence: precCall},
		lexer.Minus:          {prefix: (*Parser).unary, infix: (*Parser).binary, precedence: precTerm},
		lexer.Plus:           {infix: (*Parser).binary, precedence: precTerm},
		lexer.Slash:          {infix: (*Parser).binary, precedence: precFactor},
		lexer.Star:           {infix: (*Parser).binary, precedence: precFactor},
		lexer.Bang:           {prefix: (*Parser).unary},
		lexer.Tilde:          {prefix: (*Parser).unary},
		lexer.BangEqual:      {infix: (*Parser).binary, precedence: precEquality},
		lexer.EqualEqual:     {infix: (*Parser).binary, precedence: precEquality},
		lexer.Greater:        {infix: (*Parser).binary, precedence: precComparison},
		lexer.GreaterEqual:   {infix: (*Parser).binary, precedence: precComparison},
		lexer.Less:           {infix: (*Parser).binary, precedence: precComparison},
		lexer.LessEqual:      {infix: (*Parser).binary, precedence: precComparison},
		lexer.LessLess:       {infix: (*Parser).binary, precedence: precShift},
		lexer.GreaterGreater: {infix: (*Parser).binary, precedence: precShift},
		lexer.Ampersand:      {infix: (*Parser).binary, precedence: precBitAnd},
		lexer.Pipe:           {infix: (*Parser).binary, precedence: precBitOr},
		lexer.Caret:          {infix: (*Parser).binary, precedence: precBitXor},
		lexer.Identifier:     {prefix: (*Parser).variable},
		lexer.String:         {prefix: (*Parser).stringLit},
		lexer.Number:         {prefix: (*Parser).number},
		lexer.And:            {infix: (*Parser).and_, precedence: precAnd},
		lexer.Or:             {infix: (*Parser).or_, precedence: precOr},
		lexer.False:          {prefix: (*Parser).literal},
		lexer.Nil:            {prefix: (*Parser).literal},
		lexer.True:           {prefix: (*Parser).literal},
		lexer.This:           {prefix: (*Parser).this_},
		lexer.Super:          {prefix: (*Parser).super_},
	}
}

func getRule(t lexer.TokenType) parseRule { return rules[t] }

func (p *Parser) expression() { p.parsePrecedence(precAssignment) }

func (p *Parser) parsePrecedence(prec precedence) {
	p.advance()
	prefixRule := getRule(p.previous.Type).prefix
	if prefixRule == nil {
		p.error("Expect expression.")
		return
	}
	canAssign := prec <= precAssignment
	prefixRule(p, canAssign)

	for prec <= getRule(p.current.Type).precedence {
		p.advance()
		infixRule := getRule(p.previous.Type).infix
		infixRule(p, canAssign)
	}

	if canAssign && p.match(lexer.Equal) {
		p.error("Invalid assignment target.")
	}
}

func (p *Parser) number(canAssign bool) {
	n, err := strconv.ParseFloat(p.previous.Lexeme, 64)
	if err != nil {
		p.error("Invalid number literal.")
		return
	}
	// Exact uint8 values get the single-byte-operand fast path.
	if n == float64(byte(n)) && n >= 0 && n <= 255 {
		p.emitOp(OpByteNum)
		p.emitByte(byte(n))
		return
	}
	p.emitConstant(NumberValue(n))
}

func (p *Parser) stringLit(canAssign bool) {
	raw := p.previous.Lexeme
	contents := raw[1 : len(raw)-1] // strip surrounding quotes
	s := p.vm.gc.interner.intern(p.vm.gc, contents)
	p.emitConstant(ObjValue(s))
}

func (p *Parser) literal(canAssign bool) {
	switch p.previous.Type {
	case lexer.False:
		p.emitOp(OpFalse)
	case lexer.True:
		p.emitOp(OpTrue)
	case lexer.Nil:
		p.emitOp(OpNil)
	}
}

func (p *Parser) grouping(canAssign bool) {
	p.expression()
	p.consume(lexer.RightParen, "Expect ')' after expression.")
}

func (p *Parser) unary(canAssign bool) {
	opType := p.previous.Type
	p.parsePrecedence(precUnary)
	switch opType {
	case lexer.Minus:
		p.emitOp(OpNegate)
	case lexer.Bang:
		p.emitOp(OpNot)
	case lexer.Tilde:
		p.emitOp(OpInvert)
	}
}

func (p *Parser) binary(canAssign bool) {
	opType := p.previous.Type
	rule := getRule(opType)
	p.parsePrecedence(rule.precedence + 1)

	switch opType {
	case lexer.Plus:
		p.emitOp(OpAdd)
	case lexer.Minus:
		p.emitOp(OpSubtract)
	case lexer.Star:
		p.emitOp(OpMultiply)
	case lexer.Slash:
		p.emitOp(OpDivide)
	case lexer.BangEqual:
		p.emitOp(OpNotEqual)
	case lexer.EqualEqual:
		p.emitOp(OpEqual)
	case lexer.Greater:
		p.emitOp(OpGreater)
	case lexer.GreaterEqual:
		p.emitOp(OpGreaterEqual)
	case lexer.Less:
		p.emitOp(OpLess)
	case lexer.LessEqual:
		p.emitOp(OpLessEqual)
	case lexer.LessLess:
		p.emitOp(OpShiftLeft)
	case lexer.GreaterGreater:
		p.emitOp(OpShiftRight)
	case lexer.Ampersand:
		p.emitOp(OpBitAnd)
	case lexer.Pipe:
		p.emitOp(OpBitOr)
	case lexer.Caret:
		p.emitOp(OpBitXor)
	}
}

// and_/or_ implement short-circuit evaluation: the skipped branch leaves
// its value atop the stack, and the taken branch pops it before
// continuing.
func (p *Parser) and_(canAssign bool) {
	endJump := p.emitJump(OpJumpIfFalse)
	p.emitOp(OpPop)
	p.parsePrecedence(precAnd)
	p.patchJump(endJump)
}

func (p *Parser) or_(canAssign bool) {
	endJump := p.emitJump(OpJumpIfTrue)
	p.emitOp(OpPop)
	p.parsePrecedence(precOr)
	p.patchJump(endJump)
}

func (p *Parser) argumentList() int {
	argc := 0
	if !p.check(lexer.RightParen) {
		for {
			p.expression()
			if argc == 255 {
				p.error("Can't have more than 255 arguments.")
			}
			argc++
			if !p.match(lexer.Comma) {
				break
			}
		}
	}
	p.consume(lexer.RightParen, "Expect ')' after arguments.")
	return argc
}

func (p *Parser) call(canAssign bool) {
	argc := p.argumentList()
	p.emitOp(OpCall)
	p.emitByte(byte(argc))
}

// dot compiles `obj.name`, `obj.name = value`, and the fused
// `obj.name(args)` INVOKE form.
func (p *Parser) dot(canAssign bool) {
	p.consume(lexer.Identifier, "Expect property name after '.'.")
	name := p.identifierConstant(p.previous.Lexeme)

	switch {
	case canAssign && p.match(lexer.Equal):
		p.expression()
		p.emitIndexed(OpSetProperty, OpSetPropertyLong, name)
	case p.match(lexer.LeftParen):
		argc := p.argumentList()
		p.emitIndexed(OpInvoke, OpInvokeLong, name)
		p.emitByte(byte(argc))
	default:
		p.emitIndexed(OpGetProperty, OpGetPropertyLong, name)
	}
}

func (p *Parser) arrayLiteral(canAssign bool) {
	n := 0
	if !p.check(lexer.RightBracket) {
		for {
			p.expression()
			n++
			if !p.match(lexer.Comma) {
				break
			}
		}
	}
	p.consume(lexer.RightBracket, "Expect ']' after array elements.")
	p.emitOp(OpNewArray)
	p.emitByte(byte(n))
}

func (p *Parser) subscript(canAssign bool) {
	p.expression()
	p.consume(lexer.RightBracket, "Expect ']' after index.")
	if canAssign && p.match(lexer.Equal) {
		p.expression()
		p.emitOp(OpSubscriptAssign)
		p.emitByte(1)
		return
	}
	p.emitOp(OpSubscript)
	p.emitByte(1)
}

func (p *Parser) variable(canAssign bool) {
	p.namedVariable(p.previous.Lexeme, canAssign)
}

func (p *Parser) namedVariable(name string, canAssign bool) {
	var getOp, getOpLong, setOp, setOpLong OpCode
	var arg int
	isLocalOrUpvalue := false

	if local := resolveLocal(p, p.comp, name); local != -1 {
		arg = local
		getOp, setOp = OpGetLocal, OpSetLocal
		isLocalOrUpvalue = true
	} else if up := resolveUpvalue(p, p.comp, name); up != -1 {
		arg = up
		getOp, setOp = OpGetUpvalue, OpSetUpvalue
		isLocalOrUpvalue = true
	} else {
		arg = p.identifierConstant(name)
		getOp, getOpLong = OpGetGlobal, OpGetGlobalLong
		setOp, setOpLong = OpSetGlobal, OpSetGlobalLong
	}

	if canAssign && p.match(lexer.Equal) {
		p.expression()
		if isLocalOrUpvalue {
			p.emitOpByte(setOp, byte(arg))
		} else {
			p.emitIndexed(setOp, setOpLong, arg)
		}
		return
	}
	if isLocalOrUpvalue {
		p.emitOpByte(getOp, byte(arg))
	} else {
		p.emitIndexed(getOp, getOpLong, arg)
	}
}

func (p *Parser) this_(canAssign bool) {
	if p.class == nil {
		p.error("Can't use 'this' outside of a class.")
		return
	}
	p.variable(false)
}

// super_ compiles `super.name` and the fused `super.name(args)`
// SUPER_INVOKE form.
func (p *Parser) super_(canAssign bool) {
	if p.class == nil {
		p.error("Can't use 'super' outside of a class.")
	} else if !p.class.hasSuperclass {
		p.error("Can't use 'super' in a class with no superclass.")
	}

	p.consume(lexer.Dot, "Expect '.' after 'super'.")
	p.consume(lexer.Identifier, "Expect superclass method name.")
	name := p.identifierConstant(p.previous.Lexeme)

	p.namedVariable("this", false)
	if p.match(lexer.LeftParen) {
		argc := p.argumentList()
		p.namedVariable("super", false)
		p.emitIndexed(OpSuperInvoke, OpSuperInvokeLong, name)
		p.emitByte(byte(argc))
		return
	}
	p.namedVariable("super", false)
	p.emitIndexed(OpGetSuper, OpGetSuperLong, name)
}
