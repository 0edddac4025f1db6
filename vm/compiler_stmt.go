package vm

import "dyms/lexer"

func (p *Parser) statement() {
	switch {
	case p.match(lexer.Print):
		p.printStatement()
	case p.match(lexer.If):
		p.ifStatement()
	case p.match(lexer.While):
		p.whileStatement()
	case p.match(lexer.For):
		p.forStatement()
	case p.match(lexer.Return):
		p.returnStatement()
	case p.match(lexer.Break):
		p.breakStatement()
	case p.match(lexer.Continue):
		p.continueStatement()
	case p.match(lexer.LeftBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *Parser) printStatement() {
	p.expression()
	p.consume(lexer.Semicolon, "Expect ';' after value.")
	p.emitOp(OpPrint)
}

func (p *Parser) expressionStatement() {
	p.expression()
	p.consume(lexer.Semicolon, "Expect ';' after expression.")
	p.emitOp(OpPop)
}

func (p *Parser) block() {
	for !p.check(lexer.RightBrace) && !p.check(lexer.EOF) {
		p.declaration()
	}
	p.consume(lexer.RightBrace, "Expect '}' after block.")
}

// ifStatement emits the usual JUMP_IF_FALSE / JUMP skeleton: both
// conditional jumps inspect the condition non-destructively, so the
// surrounding code is responsible for the POP on each branch.
func (p *Parser) ifStatement() {
	p.consume(lexer.LeftParen, "Expect '(' after 'if'.")
	p.expression()
	p.consume(lexer.RightParen, "Expect ')' after condition.")

	thenJump := p.emitJump(OpJumpIfFalse)
	p.emitOp(OpPop)
	p.statement()

	elseJump := p.emitJump(OpJump)
	p.patchJump(thenJump)
	p.emitOp(OpPop)

	if p.match(lexer.Else) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *Parser) pushLoop(start int) *loopState {
	ls := &loopState{start: start, localCount: len(p.comp.locals)}
	p.comp.loops = append(p.comp.loops, ls)
	return ls
}

func (p *Parser) popLoop() *loopState {
	ls := p.comp.loops[len(p.comp.loops)-1]
	p.comp.loops = p.comp.loops[:len(p.comp.loops)-1]
	return ls
}

// discardLoopLocals emits the same per-local OP_POP/OP_CLOSE_UPVALUE that
// endScope would on a normal fall-through, for every local declared since
// the loop started, WITHOUT removing them from comp.locals — a break or
// continue jumps past the scopes that would otherwise do this, so the
// jump itself must leave the stack exactly as balanced as the fall-through
// path does.
func (p *Parser) discardLoopLocals(ls *loopState) {
	c := p.comp
	for i := len(c.locals) - 1; i >= ls.localCount; i-- {
		if c.locals[i].isCaptured {
			p.emitOp(OpCloseUpvalue)
		} else {
			p.emitOp(OpPop)
		}
	}
}

func (p *Parser) whileStatement() {
	loopStart := len(p.chunk().Code)
	ls := p.pushLoop(loopStart)

	p.consume(lexer.LeftParen, "Expect '(' after 'while'.")
	p.expression()
	p.consume(lexer.RightParen, "Expect ')' after condition.")

	exitJump := p.emitJump(OpJumpIfFalse)
	p.emitOp(OpPop)
	p.statement()

	for _, c := range ls.continueJumps {
		p.patchJump(c)
	}
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(OpPop)

	ls = p.popLoop()
	for _, b := range ls.breakJumps {
		p.patchJump(b)
	}
}

// forStatement desugars to a while loop with an init/condition/increment
// trampoline.
func (p *Parser) forStatement() {
	p.beginScope()
	p.consume(lexer.LeftParen, "Expect '(' after 'for'.")

	switch {
	case p.match(lexer.Semicolon):
		// no initializer
	case p.match(lexer.Var):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.chunk().Code)
	ls := p.pushLoop(loopStart)
	exitJump := -1
	if !p.match(lexer.Semicolon) {
		p.expression()
		p.consume(lexer.Semicolon, "Expect ';' after loop condition.")
		exitJump = p.emitJump(OpJumpIfFalse)
		p.emitOp(OpPop)
	}

	if !p.match(lexer.RightParen) {
		bodyJump := p.emitJump(OpJump)
		incrementStart := len(p.chunk().Code)
		p.expression()
		p.emitOp(OpPop)
		p.consume(lexer.RightParen, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
		ls.start = loopStart
	}

	p.statement()

	for _, c := range ls.continueJumps {
		p.patchJump(c)
	}
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(OpPop)
	}

	ls = p.popLoop()
	for _, b := range ls.breakJumps {
		p.patchJump(b)
	}

	p.endScope()
}

func (p *Parser) returnStatement() {
	if p.comp.fnType == funcScript {
		p.error("Can't return from top-level code.")
	}
	if p.match(lexer.Semicolon) {
		p.emitReturn()
		return
	}
	if p.comp.fnType == funcInitializer {
		p.error("Can't return a value from an initializer.")
	}
	p.expression()
	p.consume(lexer.Semicolon, "Expect ';' after return value.")
	p.emitOp(OpReturn)
}

func (p *Parser) breakStatement() {
	if len(p.comp.loops) == 0 {
		p.error("Can't use 'break' outside of a loop.")
		return
	}
	p.consume(lexer.Semicolon, "Expect ';' after 'break'.")
	ls := p.comp.loops[len(p.comp.loops)-1]
	p.discardLoopLocals(ls)
	ls.breakJumps = append(ls.breakJumps, p.emitJump(OpJump))
}

func (p *Parser) continueStatement() {
	if len(p.comp.loops) == 0 {
		p.error("Can't use 'continue' outside of a loop.")
		return
	}
	p.consume(lexer.Semicolon, "Expect ';' after 'continue'.")
	ls := p.comp.loops[len(p.comp.loops)-1]
	p.discardLoopLocals(ls)
	ls.continueJumps = append(ls.continueJumps, p.emitJump(OpJump))
}
