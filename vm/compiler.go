package vm

import (
	"fmt"
	"strconv"

	"dyms/lexer"
)

// Compiler is a single-pass Pratt parser + bytecode emitter. One instance
// exists per nested function being compiled (script, `fun` declarations,
// methods); each holds its own locals/upvalues/loops and chains to its
// enclosing Compiler for upvalue resolution.
type Compiler struct {
	enclosing *Compiler

	function *ObjFunction
	fnType   functionType

	locals     []local
	upvalues   []upvalueRef
	scopeDepth int

	loops []*loopState

	// stringConsts deduplicates string constants within this function's
	// own chunk.
	stringConsts map[string]int
}

type functionType int

const (
	funcScript functionType = iota
	funcFunction
	funcMethod
	funcInitializer
)

type local struct {
	name       string
	depth      int // -1 while "declared but uninitialized"
	isCaptured bool
}

type upvalueRef struct {
	index   byte
	isLocal bool
}

type loopState struct {
	start         int
	localCount    int // len(comp.locals) when the loop started, per discardLoopLocals
	breakJumps    []int
	continueJumps []int
}

type classCompiler struct {
	enclosing     *classCompiler
	hasSuperclass bool
}

// Parser drives one compilation: scanner + lookahead + diagnostics +
// the chain of nested Compilers.
type Parser struct {
	vm      *VM
	scanner *lexer.Scanner

	current  lexer.Token
	previous lexer.Token

	hadError  bool
	panicMode bool
	errs      CompileErrors

	comp  *Compiler
	class *classCompiler
}

// Compile compiles source into a top-level script function. Returns
// (fn, nil) on success; on any compile error returns (nil, CompileErrors).
func Compile(vmachine *VM, source string) (*ObjFunction, error) {
	p := &Parser{vm: vmachine, scanner: lexer.New(source)}
	p.comp = newCompiler(p, nil, funcScript)

	p.advance()
	for !p.match(lexer.EOF) {
		p.declaration()
	}
	fn := p.endCompiler()

	if p.hadError {
		return nil, p.errs
	}
	return fn, nil
}

func newCompiler(p *Parser, enclosing *Compiler, t functionType) *Compiler {
	c := &Compiler{
		enclosing:    enclosing,
		fnType:       t,
		stringConsts: make(map[string]int),
	}
	c.function = p.vm.gc.newFunction()
	p.vm.compilerRoots = append(p.vm.compilerRoots, c.function)
	if t != funcScript {
		c.function.Name = p.vm.gc.interner.intern(p.vm.gc, p.previous.Lexeme)
	}
	// Slot 0: "this" for methods/initializers, unnamed for everything else.
	name := ""
	if t == funcMethod || t == funcInitializer {
		name = "this"
	}
	c.locals = append(c.locals, local{name: name, depth: 0})
	return c
}

// ---- token stream plumbing ----

func (p *Parser) advance() {
	p.previous = p.current
	for {
		p.current = p.scanner.NextToken()
		if p.current.Type != lexer.Error {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *Parser) check(t lexer.TokenType) bool { return p.current.Type == t }

func (p *Parser) match(t lexer.TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(t lexer.TokenType, msg string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *Parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }
func (p *Parser) error(msg string)          { p.errorAt(p.previous, msg) }

func (p *Parser) errorAt(tok lexer.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true
	where := fmt.Sprintf("at '%s'", tok.Lexeme)
	if tok.Type == lexer.EOF {
		where = "at end"
	} else if tok.Type == lexer.Error {
		where = ""
	}
	p.errs = append(p.errs, CompileError{Line: tok.Line, Where: where, Message: msg})
}

// synchronize discards tokens until a likely statement boundary, the
// panic-mode recovery step after a parse error.
func (p *Parser) synchronize() {
	p.panicMode = false
	for p.current.Type != lexer.EOF {
		if p.previous.Type == lexer.Semicolon {
			return
		}
		switch p.current.Type {
		case lexer.Class, lexer.Fun, lexer.Var, lexer.For, lexer.If, lexer.While, lexer.Print, lexer.Return:
			return
		}
		p.advance()
	}
}

// ---- emission helpers ----

func (p *Parser) chunk() *Chunk { return p.comp.function.Chunk }

func (p *Parser) emitByte(b byte) { p.chunk().Write(b, p.previous.Line) }
func (p *Parser) emitOp(op OpCode) { p.chunk().WriteOp(op, p.previous.Line) }
func (p *Parser) emitOpByte(op OpCode, operand byte) {
	p.emitOp(op)
	p.emitByte(operand)
}

// emitIndexed picks the short opcode variant whenever the constant-pool
// index fits in a byte, otherwise the long (uint16-operand) variant.
func (p *Parser) emitIndexed(short, long OpCode, index int) {
	if index <= 0xFF {
		p.emitOp(short)
		p.emitByte(byte(index))
		return
	}
	p.emitOp(long)
	p.chunk().WriteUint16(uint16(index), p.previous.Line)
}

func (p *Parser) emitConstant(v Value) {
	idx := p.chunk().AddConstant(v)
	p.emitIndexed(OpConstant, OpConstantLong, idx)
}

func (p *Parser) emitJump(op OpCode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.chunk().Code) - 2
}

func (p *Parser) patchJump(offset int) {
	jump := len(p.chunk().Code) - offset - 2
	if jump > 0xFFFF {
		p.error("Too much code to jump over.")
	}
	p.chunk().Code[offset] = byte(jump >> 8)
	p.chunk().Code[offset+1] = byte(jump)
}

func (p *Parser) emitLoop(loopStart int) {
	p.emitOp(OpJumpBackwards)
	offset := len(p.chunk().Code) - loopStart + 2
	if offset > 0xFFFF {
		p.error("Loop body too large.")
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset))
}

func (p *Parser) emitReturn() {
	if p.comp.fnType == funcInitializer {
		p.emitOpByte(OpGetLocal, 0)
		p.emitOp(OpReturn)
		return
	}
	p.emitOp(OpReturnNil)
}

func (p *Parser) endCompiler() *ObjFunction {
	p.emitReturn()
	fn := p.comp.function
	p.vm.compilerRoots = p.vm.compilerRoots[:len(p.vm.compilerRoots)-1]
	p.comp = p.comp.enclosing
	return fn
}

// identifierConstant interns name and adds (or reuses, per the function's
// local dedup table) its pool slot.
func (p *Parser) identifierConstant(name string) int {
	if idx, ok := p.comp.stringConsts[name]; ok {
		return idx
	}
	s := p.vm.gc.interner.intern(p.vm.gc, name)
	idx := p.chunk().AddConstant(ObjValue(s))
	p.comp.stringConsts[name] = idx
	return idx
}

// ---- scopes & locals ----

func (p *Parser) beginScope() { p.comp.scopeDepth++ }

func (p *Parser) endScope() {
	p.comp.scopeDepth--
	c := p.comp
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		last := c.locals[len(c.locals)-1]
		if last.isCaptured {
			p.emitOp(OpCloseUpvalue)
		} else {
			p.emitOp(OpPop)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

func (p *Parser) addLocal(name string) {
	if len(p.comp.locals) >= 256 {
		p.error("Too many local variables in function.")
		return
	}
	p.comp.locals = append(p.comp.locals, local{name: name, depth: -1})
}

func (p *Parser) declareVariable(name string) {
	if p.comp.scopeDepth == 0 {
		return
	}
	for i := len(p.comp.locals) - 1; i >= 0; i-- {
		l := p.comp.locals[i]
		if l.depth != -1 && l.depth < p.comp.scopeDepth {
			break
		}
		if l.name == name {
			p.error("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(name)
}

func (p *Parser) markInitialized() {
	if p.comp.scopeDepth == 0 {
		return
	}
	p.comp.locals[len(p.comp.locals)-1].depth = p.comp.scopeDepth
}

// parseVariable consumes an identifier and returns its constant-pool index
// (meaningless at local scope, where declareVariable already did the work).
func (p *Parser) parseVariable(errMsg string) int {
	p.consume(lexer.Identifier, errMsg)
	name := p.previous.Lexeme
	p.declareVariable(name)
	if p.comp.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(name)
}

func (p *Parser) defineVariable(global int) {
	if p.comp.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitIndexed(OpDefineGlobal, OpDefineGlobalLong, global)
}

func resolveLocal(p *Parser, c *Compiler, name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			if c.locals[i].depth == -1 {
				p.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func resolveUpvalue(p *Parser, c *Compiler, name string) int {
	if c.enclosing == nil {
		return -1
	}
	if local := resolveLocal(p, c.enclosing, name); local != -1 {
		c.enclosing.locals[local].isCaptured = true
		return addUpvalue(p, c, byte(local), true)
	}
	if up := resolveUpvalue(p, c.enclosing, name); up != -1 {
		return addUpvalue(p, c, byte(up), false)
	}
	return -1
}

func addUpvalue(p *Parser, c *Compiler, index byte, isLocal bool) int {
	for i, u := range c.upvalues {
		if u.index == index && u.isLocal == isLocal {
			return i
		}
	}
	if len(c.upvalues) >= 256 {
		p.error("Too many closure variables in function.")
		return 0
	}
	c.upvalues = append(c.upvalues, upvalueRef{index: index, isLocal: isLocal})
	c.function.UpvalueCount = len(c.upvalues)
	return len(c.upvalues) - 1
}

// ---- declarations & statements ----

func (p *Parser) declaration() {
	switch {
	case p.match(lexer.Class):
		p.classDeclaration()
	case p.match(lexer.Fun):
		p.funDeclaration()
	case p.match(lexer.Var):
		p.varDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *Parser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")
	if p.match(lexer.Equal) {
		p.expression()
	} else {
		p.emitOp(OpNil)
	}
	p.consume(lexer.Semicolon, "Expect ';' after variable declaration.")
	p.defineVariable(global)
}

func (p *Parser) funDeclaration() {
	global := p.parseVariable("Expect function name.")
	p.markInitialized()
	p.function(funcFunction)
	p.defineVariable(global)
}

func (p *Parser) function(t functionType) {
	inner := newCompiler(p, p.comp, t)
	p.comp = inner
	p.beginScope()

	p.consume(lexer.LeftParen, "Expect '(' after function name.")
	if !p.check(lexer.RightParen) {
		for {
			p.comp.function.Arity++
			if p.comp.function.Arity > 255 {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			paramConst := p.parseVariable("Expect parameter name.")
			p.defineVariable(paramConst)
			if !p.match(lexer.Comma) {
				break
			}
		}
	}
	p.consume(lexer.RightParen, "Expect ')' after parameters.")
	p.consume(lexer.LeftBrace, "Expect '{' before function body.")
	p.block()

	fn := p.endCompiler() // restores p.comp to inner.enclosing

	idx := p.chunk().AddConstant(ObjValue(fn))
	p.emitIndexed(OpClosure, OpClosureLong, idx)

	// Upvalue descriptors immediately follow the CLOSURE opcode and its
	// constant operand.
	for _, u := range inner.upvalues {
		isLocal := byte(0)
		if u.isLocal {
			isLocal = 1
		}
		p.emitByte(isLocal)
		p.emitByte(u.index)
	}
}
