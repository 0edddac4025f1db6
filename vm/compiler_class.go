package vm

import "dyms/lexer"

// classDeclaration compiles a class: CLASS[_LONG] creates the class object
// and defines its name; an optional `< Super` clause binds a synthetic
// "super" local and emits the bulk-copy INHERIT; each method body compiles
// as its own nested function (METHOD or INITIALIZER), then METHOD[_LONG]
// installs it by name.
func (p *Parser) classDeclaration() {
	p.consume(lexer.Identifier, "Expect class name.")
	className := p.previous.Lexeme
	nameConst := p.identifierConstant(className)
	p.declareVariable(className)

	p.emitIndexed(OpClass, OpClassLong, nameConst)
	p.defineVariable(nameConst)

	cc := &classCompiler{enclosing: p.class}
	p.class = cc

	if p.match(lexer.Less) {
		p.consume(lexer.Identifier, "Expect superclass name.")
		p.variable(false)
		if p.previous.Lexeme == className {
			p.error("A class can't inherit from itself.")
		}

		p.beginScope()
		p.addLocal("super")
		p.defineVariable(0)

		p.namedVariable(className, false)
		p.emitOp(OpInherit)
		cc.hasSuperclass = true
	}

	p.namedVariable(className, false)
	p.consume(lexer.LeftBrace, "Expect '{' before class body.")
	for !p.check(lexer.RightBrace) && !p.check(lexer.EOF) {
		p.method()
	}
	p.consume(lexer.RightBrace, "Expect '}' after class body.")
	p.emitOp(OpPop) // the class value pushed for method binding

	if cc.hasSuperclass {
		p.endScope()
	}
	p.class = cc.enclosing
}

func (p *Parser) method() {
	p.consume(lexer.Identifier, "Expect method name.")
	name := p.previous.Lexeme
	nameConst := p.identifierConstant(name)

	t := funcMethod
	if name == "init" {
		t = funcInitializer
	}
	p.function(t)
	p.emitIndexed(OpMethod, OpMethodLong, nameConst)
}
