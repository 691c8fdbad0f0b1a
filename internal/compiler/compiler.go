// Package compiler implements the recursive-descent Jack compiler: it
// parses one class per Scanner and emits its VM translation as a side
// effect of parsing, with no intermediate syntax tree.
//
// The method-per-production structure, one-token lookahead, and
// panic-on-mismatch error style follow a classic recursive-descent
// parser/codegen design. Three things are worth calling out:
//
//   - compileExpression loops over every (op term) pair instead of
//     applying at most one operator, since Jack expressions are flat,
//     left-associative chains of arbitrarily many operators.
//   - '*' and '/' are lowered to call Math.multiply/Math.divide directly at
//     the operator-dispatch site, never as a VM-level arithmetic op.
//   - subroutine kind (method vs. function vs. constructor) is taken
//     solely from the declared keyword; a subroutine literally named
//     "main" is never special-cased as a method.
package compiler

import (
	"fmt"

	"github.com/libklein/hackjack/internal/clierr"
	"github.com/libklein/hackjack/internal/jackvm"
	"github.com/libklein/hackjack/internal/symtab"
	"github.com/libklein/hackjack/internal/token"
)

// Scanner is the token source a Compiler consumes. internal/lexer.Lexer
// implements it; tests can substitute a canned token sequence.
type Scanner interface {
	Token() token.Token
	Scan() bool
	Err() error
}

// Kind distinguishes the three subroutine declaration forms.
type Kind string

const (
	Constructor Kind = "constructor"
	Function    Kind = "function"
	Method      Kind = "method"
)

// Compiler parses and translates one Jack class unit.
type Compiler struct {
	scanner   Scanner
	symbols   *symtab.SymbolTable
	out       jackvm.Writer
	className string
	nextLabel uint64
}

// New creates a Compiler reading tokens from scanner and writing VM commands
// to out.
func New(scanner Scanner, out jackvm.Writer) *Compiler {
	return &Compiler{scanner: scanner, symbols: symtab.New(), out: out}
}

// Compile parses and emits the single Jack class found on the scanner.
// Compile panics with a *clierr.Error on any malformed input; callers at a
// CLI boundary should wrap the call in clierr.Recover.
func (c *Compiler) Compile() {
	c.advance()
	c.compileClass()
}

func (c *Compiler) freshLabel() string {
	id := c.nextLabel
	c.nextLabel++
	return fmt.Sprintf("L%d", id)
}

func (c *Compiler) cur() token.Token {
	return c.scanner.Token()
}

func (c *Compiler) advance() token.Token {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			panic(err)
		}
		clierr.Fail(clierr.Parse, "unexpected end of input")
	}
	return c.cur()
}

// consume checks the current token against each expected terminal in turn,
// advancing past each on a match and panicking with a ParseError on the
// first mismatch. Calling consume() with no arguments just advances.
func (c *Compiler) consume(expected ...string) {
	if len(expected) == 0 {
		c.advance()
		return
	}
	for _, term := range expected {
		if !c.cur().Is(term) {
			clierr.Fail(clierr.Parse, "expected %q, got %q", term, c.cur().Terminal)
		}
		c.advance()
	}
}

func (c *Compiler) expectIdentifier() string {
	tok := c.cur()
	if tok.Type != token.Identifier {
		clierr.Fail(clierr.Parse, "expected identifier, got %q", tok.Terminal)
	}
	c.advance()
	return tok.Terminal
}

// ---- class ----

func (c *Compiler) compileClass() {
	c.consume("class")
	c.symbols.ResetClass()

	c.className = c.expectIdentifier()

	c.consume("{")
	for c.compileClassVarDec() {
	}
	for c.compileSubroutineDec() {
	}
	if !c.cur().Is("}") {
		clierr.Fail(clierr.Parse, "expected '}' to close class %q, got %q", c.className, c.cur().Terminal)
	}
	if c.scanner.Scan() {
		clierr.Fail(clierr.Parse, "unexpected token %q after end of class %q", c.cur().Terminal, c.className)
	}
}

func (c *Compiler) compileClassVarDec() bool {
	switch {
	case c.cur().Is("static"):
		c.consume("static")
		c.compileVarSequence(symtab.Static, true)
		return true
	case c.cur().Is("field"):
		c.consume("field")
		c.compileVarSequence(symtab.Field, true)
		return true
	default:
		return false
	}
}

// compileVarSequence parses `type Id (',' Id)* ';'` and declares each name
// at the given Kind, in the class table when classScope is true or the
// subroutine table otherwise. The caller reads back how many were declared
// via the table's own kind_count (symtab.SymbolTable.ClassCount /
// SubroutineCount) rather than a returned count.
func (c *Compiler) compileVarSequence(kind symtab.Kind, classScope bool) {
	typeName := c.expectType()
	for {
		name := c.expectIdentifier()
		if classScope {
			c.symbols.DefineClass(name, typeName, kind)
		} else {
			c.symbols.DefineSubroutine(name, typeName, kind)
		}
		if c.cur().Is(",") {
			c.consume(",")
			continue
		}
		break
	}
	c.consume(";")
}

func (c *Compiler) expectType() string {
	tok := c.cur()
	if tok.Is("int", "char", "boolean") {
		c.advance()
		return tok.Terminal
	}
	return c.expectIdentifier()
}

// ---- subroutines ----

func (c *Compiler) compileSubroutineDec() bool {
	tok := c.cur()
	var kind Kind
	switch {
	case tok.Is("constructor"):
		kind = Constructor
	case tok.Is("function"):
		kind = Function
	case tok.Is("method"):
		kind = Method
	default:
		return false
	}
	c.consume()

	c.symbols.ResetSubroutine()
	if kind == Method {
		c.symbols.DefineSubroutine("this", c.className, symtab.Argument)
	}

	// return type: void or a type
	if !c.cur().Is("void") {
		c.expectType()
	} else {
		c.consume("void")
	}

	name := c.expectIdentifier()

	c.consume("(")
	if !c.cur().Is(")") {
		c.compileParameterList()
	}
	c.consume(")")

	c.compileSubroutineBody(name, kind)
	return true
}

func (c *Compiler) compileParameterList() {
	for {
		typeName := c.expectType()
		name := c.expectIdentifier()
		c.symbols.DefineSubroutine(name, typeName, symtab.Argument)
		if c.cur().Is(",") {
			c.consume(",")
			continue
		}
		break
	}
}

func (c *Compiler) compileSubroutineBody(name string, kind Kind) {
	c.consume("{")

	for c.cur().Is("var") {
		c.consume("var")
		c.compileVarSequence(symtab.Local, false)
	}

	c.out.WriteFunction(c.className+"."+name, c.symbols.SubroutineCount(symtab.Local))

	switch kind {
	case Constructor:
		fields := c.symbols.ClassCount(symtab.Field)
		c.out.WritePush(jackvm.Constant, fields)
		c.out.WriteCall("Memory.alloc", 1)
		c.out.WritePop(jackvm.Pointer, 0)
	case Method:
		c.out.WritePush(jackvm.Argument, 0)
		c.out.WritePop(jackvm.Pointer, 0)
	}

	c.compileStatements()
	c.consume("}")
}

// ---- statements ----

func (c *Compiler) compileStatements() {
	for {
		switch {
		case c.cur().Is("let"):
			c.compileLet()
		case c.cur().Is("if"):
			c.compileIf()
		case c.cur().Is("while"):
			c.compileWhile()
		case c.cur().Is("do"):
			c.compileDo()
		case c.cur().Is("return"):
			c.compileReturn()
		default:
			return
		}
	}
}

func (c *Compiler) compileDo() {
	c.consume("do")
	c.compileSubroutineCallStatement()
	c.out.WritePop(jackvm.Temp, 0) // discard return value
	c.consume(";")
}

func (c *Compiler) compileLet() {
	c.consume("let")
	name := c.expectIdentifier()

	if c.cur().Is("[") {
		c.consume("[")
		c.generateArrayElemAddress(name)
		c.consume("]")

		c.consume("=")
		c.compileExpression()
		c.consume(";")

		// Stash the RHS value before finalizing THAT so evaluating the RHS
		// can't have clobbered the LHS address.
		c.out.WritePop(jackvm.Temp, 0)
		c.out.WritePop(jackvm.Pointer, 1)
		c.out.WritePush(jackvm.Temp, 0)
		c.out.WritePop(jackvm.That, 0)
		return
	}

	c.consume("=")
	c.compileExpression()
	c.consume(";")

	seg, idx := c.lookupVariable(name)
	c.out.WritePop(seg, idx)
}

func (c *Compiler) compileWhile() {
	c.consume("while", "(")
	label := c.freshLabel()
	begin, exit := label+"_BEGIN", label+"_EXIT"

	c.out.WriteLabel(begin)
	c.compileExpression()
	c.out.WriteArithmetic(jackvm.Not)
	c.out.WriteIf(exit)

	c.consume(")", "{")
	c.compileStatements()
	c.consume("}")

	c.out.WriteGoto(begin)
	c.out.WriteLabel(exit)
}

func (c *Compiler) compileReturn() {
	c.consume("return")
	if !c.cur().Is(";") {
		c.compileExpression()
	} else {
		c.out.WritePush(jackvm.Constant, 0)
	}
	c.out.WriteReturn()
	c.consume(";")
}

func (c *Compiler) compileIf() {
	c.consume("if", "(")
	label := c.freshLabel()
	then, els, end := label+"_THEN", label+"_ELSE", label+"_END"

	c.compileExpression()
	c.out.WriteIf(then)
	c.out.WriteGoto(els)
	c.out.WriteLabel(then)

	c.consume(")", "{")
	c.compileStatements()
	c.consume("}")

	if c.cur().Is("else") {
		c.out.WriteGoto(end)
		c.out.WriteLabel(els)
		c.consume("else", "{")
		c.compileStatements()
		c.consume("}")
		c.out.WriteLabel(end)
	} else {
		c.out.WriteLabel(els)
	}
}

// ---- expressions ----

var binaryOps = map[string]jackvm.Op{
	"+": jackvm.Add, "-": jackvm.Sub, "&": jackvm.And, "|": jackvm.Or,
	"<": jackvm.Lt, ">": jackvm.Gt, "=": jackvm.Eq,
}

func (c *Compiler) compileExpression() {
	c.compileTerm()
	for {
		tok := c.cur()
		switch tok.Terminal {
		case "*":
			c.advance()
			c.compileTerm()
			c.out.WriteCall("Math.multiply", 2)
		case "/":
			c.advance()
			c.compileTerm()
			c.out.WriteCall("Math.divide", 2)
		default:
			op, ok := binaryOps[tok.Terminal]
			if !ok || tok.Type != token.Symbol {
				return
			}
			c.advance()
			c.compileTerm()
			c.out.WriteArithmetic(op)
		}
	}
}

// compileExpressionList parses `(expression (',' expression)*)?` and
// returns how many expressions were compiled.
func (c *Compiler) compileExpressionList() (count uint16) {
	if c.cur().Is(")") {
		return 0
	}
	c.compileExpression()
	count++
	for c.cur().Is(",") {
		c.consume(",")
		c.compileExpression()
		count++
	}
	return count
}

// compileSubroutineCallStatement parses a bare subroutineCall appearing
// directly after `do`.
func (c *Compiler) compileSubroutineCallStatement() {
	name := c.expectIdentifier()
	c.compileSubroutineCall(name)
}

// compileSubroutineCall handles both forms of call once the leading
// identifier has already been consumed: `name(args)` (method call on the
// current object) and `name.sub(args)` (either a call on a known local
// object, or a qualified static/constructor call).
func (c *Compiler) compileSubroutineCall(name string) {
	switch {
	case c.cur().Is("("):
		// Unqualified call inside a method/constructor body: always a
		// method call on the current object.
		c.out.WritePush(jackvm.Pointer, 0)
		c.consume("(")
		nargs := 1 + c.compileExpressionList()
		c.consume(")")
		c.out.WriteCall(c.className+"."+name, nargs)

	case c.cur().Is("."):
		c.consume(".")
		method := c.expectIdentifier()

		var nargs uint16
		qualified := name
		if entry, ok := c.symbols.Lookup(name); ok {
			// name is a variable: push its value as the receiver (this
			// pointer) and dispatch on its declared type.
			seg, idx := entrySegment(entry)
			c.out.WritePush(seg, idx)
			nargs++
			qualified = entry.TypeName
		}

		c.consume("(")
		nargs += c.compileExpressionList()
		c.consume(")")
		c.out.WriteCall(qualified+"."+method, nargs)

	default:
		clierr.Fail(clierr.Parse, "expected '(' or '.' after %q, got %q", name, c.cur().Terminal)
	}
}

// entrySegment maps a symbol table entry to the VM segment/index pair used
// to push or pop it, via the table's own Kind.Segment() mapping.
func entrySegment(e symtab.Entry) (jackvm.Segment, jackvm.Word) {
	return jackvm.Segment(e.Kind.Segment()), jackvm.Word(e.Index)
}

// lookupVariable resolves name to a segment/index pair, failing with a
// SymbolError if it was never declared.
func (c *Compiler) lookupVariable(name string) (jackvm.Segment, jackvm.Word) {
	entry, ok := c.symbols.Lookup(name)
	if !ok {
		clierr.Fail(clierr.Symbol, "undeclared identifier %q", name)
	}
	return entrySegment(entry)
}

// generateArrayElemAddress compiles the bracketed index expression of
// `name[expr]` and leaves `base(name) + expr` on top of the stack (shared
// by let-array targets and array-read terms).
func (c *Compiler) generateArrayElemAddress(name string) {
	c.compileExpression()
	seg, idx := c.lookupVariable(name)
	c.out.WritePush(seg, idx)
	c.out.WriteArithmetic(jackvm.Add)
}

var unaryOps = map[string]jackvm.Op{"-": jackvm.Neg, "~": jackvm.Not}

// compileTerm parses and emits one `term` production, dispatching on the
// current token.
func (c *Compiler) compileTerm() {
	tok := c.cur()
	switch {
	case tok.IsType(token.IntConst):
		c.out.WritePush(jackvm.Constant, jackvm.Word(tok.Int()))
		c.advance()

	case tok.IsType(token.StrConst):
		c.out.WriteStringConstant(tok.Terminal)
		c.advance()

	case tok.Is("true"):
		c.out.WritePush(jackvm.Constant, 0)
		c.out.WriteArithmetic(jackvm.Not)
		c.advance()
	case tok.Is("false"), tok.Is("null"):
		c.out.WritePush(jackvm.Constant, 0)
		c.advance()
	case tok.Is("this"):
		c.out.WritePush(jackvm.Pointer, 0)
		c.advance()

	case tok.Is("("):
		c.consume("(")
		c.compileExpression()
		c.consume(")")

	case tok.Type == token.Symbol && unaryOps[tok.Terminal] != "":
		op := unaryOps[tok.Terminal]
		c.advance()
		c.compileTerm()
		c.out.WriteArithmetic(op)

	case tok.IsType(token.Identifier):
		c.compileIdentifierTerm()

	default:
		clierr.Fail(clierr.Parse, "unexpected token %q in expression", tok.Terminal)
	}
}

// compileIdentifierTerm handles the three productions that start with an
// identifier: a bare variable reference, an array read `name[expr]`, and a
// subroutine call (either form).
func (c *Compiler) compileIdentifierTerm() {
	name := c.expectIdentifier()

	switch {
	case c.cur().Is("["):
		c.consume("[")
		c.generateArrayElemAddress(name)
		c.consume("]")
		c.out.WritePop(jackvm.Pointer, 1)
		c.out.WritePush(jackvm.That, 0)

	case c.cur().Is("("), c.cur().Is("."):
		c.compileSubroutineCall(name)

	default:
		seg, idx := c.lookupVariable(name)
		c.out.WritePush(seg, idx)
	}
}
