// Package jackvm defines the VM instruction vocabulary shared by the
// compiler (which emits it) and the translator (which parses and lowers
// it): the eight memory segments, the nine arithmetic/logical operations,
// and the textual line-based command syntax.
//
// Multiplication and division are not VM operations at all: they lower
// directly to call Math.multiply/divide at the expression level, so they never
// appear in this package's Op enum.
package jackvm

import "fmt"

// Segment is one of the eight addressable VM memory segments.
type Segment string

const (
	Constant Segment = "constant"
	Argument Segment = "argument"
	Local    Segment = "local"
	Static   Segment = "static"
	This     Segment = "this"
	That     Segment = "that"
	Pointer  Segment = "pointer"
	Temp     Segment = "temp"
)

// Op is one of the nine VM arithmetic/logical commands.
type Op string

const (
	Add Op = "add"
	Sub Op = "sub"
	Neg Op = "neg"
	Eq  Op = "eq"
	Gt  Op = "gt"
	Lt  Op = "lt"
	And Op = "and"
	Or  Op = "or"
	Not Op = "not"
)

// Word is a 16-bit VM/machine value.
type Word = uint16

// Writer emits a VM command stream as text, one command per line. It is the
// interface the Jack compiler codes against (internal/compiler) so that
// code generation and output formatting stay decoupled.
type Writer interface {
	WritePush(seg Segment, index Word)
	WritePop(seg Segment, index Word)
	WriteArithmetic(op Op)
	WriteLabel(name string)
	WriteGoto(name string)
	WriteIf(name string)
	WriteCall(name string, nargs Word)
	WriteFunction(name string, nlocals Word)
	WriteReturn()
	// WriteStringConstant emits the push/call sequence that builds a
	// String object holding s, leaving its pointer on top of the stack.
	WriteStringConstant(s string)
}

// TextWriter writes a VM command per Write* call as a plain text line.
type TextWriter struct {
	lines []string
}

// NewTextWriter creates an empty TextWriter.
func NewTextWriter() *TextWriter {
	return &TextWriter{}
}

// Lines returns every command line written so far, in order.
func (w *TextWriter) Lines() []string {
	return w.lines
}

func (w *TextWriter) emit(format string, args ...interface{}) {
	w.lines = append(w.lines, fmt.Sprintf(format, args...))
}

func (w *TextWriter) WritePush(seg Segment, index Word) { w.emit("push %s %d", seg, index) }
func (w *TextWriter) WritePop(seg Segment, index Word)  { w.emit("pop %s %d", seg, index) }

func (w *TextWriter) WriteArithmetic(op Op) { w.emit("%s", op) }

func (w *TextWriter) WriteLabel(name string)  { w.emit("label %s", name) }
func (w *TextWriter) WriteGoto(name string)   { w.emit("goto %s", name) }
func (w *TextWriter) WriteIf(name string)     { w.emit("if-goto %s", name) }
func (w *TextWriter) WriteReturn()            { w.emit("return") }

func (w *TextWriter) WriteCall(name string, nargs Word) {
	w.emit("call %s %d", name, nargs)
}

func (w *TextWriter) WriteFunction(name string, nlocals Word) {
	w.emit("function %s %d", name, nlocals)
}

func (w *TextWriter) WriteStringConstant(s string) {
	w.WritePush(Constant, Word(len(s)))
	w.WriteCall("String.new", 1)
	// String.appendChar returns this, so the object reference stays on top
	// of the stack across the whole chain with no temp storage needed.
	for _, c := range s {
		w.WritePush(Constant, Word(c))
		w.WriteCall("String.appendChar", 2)
	}
}
