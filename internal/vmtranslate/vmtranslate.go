// Package vmtranslate lowers a stream of VM commands (internal/jackvm's
// text syntax) into Hack assembly. Each source unit gets its own static
// variable namespace; labels minted for eq/gt/lt and for each call's
// return site are unique across the whole translation run.
package vmtranslate

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/libklein/hackjack/internal/clierr"
	"github.com/libklein/hackjack/internal/jackvm"
)

// Kind distinguishes the command shapes the VM language supports beyond
// the plain arithmetic/logical ops of jackvm.Op.
type Kind string

const (
	KindPush       Kind = "push"
	KindPop        Kind = "pop"
	KindArithmetic Kind = "arithmetic"
	KindLabel      Kind = "label"
	KindGoto       Kind = "goto"
	KindIfGoto     Kind = "if-goto"
	KindFunction   Kind = "function"
	KindCall       Kind = "call"
	KindReturn     Kind = "return"
)

// Command is one parsed VM instruction.
type Command struct {
	Kind    Kind
	Segment jackvm.Segment
	Op      jackvm.Op
	Name    string
	Index   uint16
}

// Line pairs a parsed Command with the trimmed source text it came from,
// so a Translator can optionally echo it back as an assembly comment.
type Line struct {
	Command Command
	Source  string
}

var segmentNames = map[string]jackvm.Segment{
	"constant": jackvm.Constant,
	"argument": jackvm.Argument,
	"local":    jackvm.Local,
	"static":   jackvm.Static,
	"this":     jackvm.This,
	"that":     jackvm.That,
	"pointer":  jackvm.Pointer,
	"temp":     jackvm.Temp,
}

var arithmeticOps = map[string]jackvm.Op{
	"add": jackvm.Add, "sub": jackvm.Sub, "neg": jackvm.Neg,
	"eq": jackvm.Eq, "gt": jackvm.Gt, "lt": jackvm.Lt,
	"and": jackvm.And, "or": jackvm.Or, "not": jackvm.Not,
}

// ParseUnit reads every non-blank, non-comment VM command line from r.
func ParseUnit(r io.Reader) ([]Line, error) {
	var lines []Line
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		if idx := strings.Index(raw, "//"); idx >= 0 {
			raw = raw[:idx]
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		cmd, err := parseCommand(raw)
		if err != nil {
			return nil, clierr.New(clierr.Parse, "line %d: %v", lineNo, err)
		}
		lines = append(lines, Line{Command: cmd, Source: raw})
	}
	if err := scanner.Err(); err != nil {
		return nil, clierr.New(clierr.IO, "%v", err)
	}
	return lines, nil
}

func parseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}

	switch fields[0] {
	case "push", "pop":
		if len(fields) != 3 {
			return Command{}, fmt.Errorf("malformed %s command %q", fields[0], line)
		}
		seg, ok := segmentNames[fields[1]]
		if !ok {
			return Command{}, fmt.Errorf("unknown segment %q", fields[1])
		}
		idx, err := strconv.Atoi(fields[2])
		if err != nil || idx < 0 {
			return Command{}, fmt.Errorf("bad index in %q", line)
		}
		kind := KindPush
		if fields[0] == "pop" {
			kind = KindPop
		}
		return Command{Kind: kind, Segment: seg, Index: uint16(idx)}, nil

	case "label", "goto", "if-goto":
		if len(fields) != 2 {
			return Command{}, fmt.Errorf("malformed %s command %q", fields[0], line)
		}
		kind := map[string]Kind{"label": KindLabel, "goto": KindGoto, "if-goto": KindIfGoto}[fields[0]]
		return Command{Kind: kind, Name: fields[1]}, nil

	case "function", "call":
		if len(fields) != 3 {
			return Command{}, fmt.Errorf("malformed %s command %q", fields[0], line)
		}
		n, err := strconv.Atoi(fields[2])
		if err != nil || n < 0 {
			return Command{}, fmt.Errorf("bad count in %q", line)
		}
		kind := KindFunction
		if fields[0] == "call" {
			kind = KindCall
		}
		return Command{Kind: kind, Name: fields[1], Index: uint16(n)}, nil

	case "return":
		if len(fields) != 1 {
			return Command{}, fmt.Errorf("malformed return command %q", line)
		}
		return Command{Kind: KindReturn}, nil

	default:
		op, ok := arithmeticOps[fields[0]]
		if !ok || len(fields) != 1 {
			return Command{}, fmt.Errorf("unrecognized command %q", line)
		}
		return Command{Kind: KindArithmetic, Op: op}, nil
	}
}

// Unit is one VM source file's parsed command stream, named for static
// variable namespacing (e.g. "Main.vm" -> "Main").
type Unit struct {
	Name  string
	Lines []Line
}

// Options controls optional output features.
type Options struct {
	// Bootstrap prepends SP=256; call Sys.init 0.
	Bootstrap bool
	// Comments echoes each source line as a preceding // comment.
	Comments bool
}

// segmentBase names the assembly symbol a non-constant, non-static
// segment is based at.
func segmentBase(seg jackvm.Segment) string {
	switch seg {
	case jackvm.Local:
		return "LCL"
	case jackvm.Argument:
		return "ARG"
	case jackvm.This:
		return "THIS"
	case jackvm.That:
		return "THAT"
	case jackvm.Pointer:
		return "3"
	case jackvm.Temp:
		return "5"
	default:
		return ""
	}
}

var binaryComp = map[jackvm.Op]string{jackvm.Add: "D+A", jackvm.Sub: "A-D", jackvm.And: "D&A", jackvm.Or: "D|A"}
var unaryComp = map[jackvm.Op]string{jackvm.Neg: "-D", jackvm.Not: "!D"}
var jumpComp = map[jackvm.Op]string{jackvm.Eq: "JEQ", jackvm.Gt: "JGT", jackvm.Lt: "JLT"}

// Translator lowers VM Units to Hack assembly text. A single Translator
// must be used for an entire program so labelID stays unique across units.
type Translator struct {
	out     []string
	labelID uint64
}

// NewTranslator creates an empty Translator.
func NewTranslator() *Translator {
	return &Translator{}
}

// Lines returns the accumulated assembly text, one instruction per line.
func (t *Translator) Lines() []string {
	return t.out
}

func (t *Translator) emit(instrs ...string) {
	t.out = append(t.out, instrs...)
}

func (t *Translator) freshLabel() string {
	t.labelID++
	return strconv.FormatUint(t.labelID, 10)
}

// Bootstrap emits the SP=256 initialization and a call to Sys.init.
func (t *Translator) Bootstrap() {
	t.emit("@256", "D=A", "@SP", "M=D")
	t.emitCall("Sys.init", 0)
}

// Translate lowers every unit in order into this Translator's output.
func (t *Translator) Translate(units []Unit, opts Options) {
	if opts.Bootstrap {
		if opts.Comments {
			t.emit("// bootstrap")
		}
		t.Bootstrap()
	}
	for _, u := range units {
		if opts.Comments {
			t.emit(fmt.Sprintf("// file: %s", u.Name))
		}
		for _, line := range u.Lines {
			if opts.Comments {
				t.emit("// " + line.Source)
			}
			t.translateOne(u.Name, line.Command)
		}
	}
}

func (t *Translator) translateOne(unit string, c Command) {
	switch c.Kind {
	case KindPush:
		t.emitPush(unit, c.Segment, c.Index)
	case KindPop:
		t.emitPop(unit, c.Segment, c.Index)
	case KindArithmetic:
		t.emitArithmetic(c.Op)
	case KindLabel:
		t.emit("(" + c.Name + ")")
	case KindGoto:
		t.emit("@"+c.Name, "0;JMP")
	case KindIfGoto:
		t.emit("@SP", "M=M-1", "A=M", "D=M", "@"+c.Name, "D;JNE")
	case KindFunction:
		t.emitFunction(c.Name, c.Index)
	case KindCall:
		t.emitCall(c.Name, c.Index)
	case KindReturn:
		t.emitReturn()
	}
}

func (t *Translator) pushD() {
	t.emit("@SP", "A=M", "M=D", "@SP", "M=M+1")
}

func (t *Translator) emitPush(unit string, seg jackvm.Segment, index uint16) {
	n := strconv.Itoa(int(index))
	switch seg {
	case jackvm.Constant:
		t.emit("@"+n, "D=A")
	case jackvm.Static:
		t.emit(fmt.Sprintf("@%s.%d", unit, index), "D=M")
	case jackvm.Pointer, jackvm.Temp:
		t.emit("@"+n, "D=A", "@"+segmentBase(seg), "A=D+A", "D=M")
	default:
		t.emit("@"+n, "D=A", "@"+segmentBase(seg), "A=M", "A=D+A", "D=M")
	}
	t.pushD()
}

func (t *Translator) emitPop(unit string, seg jackvm.Segment, index uint16) {
	n := strconv.Itoa(int(index))
	if seg == jackvm.Static {
		t.emit("@SP", "M=M-1", "A=M", "D=M", fmt.Sprintf("@%s.%d", unit, index), "M=D")
		return
	}
	switch seg {
	case jackvm.Pointer, jackvm.Temp:
		t.emit("@"+n, "D=A", "@"+segmentBase(seg), "D=D+A")
	default:
		t.emit("@"+n, "D=A", "@"+segmentBase(seg), "A=M", "D=D+A")
	}
	t.emit("@R13", "M=D", "@SP", "M=M-1", "A=M", "D=M", "@R13", "A=M", "M=D")
}

func (t *Translator) emitArithmetic(op jackvm.Op) {
	switch {
	case op == jackvm.Add || op == jackvm.Sub || op == jackvm.And || op == jackvm.Or:
		t.emit("@SP", "M=M-1", "A=M", "D=M", "@SP", "M=M-1", "A=M", "A=M", "D="+binaryComp[op])
		t.pushD()
	case op == jackvm.Neg || op == jackvm.Not:
		t.emit("@SP", "M=M-1", "A=M", "D=M", "D="+unaryComp[op])
		t.pushD()
	default:
		label := t.freshLabel()
		t.emit("@SP", "M=M-1", "A=M", "D=M", "@SP", "M=M-1", "A=M", "A=M", "D=A-D",
			"@SP", "A=M", "M=-1", "@JL"+label, "D;"+jumpComp[op],
			"@SP", "A=M", "M=0", "(JL"+label+")", "@SP", "M=M+1")
	}
}

func (t *Translator) emitFunction(name string, nlocals uint16) {
	t.emit("(" + name + ")")
	for i := uint16(0); i < nlocals; i++ {
		t.emit("@0", "D=A")
		t.pushD()
	}
}

func (t *Translator) emitCall(name string, nargs uint16) {
	label := t.freshLabel()
	retLabel := "L" + label
	t.emit("@"+retLabel, "D=A")
	t.pushD()
	for _, seg := range []string{"LCL", "ARG", "THIS", "THAT"} {
		t.emit("@"+seg, "D=M")
		t.pushD()
	}
	t.emit("@SP", "D=M", "@LCL", "M=D",
		"@5", "D=D-A", "@"+strconv.Itoa(int(nargs)), "D=D-A", "@ARG", "M=D",
		"@"+name, "0;JMP", "("+retLabel+")")
}

func (t *Translator) emitReturn() {
	t.emit(
		"@LCL", "D=M", "@R13", "M=D",
		"@5", "A=D-A", "D=M", "@R14", "M=D",
		"@SP", "M=M-1", "A=M", "D=M", "@ARG", "A=M", "M=D",
		"@ARG", "D=M+1", "@SP", "M=D",
		"@R13", "M=M-1", "A=M", "D=M", "@THAT", "M=D",
		"@R13", "M=M-1", "A=M", "D=M", "@THIS", "M=D",
		"@R13", "M=M-1", "A=M", "D=M", "@ARG", "M=D",
		"@R13", "M=M-1", "A=M", "D=M", "@LCL", "M=D",
		"@R14", "A=M", "0;JMP",
	)
}
