package compiler_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/libklein/hackjack/internal/clierr"
	"github.com/libklein/hackjack/internal/compiler"
	"github.com/libklein/hackjack/internal/jackvm"
	"github.com/libklein/hackjack/internal/lexer"
)

func compileSrc(t *testing.T, src string) []string {
	t.Helper()
	l := lexer.New(strings.NewReader(src))
	w := jackvm.NewTextWriter()
	cerr := clierr.Recover(func() {
		compiler.New(l, w).Compile()
	})
	require.Nil(t, cerr, "unexpected compile error: %v", cerr)
	return w.Lines()
}

func TestCompile_SimpleFunctionReturningConstant(t *testing.T) {
	lines := compileSrc(t, `
class Main {
    function int compute() {
        return 7;
    }
}`)
	require.Equal(t, []string{
		"function Main.compute 0",
		"push constant 7",
		"return",
	}, lines)
}

func TestCompile_FlatLeftAssociativeExpression(t *testing.T) {
	// 1 + 2 + 3 must apply two adds in sequence, not collapse to one.
	lines := compileSrc(t, `
class Main {
    function int compute() {
        return 1 + 2 + 3;
    }
}`)
	require.Equal(t, []string{
		"function Main.compute 0",
		"push constant 1",
		"push constant 2",
		"add",
		"push constant 3",
		"add",
		"return",
	}, lines)
}

func TestCompile_MultiplyAndDivideLowerToMathCalls(t *testing.T) {
	lines := compileSrc(t, `
class Main {
    function int compute() {
        return 6 * 7 / 2;
    }
}`)
	require.Equal(t, []string{
		"function Main.compute 0",
		"push constant 6",
		"push constant 7",
		"call Math.multiply 2",
		"push constant 2",
		"call Math.divide 2",
		"return",
	}, lines)
}

func TestCompile_ConstructorAllocatesAndSetsThis(t *testing.T) {
	lines := compileSrc(t, `
class Point {
    field int x, y;
    constructor Point new(int ax, int ay) {
        let x = ax;
        let y = ay;
        return this;
    }
}`)
	require.Equal(t, []string{
		"function Point.new 0",
		"push constant 2",
		"call Memory.alloc 1",
		"pop pointer 0",
		"push argument 0",
		"pop this 0",
		"push argument 1",
		"pop this 1",
		"push pointer 0",
		"return",
	}, lines)
}

func TestCompile_MethodPushesThisAsArgument0(t *testing.T) {
	lines := compileSrc(t, `
class Point {
    field int x;
    method int getX() {
        return x;
    }
}`)
	require.Equal(t, []string{
		"function Point.getX 0",
		"push argument 0",
		"pop pointer 0",
		"push this 0",
		"return",
	}, lines)
}

func TestCompile_MainIsNeverSpecialCasedAsMethod(t *testing.T) {
	// A function literally named "main" must still compile as a plain
	// function: no implicit this-binding, no pointer-0 setup.
	lines := compileSrc(t, `
class Main {
    function void main() {
        do Main.run();
        return;
    }
}`)
	require.Equal(t, []string{
		"function Main.main 0",
		"call Main.run 0",
		"pop temp 0",
		"push constant 0",
		"return",
	}, lines)
}

func TestCompile_WhileEmitsLoopAndExitLabels(t *testing.T) {
	lines := compileSrc(t, `
class Main {
    function void run() {
        while (true) {
            return;
        }
        return;
    }
}`)
	require.Equal(t, []string{
		"function Main.run 0",
		"label L0_BEGIN",
		"push constant 0",
		"not",
		"not",
		"if-goto L0_EXIT",
		"push constant 0",
		"return",
		"goto L0_BEGIN",
		"label L0_EXIT",
		"push constant 0",
		"return",
	}, lines)
}

func TestCompile_IfElseEmitsThenElseEndLabels(t *testing.T) {
	lines := compileSrc(t, `
class Main {
    function void run() {
        if (false) {
            return;
        } else {
            return;
        }
    }
}`)
	require.Equal(t, []string{
		"function Main.run 0",
		"push constant 0",
		"if-goto L0_THEN",
		"goto L0_ELSE",
		"label L0_THEN",
		"push constant 0",
		"return",
		"goto L0_END",
		"label L0_ELSE",
		"push constant 0",
		"return",
		"label L0_END",
	}, lines)
}

func TestCompile_ArrayAssignmentUsesTempAndPointerOneDance(t *testing.T) {
	lines := compileSrc(t, `
class Main {
    function void run() {
        var Array a;
        let a[0] = 5;
        return;
    }
}`)
	require.Equal(t, []string{
		"function Main.run 1",
		"push constant 0",
		"push local 0",
		"add",
		"push constant 5",
		"pop temp 0",
		"pop pointer 1",
		"push temp 0",
		"pop that 0",
		"push constant 0",
		"return",
	}, lines)
}

func TestCompile_StringConstantBuildsCharByChar(t *testing.T) {
	lines := compileSrc(t, `
class Main {
    function void run() {
        do Output.printString("hi");
        return;
    }
}`)
	require.Equal(t, []string{
		"function Main.run 0",
		"push constant 2",
		"call String.new 1",
		"push constant 104",
		"call String.appendChar 2",
		"push constant 105",
		"call String.appendChar 2",
		"call Output.printString 1",
		"pop temp 0",
		"push constant 0",
		"return",
	}, lines)
}

func TestCompile_UndeclaredVariableFailsAsSymbolError(t *testing.T) {
	l := lexer.New(strings.NewReader(`
class Main {
    function void run() {
        return missing;
    }
}`))
	w := jackvm.NewTextWriter()
	cerr := clierr.Recover(func() {
		compiler.New(l, w).Compile()
	})
	require.NotNil(t, cerr)
	require.Equal(t, clierr.Symbol, cerr.Kind)
}

func TestCompile_MismatchedBraceFailsAsParseError(t *testing.T) {
	l := lexer.New(strings.NewReader(`
class Main {
    function void run() {
        return;
    }
`))
	w := jackvm.NewTextWriter()
	cerr := clierr.Recover(func() {
		compiler.New(l, w).Compile()
	})
	require.NotNil(t, cerr)
	require.Equal(t, clierr.Parse, cerr.Kind)
}
