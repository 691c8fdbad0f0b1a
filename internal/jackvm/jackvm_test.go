package jackvm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/libklein/hackjack/internal/jackvm"
)

func TestTextWriter_PushPopArithmetic(t *testing.T) {
	w := jackvm.NewTextWriter()
	w.WritePush(jackvm.Constant, 7)
	w.WritePop(jackvm.Local, 2)
	w.WriteArithmetic(jackvm.Add)
	w.WriteArithmetic(jackvm.Not)

	require.Equal(t, []string{
		"push constant 7",
		"pop local 2",
		"add",
		"not",
	}, w.Lines())
}

func TestTextWriter_ControlFlowAndFunctions(t *testing.T) {
	w := jackvm.NewTextWriter()
	w.WriteLabel("LOOP")
	w.WriteGoto("LOOP")
	w.WriteIf("LOOP")
	w.WriteFunction("Main.run", 3)
	w.WriteCall("Math.multiply", 2)
	w.WriteReturn()

	require.Equal(t, []string{
		"label LOOP",
		"goto LOOP",
		"if-goto LOOP",
		"function Main.run 3",
		"call Math.multiply 2",
		"return",
	}, w.Lines())
}

func TestTextWriter_StringConstantBuildsCharByChar(t *testing.T) {
	w := jackvm.NewTextWriter()
	w.WriteStringConstant("Hi")

	require.Equal(t, []string{
		"push constant 2",
		"call String.new 1",
		"push constant 72",
		"call String.appendChar 2",
		"push constant 105",
		"call String.appendChar 2",
	}, w.Lines())
}

func TestTextWriter_EmptyStringStillAllocates(t *testing.T) {
	w := jackvm.NewTextWriter()
	w.WriteStringConstant("")

	require.Equal(t, []string{
		"push constant 0",
		"call String.new 1",
	}, w.Lines())
}
