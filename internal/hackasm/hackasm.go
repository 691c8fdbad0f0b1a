// Package hackasm assembles Hack assembly text into 16-bit machine code
// words, each rendered as a fixed-width binary string. Assembly runs in
// two passes: the first resolves every label to its ROM address, the
// second resolves every remaining symbolic @-reference (allocating a
// fresh RAM slot starting at 16 for anything not predefined or already a
// label) and encodes each instruction.
package hackasm

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/libklein/hackjack/internal/clierr"
)

var destBits = map[string]string{
	"":    "000",
	"M":   "001",
	"D":   "010",
	"MD":  "011",
	"DM":  "011",
	"A":   "100",
	"AM":  "101",
	"MA":  "101",
	"AD":  "110",
	"DA":  "110",
	"ADM": "111",
	"AMD": "111",
	"DAM": "111",
	"DMA": "111",
	"MAD": "111",
	"MDA": "111",
}

var jumpBits = map[string]string{
	"":    "000",
	"JGT": "001",
	"JEQ": "010",
	"JGE": "011",
	"JLT": "100",
	"JNE": "101",
	"JLE": "110",
	"JMP": "111",
}

var compBitsA0 = map[string]string{
	"0": "101010", "1": "111111", "-1": "111010",
	"D": "001100", "A": "110000", "!D": "001101", "!A": "110001",
	"-D": "001111", "-A": "110011", "D+1": "011111", "A+1": "110111",
	"D-1": "001110", "A-1": "110010", "D+A": "000010", "D-A": "010011",
	"A-D": "000111", "D&A": "000000", "D|A": "010101",
}

var compBitsA1 = map[string]string{
	"M": "110000", "!M": "110001", "-M": "110011", "M+1": "110111",
	"M-1": "110010", "D+M": "000010", "D-M": "010011", "M-D": "000111",
	"D&M": "000000", "D|M": "010101",
}

// PredefinedSymbols maps the fixed Hack memory-mapped symbols to their RAM
// addresses.
var PredefinedSymbols = map[string]uint16{
	"R0": 0, "R1": 1, "R2": 2, "R3": 3, "R4": 4, "R5": 5, "R6": 6, "R7": 7,
	"R8": 8, "R9": 9, "R10": 10, "R11": 11, "R12": 12, "R13": 13, "R14": 14,
	"R15": 15, "SCREEN": 16384, "KBD": 24576,
	"SP": 0, "LCL": 1, "ARG": 2, "THIS": 3, "THAT": 4,
}

const firstVariableSlot = 16

func isLabel(line string) bool {
	return strings.HasPrefix(line, "(") && strings.HasSuffix(line, ")")
}

func stripComment(line string) string {
	if idx := strings.Index(line, "//"); idx >= 0 {
		line = line[:idx]
	}
	return strings.TrimSpace(line)
}

// readLines reads r into trimmed, comment-stripped, non-blank lines.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := stripComment(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, clierr.New(clierr.IO, "%v", err)
	}
	return lines, nil
}

// labelPass records each (label) pseudo-instruction's target ROM address,
// which is the index of the next real instruction.
func labelPass(lines []string) map[string]uint16 {
	labels := make(map[string]uint16)
	var romAddr uint16
	for _, line := range lines {
		if isLabel(line) {
			name := strings.TrimSuffix(strings.TrimPrefix(line, "("), ")")
			labels[name] = romAddr
			continue
		}
		romAddr++
	}
	return labels
}

func encodeAInstruction(value uint16) string {
	bits := strconv.FormatUint(uint64(value), 2)
	return "0" + strings.Repeat("0", 15-len(bits)) + bits
}

func encodeCInstruction(body string) (string, error) {
	rhs := body
	dest := ""
	if idx := strings.Index(body, "="); idx >= 0 {
		dest = strings.TrimSpace(body[:idx])
		rhs = body[idx+1:]
	}
	jump := ""
	comp := rhs
	if idx := strings.Index(rhs, ";"); idx >= 0 {
		comp = rhs[:idx]
		jump = strings.TrimSpace(rhs[idx+1:])
	}
	comp = strings.TrimSpace(comp)

	destBit, ok := destBits[dest]
	if !ok {
		return "", clierr.New(clierr.Parse, "invalid destination %q", dest)
	}
	jumpBit, ok := jumpBits[jump]
	if !ok {
		return "", clierr.New(clierr.Parse, "invalid jump %q", jump)
	}
	a := "0"
	compBit, ok := compBitsA0[comp]
	if !ok {
		a = "1"
		compBit, ok = compBitsA1[comp]
		if !ok {
			return "", clierr.New(clierr.Parse, "invalid computation %q", comp)
		}
	}
	return "111" + a + compBit + destBit + jumpBit, nil
}

// Assemble turns Hack assembly text read from r into one binary machine
// word per line.
func Assemble(r io.Reader) ([]string, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}

	labels := labelPass(lines)
	variables := make(map[string]uint16)
	nextSlot := uint16(firstVariableSlot)
	cache := make(map[string]string)

	var out []string
	for _, line := range lines {
		if isLabel(line) {
			continue
		}
		if code, ok := cache[line]; ok {
			out = append(out, code)
			continue
		}

		var code string
		if strings.HasPrefix(line, "@") {
			ref := line[1:]
			var addr uint16
			switch {
			case ref != "" && ref[0] >= '0' && ref[0] <= '9':
				n, convErr := strconv.Atoi(ref)
				if convErr != nil {
					return nil, clierr.New(clierr.Parse, "invalid address %q", ref)
				}
				addr = uint16(n)
			case isKnown(ref, labels, variables):
				addr = resolve(ref, labels, variables)
			default:
				addr = nextSlot
				variables[ref] = nextSlot
				nextSlot++
			}
			code = encodeAInstruction(addr)
		} else {
			code, err = encodeCInstruction(line)
			if err != nil {
				return nil, err
			}
		}

		cache[line] = code
		out = append(out, code)
	}
	return out, nil
}

func isKnown(ref string, labels map[string]uint16, variables map[string]uint16) bool {
	if _, ok := labels[ref]; ok {
		return true
	}
	if _, ok := variables[ref]; ok {
		return true
	}
	_, predef := PredefinedSymbols[ref]
	return predef
}

func resolve(ref string, labels map[string]uint16, variables map[string]uint16) uint16 {
	if a, ok := labels[ref]; ok {
		return a
	}
	if a, ok := variables[ref]; ok {
		return a
	}
	return PredefinedSymbols[ref]
}
