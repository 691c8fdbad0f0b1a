// Command hackasm assembles a Hack assembly file (.asm) into a machine
// code file (.hack) of one binary word per line.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/libklein/hackjack/internal/applog"
	"github.com/libklein/hackjack/internal/hackasm"
)

func main() {
	src := flag.String("f", "", ".asm file to assemble")
	out := flag.String("o", "", "output .hack path (default: derived from -f)")
	flag.Parse()

	log := &applog.Logger{}
	log.SetOutput(os.Stderr)

	if *src == "" {
		flag.Usage()
		os.Exit(2)
	}

	dest := *out
	if dest == "" {
		dest = strings.TrimSuffix(*src, filepath.Ext(*src)) + ".hack"
	}

	in, err := os.Open(*src)
	if err != nil {
		log.Errorf("open %q: %v", *src, err)
		os.Exit(log.ExitCode())
	}
	defer in.Close()

	words, err := hackasm.Assemble(in)
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(log.ExitCode())
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		log.Errorf("create %q: %v", dest, err)
		os.Exit(log.ExitCode())
	}
	defer f.Close()

	for _, word := range words {
		fmt.Fprintln(f, word)
	}
	log.Printf("INFO", "wrote %s", dest)
	os.Exit(log.ExitCode())
}
