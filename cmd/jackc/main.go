// Command jackc compiles Jack source files (.jack) into VM command files
// (.vm), one output file per input class.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/libklein/hackjack/internal/applog"
	"github.com/libklein/hackjack/internal/clierr"
	"github.com/libklein/hackjack/internal/compiler"
	"github.com/libklein/hackjack/internal/jackvm"
	"github.com/libklein/hackjack/internal/lexer"
)

func removeExtension(path string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)]
}

func collectJackFiles(fileOrDir string) ([]string, error) {
	stat, err := os.Stat(fileOrDir)
	if err != nil {
		return nil, fmt.Errorf("cannot stat %q: %w", fileOrDir, err)
	}
	if !stat.IsDir() {
		return []string{fileOrDir}, nil
	}

	entries, err := os.ReadDir(fileOrDir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %q: %w", fileOrDir, err)
	}
	var files []string
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".jack" {
			files = append(files, filepath.Join(fileOrDir, entry.Name()))
		}
	}
	return files, nil
}

func compileFile(path string) (outputPath string, err error) {
	in, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %q: %w", path, err)
	}
	defer in.Close()

	outputPath = removeExtension(path) + ".vm"
	out, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return outputPath, fmt.Errorf("create %q: %w", outputPath, err)
	}
	defer out.Close()

	l := lexer.New(in)
	w := jackvm.NewTextWriter()

	if cerr := clierr.Recover(func() {
		compiler.New(l, w).Compile()
	}); cerr != nil {
		return outputPath, cerr
	}

	for _, line := range w.Lines() {
		fmt.Fprintln(out, line)
	}
	return outputPath, nil
}

func main() {
	target := flag.String("d", "", ".jack file to compile or directory containing .jack files")
	flag.Parse()

	log := &applog.Logger{}
	log.SetOutput(os.Stderr)

	if *target == "" {
		flag.Usage()
		os.Exit(2)
	}

	files, err := collectJackFiles(*target)
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(log.ExitCode())
	}

	for _, file := range files {
		log.Printf("INFO", "compiling %s", file)
		outputPath, err := compileFile(file)
		if err != nil {
			log.Errorf("%s: %v", file, err)
			break
		}
		log.Printf("INFO", "wrote %s", outputPath)
	}
	os.Exit(log.ExitCode())
}
