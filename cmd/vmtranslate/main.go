// Command vmtranslate lowers VM command files (.vm) into a single Hack
// assembly (.asm) file.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/libklein/hackjack/internal/applog"
	"github.com/libklein/hackjack/internal/clierr"
	"github.com/libklein/hackjack/internal/vmtranslate"
)

func collectVMFiles(fileOrDir string) ([]string, error) {
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
		if filepath.Ext(entry.Name()) == ".vm" {
			files = append(files, filepath.Join(fileOrDir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func loadUnit(path string) (vmtranslate.Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return vmtranslate.Unit{}, clierr.New(clierr.IO, "open %q: %v", path, err)
	}
	defer f.Close()

	lines, err := vmtranslate.ParseUnit(f)
	if err != nil {
		return vmtranslate.Unit{}, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return vmtranslate.Unit{Name: name, Lines: lines}, nil
}

func outputPath(target, explicit string) string {
	if explicit != "" {
		return explicit
	}
	stat, err := os.Stat(target)
	if err == nil && stat.IsDir() {
		return filepath.Join(target, filepath.Base(target)+".asm")
	}
	return strings.TrimSuffix(target, filepath.Ext(target)) + ".asm"
}

func main() {
	target := flag.String("d", "", ".vm file to translate or directory containing .vm files")
	out := flag.String("o", "", "output .asm path (default: derived from -d)")
	bootstrap := flag.Bool("bootstrap", false, "emit SP=256 init and call Sys.init 0")
	comments := flag.Bool("comments", false, "echo each source line as an assembly comment")
	flag.Parse()

	log := &applog.Logger{}
	log.SetOutput(os.Stderr)

	if *target == "" {
		flag.Usage()
		os.Exit(2)
	}

	files, err := collectVMFiles(*target)
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(log.ExitCode())
	}

	translator := vmtranslate.NewTranslator()
	var units []vmtranslate.Unit

	cerr := clierr.Recover(func() {
		for _, path := range files {
			log.Printf("INFO", "translating %s", path)
			unit, err := loadUnit(path)
			if err != nil {
				panic(err)
			}
			units = append(units, unit)
		}
		translator.Translate(units, vmtranslate.Options{Bootstrap: *bootstrap, Comments: *comments})
	})
	if cerr != nil {
		log.Errorf("%v", cerr)
		os.Exit(log.ExitCode())
	}

	dest := outputPath(*target, *out)
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		log.Errorf("create %q: %v", dest, err)
		os.Exit(log.ExitCode())
	}
	defer f.Close()

	for _, line := range translator.Lines() {
		fmt.Fprintln(f, line)
	}
	log.Printf("INFO", "wrote %s", dest)
	os.Exit(log.ExitCode())
}
