//go:build ignore

// Package main generates a synthetic directory tree for exercising the
// watcher against real inotify and rlimit ceilings.
// Usage: go run scripts/generate-tree.go -depth 4 -fanout 6 -files 10 -output testdata/tree
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
)

var (
	depth     = flag.Int("depth", 3, "Directory levels below the output root")
	fanout    = flag.Int("fanout", 4, "Subdirectories per directory")
	files     = flag.Int("files", 8, "Files per directory")
	outputDir = flag.String("output", "testdata/tree", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var extensions = []string{".go", ".ts", ".md", ".txt", ".json", ".log"}

type stats struct {
	dirs, files int
}

func main() {
	flag.Parse()

	if *depth < 0 || *fanout < 1 || *files < 0 {
		fmt.Fprintln(os.Stderr, "Error: depth and files must be >= 0, fanout >= 1")
		os.Exit(1)
	}

	faker := gofakeit.New(*seed)
	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generating tree in %s (depth %d, fanout %d, %d files per dir)...\n",
		*outputDir, *depth, *fanout, *files)

	var s stats
	if err := fill(faker, *outputDir, *depth, &s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %d directories and %d files.\n", s.dirs+1, s.files)
	fmt.Printf("Watching all of it needs about %d inotify watches.\n", s.dirs+1)
}

// fill writes files into dir and recurses level more times.
func fill(faker *gofakeit.Faker, dir string, level int, s *stats) error {
	used := make(map[string]bool)
	for i := 0; i < *files; i++ {
		name := uniqueName(faker, used) + extensions[faker.Number(0, len(extensions)-1)]
		body := faker.Paragraph(1, 3, 8, "\n") + "\n"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			return err
		}
		s.files++
	}

	if level == 0 {
		return nil
	}
	for i := 0; i < *fanout; i++ {
		sub := filepath.Join(dir, uniqueName(faker, used))
		if err := os.Mkdir(sub, 0o755); err != nil {
			return err
		}
		s.dirs++
		if err := fill(faker, sub, level-1, s); err != nil {
			return err
		}
	}
	return nil
}

func uniqueName(faker *gofakeit.Faker, used map[string]bool) string {
	for {
		name := strings.ToLower(faker.Adjective() + "_" + faker.Noun())
		name = strings.ReplaceAll(name, " ", "_")
		if !used[name] {
			used[name] = true
			return name
		}
	}
}
