// traceconv reads zstd JSONL trace files written by the file sink and writes
// a per-character YAML summary.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/storechase/server/internal/trace"
	"gopkg.in/yaml.v3"
)

type report struct {
	Files      []string        `yaml:"files"`
	Samples    int             `yaml:"samples"`
	Characters []trace.Summary `yaml:"characters"`
}

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: traceconv <trace.jsonl.zst | trace dir> <output.yaml>")
		os.Exit(1)
	}

	files, err := inputs(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var all []trace.Sample
	for _, f := range files {
		samples, err := trace.ReadFile(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", f, err)
			os.Exit(1)
		}
		all = append(all, samples...)
	}

	out, err := yaml.Marshal(report{
		Files:      files,
		Samples:    len(all),
		Characters: trace.Summarize(all),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := os.WriteFile(os.Args[2], out, 0644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d samples from %d files to %s\n", len(all), len(files), os.Args[2])
}

// inputs expands a directory into its trace files, oldest hour first.
func inputs(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	files, err := filepath.Glob(filepath.Join(path, "*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no trace files in %s", path)
	}
	sort.Strings(files)
	return files, nil
}
