// Copyright 2018-present Kuei-chun Chen. All rights reserved.
// main.go

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/simagix/gox"

	"github.com/mongodb-labs/ftdc-go/decoder"
	"github.com/mongodb-labs/ftdc-go/rollup"
)

var repo = "mongodb-labs/ftdc-go"
var version = "self-built"

// fileResult is one file's rollup output, keyed for the aggregate JSON
// report.
type fileResult struct {
	File  string             `json:"file"`
	Stats []rollup.Statistic `json:"stats,omitempty"`
	Error string             `json:"error,omitempty"`
}

func main() {
	bound := flag.Int("bound", 0, "hard per-document byte bound (0 selects the 5x heuristic)")
	workers := flag.Int("workers", 3, "number of files to decode concurrently")
	ver := flag.Bool("version", false, "print version number")
	verbose := flag.Bool("v", false, "verbose")
	flag.Parse()

	if *ver {
		fmt.Printf("%v %v\n", repo, version)
		os.Exit(0)
	}

	filenames := flag.Args()
	if len(filenames) == 0 {
		log.Fatal("usage: ftdcrollup [-bound n] [-workers n] <file> [file...]")
	}

	results := rollupFiles(filenames, *bound, *workers, *verbose)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		log.Fatal(err)
	}
}

// rollupFiles decodes and rolls up each file, bounding concurrency the same
// way the sibling FTDC reader bounds parallel file decoding: a fixed-size
// worker pool, one goroutine per file, synchronized with a WaitGroup.
func rollupFiles(filenames []string, bound, workers int, verbose bool) []fileResult {
	if workers < 1 {
		workers = 1
	}
	results := make([]fileResult, len(filenames))
	var wg = gox.NewWaitGroup(workers)

	for i, name := range filenames {
		wg.Add(1)
		go func(idx int, filename string) {
			defer wg.Done()
			stats, err := rollupFile(filename, bound, verbose)
			if err != nil {
				results[idx] = fileResult{File: filename, Error: err.Error()}
				return
			}
			results[idx] = fileResult{File: filename, Stats: stats}
		}(i, name)
	}
	wg.Wait()
	return results
}

// rollupFile streams one FTDC file through the decoder and folds every
// Sample into a fresh Accumulator.
func rollupFile(filename string, bound int, verbose bool) ([]rollup.Statistic, error) {
	if verbose {
		log.Println("reading", filename)
	}
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader, err := gox.NewReader(file)
	if err != nil {
		return nil, err
	}

	stream := decoder.NewStreamDecoder(reader, bound)
	acc := rollup.NewAccumulator()
	var count int
	for {
		sample, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		if err := acc.Add(sample); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		count++
	}
	if verbose {
		log.Println(filename, "-", count, "samples")
	}
	return acc.Finalize(), nil
}
