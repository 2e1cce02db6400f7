package seeder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// Asynchronous seeder which returns a URL of a web page to be crawled when called.
type AsyncURLSeeder interface {
	SeedChannel(ctx context.Context) (<-chan string, <-chan error)
}

// Reads seed URLs from a text file, one per line. Blank lines and lines
// starting with # are ignored.
type FileSeeder struct {
	path string
}

func NewFileSeeder(path string) *FileSeeder {
	return &FileSeeder{path: path}
}

// SeedChannel streams the seeds in file order. The seed channel is closed when
// the file is exhausted or ctx is done; at most one error is delivered on the
// error channel, which is closed afterwards.
func (s *FileSeeder) SeedChannel(ctx context.Context) (<-chan string, <-chan error) {
	seeds := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(seeds)

		file, err := os.Open(s.path)
		if err != nil {
			errs <- fmt.Errorf("opening seed file: %w", err)
			return
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case seeds <- line:
			}
		}
		if err := scanner.Err(); err != nil {
			errs <- fmt.Errorf("reading seed file: %w", err)
		}
	}()

	return seeds, errs
}
