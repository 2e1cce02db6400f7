package administrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"sitecrawler/internal/pkg/logger"
	"sitecrawler/internal/pkg/metrics"
	"sitecrawler/internal/pkg/output"
	"sitecrawler/internal/pkg/seeder"
	"sitecrawler/internal/pkg/types"
)

const defaultWorkers = 2

// Crawls one seed. Usually crawl.Crawl with the run's options bound.
type Runner func(ctx context.Context, seedURL string) (*types.CrawlReport, error)

type Config struct {
	ProgressFile string
	OutputDir    string
	Format       output.Format
	Workers      int
}

// Administrator crawls every seed an AsyncURLSeeder yields and writes one
// report file per seed. Progress is the number of leading seeds already
// handled; a restarted run skips them.
type Administrator struct {
	cfg      Config
	seeder   seeder.AsyncURLSeeder
	run      Runner
	logger   logger.Interface
	recorder *metrics.Recorder

	progressMutex sync.Mutex
	lineNumber    int
	done          map[int]bool
}

type Option func(*Administrator)

func WithLogger(log logger.Interface) Option {
	return func(a *Administrator) { a.logger = log }
}

// Counts finished seeds on recorder.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(a *Administrator) { a.recorder = recorder }
}

func New(cfg Config, s seeder.AsyncURLSeeder, run Runner, opts ...Option) *Administrator {
	if cfg.Workers < 1 {
		cfg.Workers = defaultWorkers
	}
	if cfg.Format == "" {
		cfg.Format = output.FormatJSON
	}
	a := &Administrator{
		cfg:    cfg,
		seeder: s,
		run:    run,
		logger: logger.NewNoOp(),
		done:   make(map[int]bool),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type job struct {
	index int
	seed  string
}

// Run processes the remaining seeds with cfg.Workers workers and blocks until
// they are done or ctx is cancelled. A completed pass resets the progress
// file so the next run starts from the top.
func (a *Administrator) Run(ctx context.Context) error {
	a.lineNumber = a.loadProgress()
	start := a.lineNumber
	a.logger.Info("Batch started", "workers", a.cfg.Workers, "resume_from", start)

	jobs := make(chan job)
	var wg sync.WaitGroup
	for i := 0; i < a.cfg.Workers; i++ {
		wg.Add(1)
		go a.crawlWorker(ctx, i, jobs, &wg)
	}

	seeds, errs := a.seeder.SeedChannel(ctx)
	index := 0
dispatch:
	for seed := range seeds {
		if index < start {
			index++
			continue
		}
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- job{index: index, seed: seed}:
			index++
		}
	}
	close(jobs)
	wg.Wait()
	// Unblock the seeder if dispatch stopped early.
	for range seeds {
	}

	if err := ctx.Err(); err != nil {
		a.logger.Warn("Batch interrupted", "progress", a.Progress())
		return err
	}
	if err := <-errs; err != nil {
		return fmt.Errorf("reading seeds: %w", err)
	}
	if index < start {
		a.logger.Warn("Progress is past the end of the seed list, starting over", "progress", start, "seeds", index)
	} else {
		a.logger.Info("Batch complete", "seeds", index-start)
	}
	a.resetProgress()
	return nil
}

func (a *Administrator) crawlWorker(ctx context.Context, id int, jobs <-chan job, wg *sync.WaitGroup) {
	defer wg.Done()
	log := a.logger.With("worker", id)
	for j := range jobs {
		if ctx.Err() != nil {
			continue
		}
		if a.crawlSeed(ctx, log, j) {
			a.complete(j.index)
		}
	}
}

// Crawls one seed and saves its report. Returns false when the seed must be
// retried by the next run.
func (a *Administrator) crawlSeed(ctx context.Context, log logger.Interface, j job) bool {
	report, err := a.run(ctx, j.seed)
	if ctx.Err() != nil {
		log.Warn("Seed interrupted", "seed", j.seed)
		return false
	}
	if err == nil {
		var path string
		path, err = output.WriteFile(a.cfg.OutputDir, report, a.cfg.Format)
		if err == nil {
			log.Info("Seed crawled", "seed", j.seed, "pages", len(report.Pages), "report", path)
		}
	}
	if err != nil {
		var configErr *types.ConfigurationError
		if errors.As(err, &configErr) {
			log.Warn("Skipping invalid seed", "seed", j.seed, "error", err)
		} else {
			log.Error("Seed failed", "seed", j.seed, "error", err)
		}
	}
	if a.recorder != nil {
		a.recorder.SeedFinished(err)
	}
	return true
}

// Marks seed index handled and saves the length of the handled prefix.
func (a *Administrator) complete(index int) {
	a.progressMutex.Lock()
	a.done[index] = true
	for a.done[a.lineNumber] {
		delete(a.done, a.lineNumber)
		a.lineNumber++
	}
	a.progressMutex.Unlock()
	a.saveProgress()
}

// Progress returns the number of leading seeds already handled.
func (a *Administrator) Progress() int {
	a.progressMutex.Lock()
	defer a.progressMutex.Unlock()
	return a.lineNumber
}

func (a *Administrator) resetProgress() {
	a.progressMutex.Lock()
	a.lineNumber = 0
	clear(a.done)
	a.progressMutex.Unlock()
	a.saveProgress()
}

func (a *Administrator) saveProgress() {
	if a.cfg.ProgressFile == "" {
		return
	}
	a.progressMutex.Lock()
	defer a.progressMutex.Unlock()
	data := []byte(fmt.Sprintf("%d\n", a.lineNumber))
	if err := os.WriteFile(a.cfg.ProgressFile, data, 0644); err != nil {
		a.logger.Error("Error saving progress", "path", a.cfg.ProgressFile, "error", err)
	}
}

func (a *Administrator) loadProgress() int {
	if a.cfg.ProgressFile == "" {
		return 0
	}
	data, err := os.ReadFile(a.cfg.ProgressFile)
	if err != nil {
		return 0
	}
	lineNum, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || lineNum < 0 {
		return 0
	}
	return lineNum
}
