// Package loader reads benchmark result files into typed ResultRecords.
//
// A result file is a JSON object whose "results" key maps a model identifier
// to an array of per-call records. Files that cannot be parsed are skipped and
// reported; records with unusable fields are skipped and counted; records
// without a recognizable label are kept with the NULL label so sample sizes
// stay honest.
package loader

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/harrison/toolgap/internal/fileutil"
	"github.com/harrison/toolgap/internal/logger"
	"github.com/harrison/toolgap/internal/models"
)

// Default file patterns
var (
	DefaultInclude            = []string{"*.json"}
	DefaultExclude            = []string{"*_stats.json"}
	DefaultPersistenceInclude = []string{"persistence_*.json"}
	DefaultPersistenceExclude = []string{"*_stats*"}
)

// Options configures a Loader
type Options struct {
	Include   []string
	Exclude   []string
	Recursive bool
	Workers   int // Parallel file reads; <= 0 uses GOMAXPROCS
	Logger    logger.Logger

	// OnFile is called once per file after it is read, with the decode error
	// if the file will be skipped. It runs on worker goroutines.
	OnFile func(path string, err error)
}

// Loader discovers and decodes result files
type Loader struct {
	opts Options
	log  logger.Logger
}

// LoadResult is the flat record sequence of one run plus data-quality counters
type LoadResult struct {
	Matched         int      // Files matching the patterns
	Files           []string // Files decoded successfully, in merge order
	Records         []models.ResultRecord
	SkippedFiles    []*FileError
	SkippedRecords  int
	SchemaFallbacks int
}

// New creates a Loader, filling unset options with defaults
func New(opts Options) *Loader {
	if len(opts.Include) == 0 {
		opts.Include = DefaultInclude
		if opts.Exclude == nil {
			opts.Exclude = DefaultExclude
		}
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Loader{opts: opts, log: log}
}

// LoadDir loads every matching file under dir. It fails only when the
// directory cannot be scanned or nothing matches.
func (l *Loader) LoadDir(ctx context.Context, dir string) (*LoadResult, error) {
	paths, err := l.Discover(dir)
	if err != nil {
		return nil, err
	}
	return l.LoadFiles(ctx, paths)
}

// Discover lists the files under dir that match the include and exclude
// patterns, sorted. No match is ErrNoInputFiles.
func (l *Loader) Discover(dir string) ([]string, error) {
	scan, err := fileutil.ScanDirectory(dir, fileutil.ScanOptions{
		Include:   l.opts.Include,
		Exclude:   l.opts.Exclude,
		Recursive: l.opts.Recursive,
	})
	if err != nil {
		return nil, fmt.Errorf("scan input directory: %w", err)
	}
	for _, scanErr := range scan.Errors {
		l.log.LogWarn(scanErr.Error())
	}
	if len(scan.Files) == 0 {
		return nil, fmt.Errorf("%w %v in %s", ErrNoInputFiles, l.opts.Include, dir)
	}
	return scan.Files, nil
}

// LoadFiles decodes the given files in parallel and merges them in a stable
// order: by path, then by record position within the file.
func (l *Loader) LoadFiles(ctx context.Context, paths []string) (*LoadResult, error) {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	results := make([]*FileResult, len(sorted))
	failures := make([]error, len(sorted))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Workers)

	for i, path := range sorted {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			fr, err := readFile(path)
			if l.opts.OnFile != nil {
				l.opts.OnFile(path, err)
			}
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = fr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return l.merge(sorted, results, failures), nil
}

func readFile(path string) (*FileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return Decode(path, data)
}

type turnKey struct {
	model string
	key   string
	turn  int
}

// merge folds per-file results into one LoadResult. Results must be indexed
// like paths. Duplicate (model, sequence, turn) triples keep the first record.
func (l *Loader) merge(paths []string, results []*FileResult, failures []error) *LoadResult {
	out := &LoadResult{
		Matched: len(paths),
		Records: make([]models.ResultRecord, 0),
	}
	seen := make(map[turnKey]string)

	for i, path := range paths {
		if failures[i] != nil {
			fe := &FileError{Path: path, Err: failures[i]}
			out.SkippedFiles = append(out.SkippedFiles, fe)
			l.log.LogWarn(fmt.Sprintf("skipping %s", fe.Error()))
			continue
		}

		fr := results[i]
		out.Files = append(out.Files, path)
		out.SkippedRecords += fr.SkippedRecords
		out.SchemaFallbacks += fr.SchemaFallbacks
		for _, issue := range fr.Issues {
			l.log.LogWarn(fmt.Sprintf("%s: skipped %s", path, issue))
		}

		for _, rec := range fr.Records {
			k := turnKey{model: rec.Model, key: rec.SequenceKey, turn: rec.TurnIndex}
			if first, dup := seen[k]; dup {
				out.SkippedRecords++
				l.log.LogWarn(fmt.Sprintf("%s: duplicate turn %d for sequence %s (first seen in %s)",
					path, rec.TurnIndex, rec.SequenceKey, first))
				continue
			}
			seen[k] = path
			out.Records = append(out.Records, rec)
		}

		l.log.LogDebug(fmt.Sprintf("loaded %d records from %s", len(fr.Records), path))
	}

	return out
}

// Summary converts the load counters into a logger.RunSummary
func (r *LoadResult) Summary(command string) logger.RunSummary {
	return logger.RunSummary{
		Command:         command,
		FilesMatched:    r.Matched,
		FilesLoaded:     len(r.Files),
		SkippedFiles:    len(r.SkippedFiles),
		Records:         len(r.Records),
		SkippedRecords:  r.SkippedRecords,
		SchemaFallbacks: r.SchemaFallbacks,
	}
}

// Models returns model identifiers in first-occurrence order
func (r *LoadResult) Models() []string {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range r.Records {
		if !seen[rec.Model] {
			seen[rec.Model] = true
			out = append(out, rec.Model)
		}
	}
	return out
}
