// Package scanner walks a repository tree, classifies files, and
// evaluates the resolved rule set against their contents.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/repoaudit/repoaudit/internal/fingerprint"
	"github.com/repoaudit/repoaudit/internal/models"
	"github.com/repoaudit/repoaudit/internal/observability/logging"
	"github.com/repoaudit/repoaudit/internal/ruleset"
	"golang.org/x/sync/errgroup"
)

// ErrInterrupted reports a cancelled scan. A partially completed scan
// is never returned as a valid ScanResult.
var ErrInterrupted = errors.New("scan interrupted")

// ComplianceGate derives the summary's compliance status once a scan
// finalizes.
type ComplianceGate interface {
	Status(models.Summary) (string, error)
}

// Engine orchestrates one scan: sequential walk, bounded worker pool,
// single aggregating consumer, deterministic finalization.
type Engine struct {
	cfg     models.Config
	rules   *ruleset.RuleSet
	gate    ComplianceGate
	matcher *Matcher
	log     logging.Logger
}

// NewEngine validates the configuration and compiles the ignore
// matcher. Configuration errors are fatal before any scan starts.
func NewEngine(cfg models.Config, rules *ruleset.RuleSet, gate ComplianceGate, log logging.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Encoding == "" {
		cfg.Encoding = models.DefaultEncoding
	}
	matcher, err := NewMatcher(cfg.IgnorePatterns, cfg.OnlyPatterns)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.From(context.Background())
	}
	return &Engine{cfg: cfg, rules: rules, gate: gate, matcher: matcher, log: log}, nil
}

// outcome is one worker completion: exactly one of record or skip.
type outcome struct {
	record *models.FileRecord
	skip   *models.SkipEntry
}

// Scan walks the tree and returns the finalized, immutable ScanResult.
// Per-file read errors become skip entries; only configuration-time
// problems or cancellation fail the run.
func (e *Engine) Scan(ctx context.Context) (*models.ScanResult, error) {
	start := time.Now()

	root, err := filepath.Abs(e.cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("config: root path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("config: root path %s is not a directory", root)
	}

	results := make(chan outcome, 128)
	files := make(map[string]models.FileRecord)
	var skips []models.SkipEntry

	// single aggregating consumer: the only writer to files/skips
	done := make(chan struct{})
	go func() {
		defer close(done)
		for o := range results {
			if o.record != nil {
				files[o.record.Path] = *o.record
			}
			if o.skip != nil {
				skips = append(skips, *o.skip)
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers())

	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, werr error) error {
		if gctx.Err() != nil {
			return gctx.Err()
		}
		if werr != nil {
			if p == root {
				return werr
			}
			results <- outcome{skip: &models.SkipEntry{Path: relPath(root, p), Reason: models.SkipReadError}}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if p == root {
			return nil
		}

		rel := relPath(root, p)
		if d.IsDir() {
			if e.matcher.Match(rel, true) {
				// prune without descending; one entry for the subtree
				results <- outcome{skip: &models.SkipEntry{Path: rel, Reason: models.SkipIgnored}}
				return fs.SkipDir
			}
			return nil
		}

		var size int64
		if fi, ierr := d.Info(); ierr == nil {
			size = fi.Size()
		}

		if e.matcher.Match(rel, false) {
			results <- outcome{skip: &models.SkipEntry{Path: rel, Reason: models.SkipIgnored, SizeBytes: size}}
			return nil
		}

		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			// sockets, fifos, devices: reading could block forever
			results <- outcome{skip: &models.SkipEntry{Path: rel, Reason: models.SkipReadError, SizeBytes: size}}
			return nil
		}

		// thresholds that stat alone can decide, before any read
		if !e.cfg.Deep {
			_, binByExt, known := classifyExt(rel)
			if known && binByExt {
				results <- outcome{skip: &models.SkipEntry{Path: rel, Reason: models.SkipBinary, SizeBytes: size}}
				return nil
			}
			if size > e.cfg.MaxFileSize {
				if known {
					results <- outcome{skip: &models.SkipEntry{Path: rel, Reason: models.SkipTooLarge, SizeBytes: size}}
					return nil
				}
				// unknown extension: sniff the head so binary blobs
				// report as binary, not too_large
				abs := p
				g.Go(func() error {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					results <- e.skipOversized(abs, rel, size)
					return nil
				})
				return nil
			}
		}

		abs := p
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			results <- e.processFile(abs, rel)
			return nil
		})
		return nil
	})

	gerr := g.Wait()
	close(results)
	<-done

	if isCancellation(ctx, walkErr) || isCancellation(ctx, gerr) {
		return nil, ErrInterrupted
	}
	if walkErr != nil {
		return nil, fmt.Errorf("walking %s: %w", root, walkErr)
	}

	return e.finalize(start, root, files, skips)
}

func isCancellation(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// skipOversized runs in a worker: a file over the size threshold never
// gets evaluated, but binary classification still takes precedence
// over too_large, so only the sniff prefix is read.
func (e *Engine) skipOversized(abs, rel string, size int64) outcome {
	f, err := os.Open(abs)
	if err != nil {
		e.log.Debug("scanner", "file open failed", "path", rel, "error", err.Error())
		return outcome{skip: &models.SkipEntry{Path: rel, Reason: models.SkipReadError, SizeBytes: size}}
	}
	defer f.Close()

	head := make([]byte, SniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		e.log.Debug("scanner", "file read failed", "path", rel, "error", err.Error())
		return outcome{skip: &models.SkipEntry{Path: rel, Reason: models.SkipReadError, SizeBytes: size}}
	}

	reason := models.SkipTooLarge
	if _, isBinary := Classify(rel, head[:n]); isBinary {
		reason = models.SkipBinary
	}
	return outcome{skip: &models.SkipEntry{Path: rel, Reason: reason, SizeBytes: size}}
}

// processFile runs in a worker: read, classify, threshold-check,
// evaluate. Every failure mode is a skip entry, never a scan failure.
func (e *Engine) processFile(abs, rel string) outcome {
	data, err := os.ReadFile(abs)
	if err != nil {
		e.log.Debug("scanner", "file read failed", "path", rel, "error", err.Error())
		return outcome{skip: &models.SkipEntry{Path: rel, Reason: models.SkipReadError}}
	}

	size := int64(len(data))
	checksum := fingerprint.Checksum(data)
	class, isBinary := Classify(rel, data)

	if isBinary {
		if !e.cfg.Deep {
			return outcome{skip: &models.SkipEntry{Path: rel, Reason: models.SkipBinary, SizeBytes: size}}
		}
		return outcome{record: &models.FileRecord{
			Path:      rel,
			SizeBytes: size,
			IsBinary:  true,
			Class:     class,
			Encoding:  "binary",
			Checksum:  checksum,
		}}
	}

	if !e.cfg.Deep && size > e.cfg.MaxFileSize {
		return outcome{skip: &models.SkipEntry{Path: rel, Reason: models.SkipTooLarge, SizeBytes: size}}
	}

	lines := CountLines(data)
	if !e.cfg.Deep && lines > e.cfg.MaxLines {
		return outcome{skip: &models.SkipEntry{Path: rel, Reason: models.SkipTooManyLines, SizeBytes: size}}
	}

	findings := Evaluate(data, e.rules)
	return outcome{record: &models.FileRecord{
		Path:      rel,
		SizeBytes: size,
		LineCount: &lines,
		Class:     class,
		Encoding:  e.cfg.Encoding,
		Checksum:  checksum,
		Findings:  findings,
	}}
}

// finalize sorts, summarizes, derives compliance status, and
// fingerprints. Completion order never leaks into the result.
func (e *Engine) finalize(start time.Time, root string, files map[string]models.FileRecord, skips []models.SkipEntry) (*models.ScanResult, error) {
	sort.Slice(skips, func(i, j int) bool {
		if skips[i].Path != skips[j].Path {
			return skips[i].Path < skips[j].Path
		}
		return skips[i].Reason < skips[j].Reason
	})

	var tally models.SeverityTally
	digests := make(map[string]string, len(files))
	for p, rec := range files {
		digests[p] = rec.Checksum
		for _, f := range rec.Findings {
			tally.Add(f.Severity)
		}
	}

	summary := models.Summary{
		FilesScanned:  len(files),
		FilesSkipped:  len(skips),
		TotalFindings: tally.Total(),
		Findings:      tally,
	}
	if e.gate != nil {
		status, err := e.gate.Status(summary)
		if err != nil {
			return nil, fmt.Errorf("compliance evaluation: %w", err)
		}
		summary.ComplianceStatus = status
	}

	return &models.ScanResult{
		Version:         models.ReportVersion,
		ScanID:          uuid.NewString(),
		Root:            root,
		Mode:            e.cfg.Mode(),
		Timestamp:       start.UTC(),
		DurationMS:      time.Since(start).Milliseconds(),
		RootFingerprint: fingerprint.Root(digests),
		Files:           files,
		Skipped:         skips,
		Summary:         summary,
	}, nil
}

func relPath(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}
