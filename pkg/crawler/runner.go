package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huanfeng/apkcrawler/pkg/client"
	"github.com/huanfeng/apkcrawler/pkg/models"
	"github.com/huanfeng/apkcrawler/pkg/report"
	"github.com/huanfeng/apkcrawler/pkg/utils"
)

// DefaultWorkers is the pool size when none is configured.
const DefaultWorkers = 5

// Downloader fetches one needed release and returns the file name it was
// stored under. An empty name with a nil error means the file already
// existed and nothing was fetched.
type Downloader interface {
	Download(ctx context.Context, rec models.PackageRecord) (name string, size int64, err error)
}

// Finder is implemented by downloaders that can tell whether a file is
// already stored. Dry runs use it to leave such files out of the result.
type Finder interface {
	Exists(name string) (path string, ok bool)
}

// Runner drives one or more sites over the tracked package identifiers.
type Runner struct {
	Evaluator  *report.Evaluator
	Downloader Downloader // optional with DryRun; consulted through Finder
	Workers    int
	DryRun     bool
	Logger     utils.Logger

	// OnPackageDone, when set, is called by workers after each package.
	OnPackageDone func(site, packageID string)

	// Records fetched by previous Run calls. Later sites treat them as
	// held so the same release is not fetched twice from two sites.
	carried []models.PackageRecord
}

// Result is the merged outcome of a crawl.
type Result struct {
	Files     []string
	BetaFiles []string
	Records   []models.PackageRecord
	Stats     utils.CrawlStats
}

// Line renders the result the way the crawl command prints it: regular
// file names, then a literal "beta" token and the beta file names.
func (r *Result) Line() string {
	line := strings.Join(r.Files, " ")
	if len(r.BetaFiles) > 0 {
		line += " beta " + strings.Join(r.BetaFiles, " ")
	}
	return line
}

// Merge appends o to r.
func (r *Result) Merge(o *Result) {
	r.Files = append(r.Files, o.Files...)
	r.BetaFiles = append(r.BetaFiles, o.BetaFiles...)
	r.Records = append(r.Records, o.Records...)
	r.Stats.Merge(o.Stats)
}

// taskResult is what one worker hands back for one package.
type taskResult struct {
	files     []string
	betaFiles []string
	records   []models.PackageRecord
	stats     utils.CrawlStats
}

func (r *Runner) logger() utils.Logger {
	if r.Logger == nil {
		return utils.GetGlobalLogger()
	}
	return r.Logger
}

func (r *Runner) workers(site Site) int {
	n := r.Workers
	if n <= 0 {
		n = DefaultWorkers
	}
	if l, ok := site.(Limiter); ok && l.MaxWorkers() > 0 && l.MaxWorkers() < n {
		n = l.MaxWorkers()
	}
	return n
}

// Run checks every id against site. Scrape failures of single packages
// are logged and counted; they never stop the other tasks.
func (r *Runner) Run(ctx context.Context, site Site, packageIDs []string) (*Result, error) {
	if r.Evaluator == nil {
		return nil, errors.New("runner has no evaluator")
	}
	if r.Downloader == nil && !r.DryRun {
		return nil, errors.New("runner has no downloader")
	}

	start := time.Now()
	log := r.logger().WithField("site", site.Name())
	log.Info("checking %d packages with %d workers", len(packageIDs), r.workers(site))

	pool := NewPool[taskResult](WithWorkerLimit[taskResult](r.workers(site)))
	results := pool.Run(ctx, packageIDs, func(ctx context.Context, packageID string) (taskResult, error) {
		res := r.checkOne(ctx, site, packageID, log)
		if r.OnPackageDone != nil {
			r.OnPackageDone(site.Name(), packageID)
		}
		return res, nil
	})

	merged := &Result{}
	for _, tr := range results {
		merged.Files = append(merged.Files, tr.Value.files...)
		merged.BetaFiles = append(merged.BetaFiles, tr.Value.betaFiles...)
		merged.Records = append(merged.Records, tr.Value.records...)
		merged.Stats.Merge(tr.Value.stats)
	}
	merged.Stats.Elapsed = time.Since(start)
	r.carried = append(r.carried, merged.Records...)

	log.Info("done: %d new files, %d beta files", len(merged.Files), len(merged.BetaFiles))

	if err := ctx.Err(); err != nil {
		return merged, err
	}
	return merged, nil
}

// RunAll runs each site in turn and merges the results.
func (r *Runner) RunAll(ctx context.Context, sites []Site, packageIDs []string) (*Result, error) {
	total := &Result{}
	for _, site := range sites {
		res, err := r.Run(ctx, site, packageIDs)
		if res != nil {
			total.Merge(res)
		}
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (r *Runner) session() *report.Session {
	s := r.Evaluator.Session()
	for _, rec := range r.carried {
		s.Add(rec)
	}
	return s
}

func (r *Runner) checkOne(ctx context.Context, site Site, packageID string, log utils.Logger) taskResult {
	var res taskResult
	res.stats.Packages = 1

	log.Debug("checking app: %s", packageID)
	candidates, err := site.Scrape(ctx, packageID)
	if err != nil {
		if errors.Is(err, client.ErrPageNotFound) {
			log.Info("%s not supported by %s", packageID, site.Name())
			res.stats.Unsupported = 1
		} else {
			log.Error("%s: %v", packageID, err)
			res.stats.ScrapeErrors = 1
		}
		return res
	}

	session := r.session()
	for _, rec := range candidates {
		if ctx.Err() != nil {
			break
		}
		res.stats.Candidates++

		d := session.Check(rec)
		if !d.Needed {
			res.stats.Reject(d.Rule)
			continue
		}
		res.stats.Needed++

		name, size, err := r.fetch(ctx, site, rec, log)
		if err != nil {
			log.Error("%s: %v", rec.Filename(), err)
			res.stats.DownloadErrors++
			continue
		}
		session.Add(rec)
		if name == "" {
			res.stats.Existing++
			continue
		}

		res.stats.Downloaded++
		res.stats.Bytes += size
		res.records = append(res.records, rec)
		if rec.IsBeta() {
			res.betaFiles = append(res.betaFiles, name)
		} else {
			res.files = append(res.files, name)
		}
	}
	return res
}

func (r *Runner) fetch(ctx context.Context, site Site, rec models.PackageRecord, log utils.Logger) (string, int64, error) {
	if r.DryRun {
		if finder, ok := r.Downloader.(Finder); ok {
			if path, found := finder.Exists(rec.Filename()); found {
				log.Info("%s already exists", path)
				return "", 0, nil
			}
		}
	}

	if rec.DownloadURL == "" {
		resolver, ok := site.(Resolver)
		if !ok {
			return "", 0, fmt.Errorf("no download link on %s", rec.PageURL)
		}
		link, err := resolver.Resolve(ctx, rec)
		if err != nil {
			return "", 0, fmt.Errorf("resolving download link: %w", err)
		}
		if link == "" {
			return "", 0, fmt.Errorf("unable to determine download link from %s", rec.PageURL)
		}
		rec.DownloadURL = link
	}

	if r.DryRun {
		log.Info("would download %s from %s", rec.Filename(), rec.DownloadURL)
		return rec.Filename(), 0, nil
	}

	log.Info("downloading %s from %s", rec.Filename(), rec.DownloadURL)
	return r.Downloader.Download(ctx, rec)
}
