package utils

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
)

// NewDownloadBar creates a byte progress bar for one file. A total of -1
// draws a spinner with the running byte count.
func NewDownloadBar(total int64, description string, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// NewTaskBar creates a progress bar counting processed packages.
func NewTaskBar(total int, description string, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}

// CrawlStats counts what happened during a crawl. Each worker fills its
// own copy and the driver merges them.
type CrawlStats struct {
	Packages       int            `json:"packages"`
	Unsupported    int            `json:"unsupported"`
	ScrapeErrors   int            `json:"scrape_errors"`
	Candidates     int            `json:"candidates"`
	Needed         int            `json:"needed"`
	Downloaded     int            `json:"downloaded"`
	Existing       int            `json:"existing"`
	DownloadErrors int            `json:"download_errors"`
	Bytes          int64          `json:"bytes"`
	Rejections     map[string]int `json:"rejections,omitempty"`
	Elapsed        time.Duration  `json:"elapsed"`
}

// Reject counts a candidate rejected by rule.
func (s *CrawlStats) Reject(rule string) {
	if s.Rejections == nil {
		s.Rejections = make(map[string]int)
	}
	s.Rejections[rule]++
}

// Merge adds o to s.
func (s *CrawlStats) Merge(o CrawlStats) {
	s.Packages += o.Packages
	s.Unsupported += o.Unsupported
	s.ScrapeErrors += o.ScrapeErrors
	s.Candidates += o.Candidates
	s.Needed += o.Needed
	s.Downloaded += o.Downloaded
	s.Existing += o.Existing
	s.DownloadErrors += o.DownloadErrors
	s.Bytes += o.Bytes
	for rule, n := range o.Rejections {
		if s.Rejections == nil {
			s.Rejections = make(map[string]int)
		}
		s.Rejections[rule] += n
	}
	s.Elapsed += o.Elapsed
}

// ShowFinalStats writes the crawl summary to w.
func (s *CrawlStats) ShowFinalStats(w io.Writer, title string) {
	fmt.Fprintf(w, "=== %s ===\n", title)
	fmt.Fprintf(w, "Packages checked: %d\n", s.Packages)
	if s.Unsupported > 0 {
		fmt.Fprintf(w, "Not carried by site: %d\n", s.Unsupported)
	}
	fmt.Fprintf(w, "Candidates: %d (needed %d)\n", s.Candidates, s.Needed)
	fmt.Fprintf(w, "Downloaded: %d (%s)\n", s.Downloaded, humanize.Bytes(uint64(s.Bytes)))
	if s.Existing > 0 {
		fmt.Fprintf(w, "Already on disk: %d\n", s.Existing)
	}

	if len(s.Rejections) > 0 {
		rules := make([]string, 0, len(s.Rejections))
		for rule := range s.Rejections {
			rules = append(rules, rule)
		}
		sort.Strings(rules)
		fmt.Fprintln(w, "Rejected:")
		for _, rule := range rules {
			fmt.Fprintf(w, "  %-28s %d\n", rule, s.Rejections[rule])
		}
	}

	if errs := s.ScrapeErrors + s.DownloadErrors; errs > 0 {
		fmt.Fprintf(w, "Errors: %d (scrape %d, download %d)\n", errs, s.ScrapeErrors, s.DownloadErrors)
	}
	fmt.Fprintf(w, "Total time: %v\n", s.Elapsed.Round(time.Millisecond))
}
