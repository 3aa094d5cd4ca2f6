package report

import (
	"sort"
	"strings"

	"github.com/huanfeng/apkcrawler/pkg/models"
	"github.com/huanfeng/apkcrawler/pkg/utils"
	"github.com/huanfeng/apkcrawler/pkg/versionkey"
)

// DefaultSDKBaseline is the highest minimum API level ever demanded of a
// candidate: packages whose holdings all need a newer platform still accept
// releases down to this level.
const DefaultSDKBaseline = 19

// Packages that publish a single architecture/density variant per release.
// A held version code at or above a candidate's supersedes it.
var DefaultOneVariantPerRealver = []string{
	"com.google.android.apps.books",
	"com.google.android.apps.cloudprint",
	"com.google.android.apps.enterprise.dmagent",
	"com.google.android.apps.gcs",
	"com.google.android.apps.genie.geniewidget",
	"com.google.android.calculator",
	"com.google.android.calendar",
	"com.google.android.deskclock",
	"com.google.android.dialer",
	"com.google.android.ears",
	"com.google.android.gm",
	"com.google.android.gm.exchange",
	"com.google.android.marvin.talkback",
	"com.google.android.music",
	"com.google.android.tv.remote",
}

// Packages that publish a single version code per version name.
var DefaultOneVercodePerRealver = []string{
	"com.google.android.apps.docs",
	"com.google.android.apps.docs.editors.docs",
	"com.google.android.apps.docs.editors.sheets",
	"com.google.android.apps.docs.editors.slides",
	"com.google.android.apps.fitness",
	"com.google.android.apps.inputmethod.hindi",
	"com.google.android.apps.inputmethod.zhuyin",
	"com.google.android.apps.messaging",
	"com.google.android.apps.tycho",
	"com.google.android.gms",
	"com.google.android.googlecamera",
	"com.google.android.googlequicksearchbox",
	"com.google.android.inputmethod.japanese",
	"com.google.android.inputmethod.korean",
	"com.google.android.inputmethod.latin",
	"com.google.android.inputmethod.pinyin",
	"com.google.android.play.games",
	"com.google.android.tv",
}

// Rejection rules, in evaluation order.
const (
	RuleUnknownPackage   = "unknown-package"
	RuleDuplicateCode    = "duplicate-version-code"
	RuleSupersededCode   = "superseded-version-code"
	RuleDuplicateVersion = "duplicate-version"
	RuleOlderThanMax     = "older-than-max"
	RulePreviewSDK       = "preview-sdk"
	RuleSDKTooLow        = "sdk-too-low"
	RuleBetaDuplicate    = "beta-duplicate-version-code"
	RuleBetaNotNewer     = "beta-not-newer"
	RuleMalformedVersion = "malformed-version"
)

// Decision is the outcome of evaluating one candidate.
type Decision struct {
	Needed bool
	Rule   string // empty when needed
	Detail string
}

func reject(rule, detail string) Decision {
	return Decision{Rule: rule, Detail: detail}
}

var accept = Decision{Needed: true}

// Evaluator decides whether a scraped candidate is worth downloading. It
// holds a read-only snapshot of an Inventory and is safe for concurrent use.
type Evaluator struct {
	inv        *Inventory
	maxVersion map[string]string
	minSDK     map[string]int
	oneVariant map[string]bool
	oneVercode map[string]bool
	baseline   int
	logger     utils.Logger
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithSDKBaseline sets the platform level that caps each package's
// minimum-SDK threshold.
func WithSDKBaseline(level int) EvaluatorOption {
	return func(e *Evaluator) {
		e.baseline = level
	}
}

// WithClassifications replaces the one-variant-per-version and
// one-vercode-per-version package sets.
func WithClassifications(oneVariant, oneVercode []string) EvaluatorOption {
	return func(e *Evaluator) {
		e.oneVariant = toSet(oneVariant)
		e.oneVercode = toSet(oneVercode)
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l utils.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		e.logger = l
	}
}

// NewEvaluator derives the max-version and min-SDK tables from inv.
func NewEvaluator(inv *Inventory, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		inv:        inv,
		maxVersion: make(map[string]string),
		minSDK:     make(map[string]int),
		oneVariant: toSet(DefaultOneVariantPerRealver),
		oneVercode: toSet(DefaultOneVercodePerRealver),
		baseline:   DefaultSDKBaseline,
		logger:     utils.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, pkg := range inv.Packages() {
		recs := inv.Records(pkg)

		versions := make([]string, 0, len(recs))
		lowest := -1
		for _, r := range recs {
			if r.DisplayVersion != "" {
				versions = append(versions, r.DisplayVersion)
			}
			if !r.MinSDK.IsPreview() && (lowest < 0 || r.MinSDK.Level < lowest) {
				lowest = r.MinSDK.Level
			}
		}

		best, skipped := versionkey.Max(versions)
		for _, v := range skipped {
			e.logger.Warn("%s: ignoring malformed held version %q", pkg, v)
		}
		e.maxVersion[pkg] = best

		if lowest < 0 || lowest > e.baseline {
			lowest = e.baseline
		}
		e.minSDK[pkg] = lowest
		e.logger.Debug("%s: maxVer=%s minSdk=%d", pkg, best, lowest)
	}

	return e
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[strings.ToLower(s)] = true
	}
	return set
}

// MaxVersion returns the highest held display version of pkg.
func (e *Evaluator) MaxVersion(pkg string) string {
	return e.maxVersion[strings.ToLower(pkg)]
}

// MinSDK returns the lowest API level accepted for pkg.
func (e *Evaluator) MinSDK(pkg string) int {
	return e.minSDK[strings.ToLower(pkg)]
}

// Inventory returns the snapshot the evaluator was built from.
func (e *Evaluator) Inventory() *Inventory {
	return e.inv
}

// IsNeeded reports whether candidate should be downloaded.
func (e *Evaluator) IsNeeded(candidate models.PackageRecord) bool {
	return e.Check(candidate).Needed
}

// Check evaluates candidate and explains the outcome.
func (e *Evaluator) Check(candidate models.PackageRecord) Decision {
	return e.check(candidate, nil)
}

// check applies the rules in order; the first rejection wins. extra holds
// records fetched during the current session, keyed like the inventory.
func (e *Evaluator) check(c models.PackageRecord, extra map[string][]models.PackageRecord) Decision {
	d := e.evaluate(c, extra)
	if d.Needed {
		e.logger.Debug("%s %s (%d): needed", c.PackageID, c.RawVersion, c.VersionCode)
	} else {
		e.logger.Debug("%s %s (%d): not needed [%s] %s", c.PackageID, c.RawVersion, c.VersionCode, d.Rule, d.Detail)
	}
	return d
}

func (e *Evaluator) evaluate(c models.PackageRecord, extra map[string][]models.PackageRecord) Decision {
	key := c.Key()
	if !e.inv.Has(key) {
		return reject(RuleUnknownPackage, "")
	}
	held := e.held(key, extra)

	if c.VersionCode != 0 {
		for _, r := range held {
			if r.VersionCode == c.VersionCode {
				return reject(RuleDuplicateCode, r.RawVersion)
			}
		}
		if e.oneVariant[key] {
			for _, r := range held {
				if r.VersionCode >= c.VersionCode {
					return reject(RuleSupersededCode, r.RawVersion)
				}
			}
		}
	} else if e.oneVariant[key] || e.oneVercode[key] {
		if c.RawVersion != "" {
			for _, r := range held {
				if r.RawVersion == c.RawVersion {
					return reject(RuleDuplicateVersion, r.RawVersion)
				}
			}
		}
	}

	if d, ok := e.belowMax(c, key, extra, RuleOlderThanMax); !ok {
		return d
	}

	if c.MinSDK.IsPreview() || c.TargetSDK.IsPreview() {
		return reject(RulePreviewSDK, c.MinSDK.String()+"/"+c.TargetSDK.String())
	}

	if c.MinSDK.Level != 0 && c.MinSDK.Level < e.minSDK[key] {
		return reject(RuleSDKTooLow, c.MinSDK.String())
	}

	betaKey := key + models.BetaSuffix
	if !c.IsBeta() && e.inv.Has(betaKey) {
		if c.VersionCode != 0 {
			for _, r := range e.held(betaKey, extra) {
				if r.VersionCode == c.VersionCode {
					return reject(RuleBetaDuplicate, r.RawVersion)
				}
			}
		}
		if d, ok := e.belowMax(c, betaKey, extra, RuleBetaNotNewer); !ok {
			return d
		}
	}

	return accept
}

// belowMax rejects c when its display version is lower than the highest
// version held for key. An empty version on either side skips the check.
func (e *Evaluator) belowMax(c models.PackageRecord, key string, extra map[string][]models.PackageRecord, rule string) (Decision, bool) {
	maxVer := e.maxVersion[key]
	for _, r := range extra[key] {
		if r.DisplayVersion == "" {
			continue
		}
		if maxVer == "" {
			if _, err := versionkey.Parse(r.DisplayVersion); err == nil {
				maxVer = r.DisplayVersion
			}
			continue
		}
		if ord, err := versionkey.Compare(r.DisplayVersion, maxVer); err == nil && ord == versionkey.Greater {
			maxVer = r.DisplayVersion
		}
	}
	if c.DisplayVersion == "" || maxVer == "" {
		return accept, true
	}

	ord, err := versionkey.Compare(c.DisplayVersion, maxVer)
	if err != nil {
		e.logger.Warn("%s: cannot compare %q with %q: %v", c.PackageID, c.DisplayVersion, maxVer, err)
		return reject(RuleMalformedVersion, err.Error()), false
	}
	if ord == versionkey.Less {
		return reject(rule, maxVer), false
	}
	return accept, true
}

func (e *Evaluator) held(key string, extra map[string][]models.PackageRecord) []models.PackageRecord {
	recs := e.inv.Records(key)
	if add := extra[key]; len(add) > 0 {
		merged := make([]models.PackageRecord, 0, len(recs)+len(add))
		merged = append(merged, recs...)
		return append(merged, add...)
	}
	return recs
}

// Outdated lists held records whose version is below their package's
// maximum, each rendered as a report line carrying the maximum version.
func (e *Evaluator) Outdated() []string {
	var lines []string
	for _, pkg := range e.inv.Packages() {
		maxVer := e.maxVersion[pkg]
		if maxVer == "" {
			continue
		}
		for _, r := range e.inv.Records(pkg) {
			if r.DisplayVersion == "" {
				continue
			}
			ord, err := versionkey.Compare(r.DisplayVersion, maxVer)
			if err != nil || ord != versionkey.Less {
				continue
			}
			lines = append(lines, r.Line(maxVer))
		}
	}
	sort.Strings(lines)
	return lines
}

// Session is a worker-local view of the evaluator that also counts the
// candidates fetched by that worker. A Session must not be shared between
// goroutines.
type Session struct {
	eval  *Evaluator
	added map[string][]models.PackageRecord
}

// Session starts a new worker-local overlay.
func (e *Evaluator) Session() *Session {
	return &Session{eval: e, added: make(map[string][]models.PackageRecord)}
}

// IsNeeded evaluates candidate against the snapshot plus this session's
// additions.
func (s *Session) IsNeeded(candidate models.PackageRecord) bool {
	return s.Check(candidate).Needed
}

// Check is IsNeeded with the rejection reason.
func (s *Session) Check(candidate models.PackageRecord) Decision {
	return s.eval.check(candidate, s.added)
}

// Add records a fetched candidate so later candidates in the same session
// see it.
func (s *Session) Add(rec models.PackageRecord) {
	key := rec.Key()
	s.added[key] = append(s.added[key], rec)
}

// Added returns the records fetched in this session.
func (s *Session) Added() []models.PackageRecord {
	var out []models.PackageRecord
	for _, recs := range s.added {
		out = append(out, recs...)
	}
	return out
}
