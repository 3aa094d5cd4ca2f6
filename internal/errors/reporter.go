package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// ErrorReport is written to disk when a command fails and --report-dir
// is set.
type ErrorReport struct {
	Timestamp   time.Time         `json:"timestamp"`
	Error       *CrawlerError     `json:"error"`
	Cause       string            `json:"cause,omitempty"`
	Environment *EnvironmentInfo  `json:"environment"`
	Context     *OperationContext `json:"context"`
}

// EnvironmentInfo contains information about the runtime environment
type EnvironmentInfo struct {
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	GoVersion    string `json:"go_version"`
	Version      string `json:"apkcrawler_version"`
	WorkingDir   string `json:"working_dir"`
	ConfigPath   string `json:"config_path"`
}

// OperationContext contains information about the operation that failed
type OperationContext struct {
	Command   string        `json:"command"`
	Arguments []string      `json:"arguments"`
	Duration  time.Duration `json:"duration"`
}

// ErrorReporter writes and displays error reports.
type ErrorReporter struct {
	reportDir string
	version   string
	logger    Logger
}

func NewErrorReporter(reportDir, version string, logger Logger) *ErrorReporter {
	return &ErrorReporter{reportDir: reportDir, version: version, logger: logger}
}

// GenerateReport collects environment details for err.
func (er *ErrorReporter) GenerateReport(err *CrawlerError, configPath string, op *OperationContext) *ErrorReport {
	wd, wdErr := os.Getwd()
	if wdErr != nil && er.logger != nil {
		er.logger.Warn("failed to get working directory: %v", wdErr)
	}

	report := &ErrorReport{
		Timestamp: time.Now(),
		Error:     err,
		Environment: &EnvironmentInfo{
			OS:           runtime.GOOS,
			Architecture: runtime.GOARCH,
			GoVersion:    runtime.Version(),
			Version:      er.version,
			WorkingDir:   wd,
			ConfigPath:   configPath,
		},
		Context: op,
	}
	if err.Cause != nil {
		report.Cause = err.Cause.Error()
	}
	return report
}

// SaveReport writes report as JSON and returns the file path.
func (er *ErrorReporter) SaveReport(report *ErrorReport) (string, error) {
	if err := os.MkdirAll(er.reportDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	name := fmt.Sprintf("error_report_%s_%s.json", report.Timestamp.Format("20060102_150405"), report.Error.Code)
	path := filepath.Join(er.reportDir, name)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// DisplayReport prints a short human readable form of report.
func (er *ErrorReporter) DisplayReport(w io.Writer, report *ErrorReport) {
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Time:    %s\n", report.Timestamp.Format("2006-01-02 15:04:05"))
	if report.Context != nil {
		fmt.Fprintf(w, "Command: %s %s\n", report.Context.Command, strings.Join(report.Context.Arguments, " "))
	}
	env := report.Environment
	fmt.Fprintf(w, "System:  %s/%s %s, apkcrawler %s\n", env.OS, env.Architecture, env.GoVersion, env.Version)
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprint(w, report.Error.FormatDetailed())
	fmt.Fprintln(w, strings.Repeat("=", 60))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
