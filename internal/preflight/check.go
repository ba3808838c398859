package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Aman-CERP/fireworm/internal/errors"
	"github.com/Aman-CERP/fireworm/internal/output"
)

// CheckStatus is the outcome of one check.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
)

var statusNames = [...]string{"pass", "warn", "fail"}

// String returns the upper-case label used in terminal output.
func (s CheckStatus) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return strings.ToUpper(statusNames[s])
	}
	return "UNKNOWN"
}

// MarshalText encodes the status in lower case for JSON.
func (s CheckStatus) MarshalText() ([]byte, error) {
	if s >= 0 && int(s) < len(statusNames) {
		return []byte(statusNames[s]), nil
	}
	return []byte("unknown"), nil
}

// UnmarshalText accepts the MarshalText form, in any case.
func (s *CheckStatus) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if strings.EqualFold(name, string(text)) {
			*s = CheckStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown check status %q", text)
}

// CheckResult holds the result of a single check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical reports whether a required check failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

func (r CheckResult) line() string {
	return r.Name + ": " + r.Message
}

// Summary values of Report.Status.
const (
	SummaryReady    = "ready"
	SummaryWarnings = "ready_with_warnings"
	SummaryFailed   = "failed"
)

// Report is the outcome of a full run. It is also the JSON shape of
// `fireworm doctor --json`.
type Report struct {
	Status   string        `json:"status"`
	Roots    []string      `json:"roots"`
	Checks   []CheckResult `json:"checks"`
	Warnings []string      `json:"warnings,omitempty"`
	Errors   []string      `json:"errors,omitempty"`
}

// NewReport summarizes results. A failed optional check counts as a
// warning.
func NewReport(roots []string, results []CheckResult) Report {
	r := Report{Roots: roots, Checks: results, Status: SummaryReady}
	for _, c := range results {
		switch {
		case c.IsCritical():
			r.Errors = append(r.Errors, c.line())
		case c.Status != StatusPass:
			r.Warnings = append(r.Warnings, c.line())
		}
	}
	if len(r.Errors) > 0 {
		r.Status = SummaryFailed
	} else if len(r.Warnings) > 0 {
		r.Status = SummaryWarnings
	}
	return r
}

// Critical reports whether any required check failed.
func (r Report) Critical() bool {
	return len(r.Errors) > 0
}

// Err returns a coded error listing the critical failures, or nil.
func (r Report) Err() error {
	if !r.Critical() {
		return nil
	}
	return errors.New(errors.ErrCodeSystemCheck,
		"system check failed: "+strings.Join(r.Errors, "; "), nil).
		WithSuggestion("Run 'fireworm doctor --verbose' for details, or pass --skip-check")
}

// Checker runs the host checks.
type Checker struct {
	verbose bool
	output  io.Writer
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose prints each check's details under it.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) { c.verbose = verbose }
}

// WithOutput sets where Print writes.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) { c.output = w }
}

// New creates a Checker writing to stdout unless WithOutput says otherwise.
func New(opts ...Option) *Checker {
	c := &Checker{output: os.Stdout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run checks the handle budget, then each root. Root checks stop once
// ctx is done.
func (c *Checker) Run(ctx context.Context, roots []string) Report {
	results := []CheckResult{
		c.CheckFileDescriptors(),
		c.CheckInotifyWatches(),
	}
	for _, root := range roots {
		if ctx.Err() != nil {
			break
		}
		results = append(results, c.CheckReadable(root))
	}
	return NewReport(roots, results)
}

// Print writes the report for a terminal. Without verbose, details of
// non-passing checks are collected as hints at the end.
func (c *Checker) Print(r Report) {
	out := output.New(c.output)
	out.Statusf("🔍", "fireworm system check (%d roots)", len(r.Roots))
	out.Newline()

	var hints []string
	for _, res := range r.Checks {
		text := fmt.Sprintf("[%s] %s", res.Status, res.line())
		switch {
		case res.IsCritical():
			out.Error(text)
		case res.Status == StatusPass:
			out.Success(text)
		default:
			out.Warning(text)
		}
		if res.Details == "" {
			continue
		}
		if c.verbose {
			out.Status("", res.Details)
		} else if res.Status != StatusPass {
			hints = append(hints, res.Name+": "+res.Details)
		}
	}

	out.Newline()
	out.Statusf("📋", "Status: %s", strings.ToUpper(r.Status))
	if len(hints) > 0 {
		out.Newline()
		for _, h := range hints {
			out.Status("", h)
		}
	}
}

// CheckReadable checks that a watch root exists and can be listed. A
// missing root only warns: the watcher picks it up once it appears.
func (c *Checker) CheckReadable(root string) CheckResult {
	res := CheckResult{Name: "readable " + root, Required: true}

	info, err := os.Stat(root)
	switch {
	case os.IsNotExist(err):
		res.Status, res.Message = StatusWarn, "does not exist yet"
	case err != nil:
		res.Status, res.Message = StatusFail, fmt.Sprintf("cannot stat: %v", err)
	case info.IsDir():
		if _, err := os.ReadDir(root); err != nil {
			res.Status, res.Message = StatusFail, fmt.Sprintf("cannot list: %v", err)
			res.Details = "Check directory permissions"
		} else {
			res.Status, res.Message = StatusPass, "directory OK"
		}
	default:
		f, err := os.Open(root)
		if err != nil {
			res.Status, res.Message = StatusFail, fmt.Sprintf("cannot open: %v", err)
			break
		}
		_ = f.Close()
		res.Status, res.Message = StatusPass, "file OK"
	}
	return res
}
