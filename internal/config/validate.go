// This file adds a lightweight linter for Pipeline values. It performs
// static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in the CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that should be surfaced to users
	// but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.dsn"). Message is
// human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a
// single error where callers expect one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// ValidatePipeline performs static validation of a Pipeline. It does not
// mutate the pipeline; it returns a slice of Issue values and callers decide
// whether warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels logs and metrics for the run",
		})
	}
	if strings.TrimSpace(p.Input.Dir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input.dir",
			Message:  "input directory is required",
		})
	}
	if strings.TrimSpace(p.Output.CleanedDir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.cleaned_dir",
			Message:  "cleaned output directory is required",
		})
	}
	if strings.TrimSpace(p.Output.RejectedDir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.rejected_dir",
			Message:  "rejected output directory is required",
		})
	}

	if p.Cleaning.CardSalt == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "cleaning.card_salt",
			Message:  "card salt must not be empty",
		})
	} else if p.Cleaning.CardSalt == DefaultCardSalt {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "cleaning.card_salt",
			Message:  "default salt in use; set CARD_SALT before running against production data",
		})
	}

	if p.Storage.DSN == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.dsn",
			Message:  "no DSN configured; the load stage will be skipped",
		})
	}
	if p.Storage.ConnectTimeout <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.connect_timeout",
			Message:  "connect timeout must be positive",
		})
	}

	switch p.Metrics.Backend {
	case "", "none", "pushgateway":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown backend %q (expected \"pushgateway\" or \"none\")", p.Metrics.Backend),
		})
	}
	if p.Metrics.Backend == "pushgateway" && strings.TrimSpace(p.Metrics.PushgatewayURL) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.pushgateway_url",
			Message:  "pushgateway backend selected but no URL configured",
		})
	}

	if p.Runtime.FileWorkers < 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.file_workers",
			Message:  "file_workers must be at least 1",
		})
	}

	return issues
}

// HasErrors reports whether any issue is of error severity.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
