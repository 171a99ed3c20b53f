package domain

import "time"

// DiscoveryFailure records one isolated per-tool failure during a discovery
// run. The run as a whole continues past these.
type DiscoveryFailure struct {
	Path string
	Code ErrorCode
	Err  string
}

// DiscoveryReport summarizes a discovery run for the caller.
type DiscoveryReport struct {
	LinksFound     int
	LinksDiscarded int
	ToolsParsed    int
	MetaAdded      int
	Failures       []DiscoveryFailure
	Started        time.Time
	Finished       time.Time
}

func (r DiscoveryReport) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// OperationAction names the package-manager mutation performed.
type OperationAction string

const (
	ActionInstall   OperationAction = "install"
	ActionUninstall OperationAction = "uninstall"
)

// OperationOutcome is the terminal state of one install/uninstall attempt.
type OperationOutcome string

const (
	OutcomeSucceeded OperationOutcome = "succeeded"
	OutcomeFailed    OperationOutcome = "failed"
	OutcomeSkipped   OperationOutcome = "skipped"
)

// OperationResult is the outcome of one install/uninstall attempt. It is
// surfaced to the caller and never persisted as catalog state.
type OperationResult struct {
	ID             string
	Package        string
	Action         OperationAction
	Outcome        OperationOutcome
	Classification ErrorCode
	ExitCode       int
	Output         string
	Err            error
	Duration       time.Duration
}

// Failed reports whether the operation terminated unsuccessfully.
func (r OperationResult) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// BulkSummary aggregates per-entry results of a bulk sub-package operation.
// One member's failure never fails the whole batch.
type BulkSummary struct {
	Succeeded int
	Failed    int
	Skipped   int
	Results   []OperationResult
}

// Add appends a per-entry result and updates the counters.
func (s *BulkSummary) Add(r OperationResult) {
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case OutcomeSucceeded:
		s.Succeeded++
	case OutcomeFailed:
		s.Failed++
	case OutcomeSkipped:
		s.Skipped++
	}
}
