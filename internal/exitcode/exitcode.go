// Package exitcode defines the process exit codes of tariffload.
package exitcode

const (
	Success         = 0
	UsageError      = 1
	ValidationError = 2
	DBConnError     = 3
	StageError      = 4
	FinalizeError   = 5
	AnalysisError   = 6
)
