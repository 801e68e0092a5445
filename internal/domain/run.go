package domain

import "time"

// RunSummary describes one pipeline invocation.
type RunSummary struct {
	RunID      string
	Loaded     int
	Errors     int
	Duplicates int
	Clean      int
	Suspicious int
	RatePairs  int
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunOutput is the set of partitions handed to the output writer.
// Clean, Errors and Suspicious are disjoint.
type RunOutput struct {
	Summary    RunSummary
	Clean      []Transaction
	Errors     []Transaction
	Suspicious []Transaction
}
