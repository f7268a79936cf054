package model

import "time"

// RunStatus describes how a collection run ended.
type RunStatus string

const (
	RunStatusComplete RunStatus = "complete"
	RunStatusPartial  RunStatus = "partial"
)

// Manifest records what a collection run fetched and whether it finished.
// It is written next to the raw dump so a partial dump is never mistaken
// for a complete one.
type Manifest struct {
	RunID       string        `json:"run_id" yaml:"run_id"`
	Status      RunStatus     `json:"status" yaml:"status"`
	Destination string        `json:"destination" yaml:"destination"`
	Tag         string        `json:"tag,omitempty" yaml:"tag,omitempty"`
	TargetCount int           `json:"target_count" yaml:"target_count"`
	MaxWindows  int           `json:"max_windows" yaml:"max_windows"`
	WindowSize  time.Duration `json:"window_size" yaml:"window_size"`
	Windows     int           `json:"windows" yaml:"windows"`
	Pages       int           `json:"pages" yaml:"pages"`
	Records     int           `json:"records" yaml:"records"`
	Duplicates  int           `json:"duplicates" yaml:"duplicates"`
	Error       string        `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time     `json:"finished_at" yaml:"finished_at"`
}
