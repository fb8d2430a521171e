package service

import "errors"

// Sentinel error kinds returned by Service.
var (
	ErrNotStarted         = errors.New("service not started")
	ErrAnalysisDisabled   = errors.New("no analysis service configured")
	ErrAnalysisBusy       = errors.New("analysis queue is full")
	ErrSummarizerDisabled = errors.New("no summarization key configured")
)
