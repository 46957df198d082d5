package status

import "vidflow/domain/export"

// TitleMsg sets the heading
type TitleMsg struct{ Title string }

// ProgressMsg carries overall progress in percent
type ProgressMsg struct{ Percent float64 }

// StatusMsg replaces the status line
type StatusMsg struct{ Text string }

// ToastMsg appends a notification
type ToastMsg struct {
	Message  string
	Severity export.Severity
}

// DoneMsg ends the program once the export has settled
type DoneMsg struct {
	Location string
	Err      error
}
