package constants

// Status is the canonical status for project_files and project_reports rows.
type Status string

// Stable values (store these exact strings in DB).
const (
	StatusPending    Status = "pending"    // registered, not yet picked up
	StatusProcessing Status = "processing" // in progress
	StatusCompleted  Status = "completed"  // results durably saved
	StatusError      Status = "error"      // terminal failure
	StatusCancelled  Status = "cancelled"  // analyses only
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCancelled
}
