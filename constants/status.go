package constants

// Phase is the coarse state of a session as the UI sees it.
type Phase string

const (
	PhaseEmpty    Phase = "EMPTY"    // nothing selected, nothing extracted
	PhaseSelected Phase = "SELECTED" // image present, no attempt yet
	PhaseLoading  Phase = "LOADING"  // extraction in flight
	PhaseSuccess  Phase = "SUCCESS"  // text available
	PhaseError    Phase = "ERROR"    // last action failed
)

// CopyStatus is the ephemeral state of the copy button.
type CopyStatus string

const (
	CopyIdle   CopyStatus = "idle"
	CopyCopied CopyStatus = "copied"
)
