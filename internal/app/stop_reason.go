package app

// StopReason is logged when serve mode shuts down.
type StopReason string

const (
	StopUnknown    StopReason = "unknown"
	StopSignal     StopReason = "signal"
	StopFatalError StopReason = "fatal_error"
	StopRunOnce    StopReason = "run_once"
)
