// Package scheduler triggers the periodic sanctions-list run.
//
// It wraps robfig/cron with the schedule syntaxes accepted in config
// (cron, descriptors, intervals, daily wall-clock times) and a single upserted
// job that never overlaps itself.
package scheduler
