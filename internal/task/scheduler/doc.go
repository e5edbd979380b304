// Package scheduler triggers command cron jobs on robfig/cron.
//
// It is responsible for:
//   - registering schedules by name (upsert)
//   - shifting and bounding trigger times (before / start / end)
//   - running jobs with a timeout, panic recovery and overlap skipping
//   - publishing run events and keeping a short run history
package scheduler
