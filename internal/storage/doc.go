// Package storage persists what the bot must remember across restarts:
//
//   - an audit log of dispatched commands and cron runs
//   - the channels the bot has seen (id, name, last activity)
//   - the school event calendar imported from JSON
//
// Two drivers exist: "file" (JSON Lines + snapshots) and "sqlite".
package storage
