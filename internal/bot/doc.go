// Package bot turns inbound chat messages into command invocations.
//
// Messages are sharded by channel onto a fixed set of workers so that one
// channel is always handled in order. A message first completes a pending
// lazy continuation of its sender, if any; otherwise it is resolved against
// the command registry. Outcomes are published on the event bus, where the
// audit consumer persists them.
package bot
