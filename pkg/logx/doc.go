// Package logx configures the bot's structured logging.
//
// logx.Logger is a small value-type wrapper on top of zerolog that keeps
// console output readable (short timestamp + short caller) while file output
// stays JSON-structured. A Service can additionally forward warnings to a chat
// log channel through a Sender (min-level + rate limiting).
package logx
