// Package command turns chat messages into command invocations.
//
// Two grammars are supported. A StructuredCommand compiles a usage string such
// as "<부서:str> 알림 <기수:int[]? min=54 max=56>" into one anchored regular
// expression with a typed argument per placeholder. A NaturalCommand looks for
// dictionary aliases anywhere in free text, optionally pulls a date or span out
// of the rest, and accepts the message when little unexplained text remains.
//
// A Registry keeps commands ordered so the most specific grammar is tried
// first, applies channel and debug-mode visibility, and binds cron jobs to a
// Scheduler.
package command
