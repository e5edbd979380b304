package command

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

type Kind uint8

const (
	KindStructured Kind = iota
	KindNatural
)

func (k Kind) String() string {
	if k == KindNatural {
		return "NaturalCommand"
	}
	return "StructuredCommand"
}

// Channel identifies a chat room. Name is used for display only.
type Channel struct {
	ID   string
	Name string
}

type AttachmentKind string

const (
	AttachmentFile  AttachmentKind = "file"
	AttachmentPhoto AttachmentKind = "photo"
	AttachmentVideo AttachmentKind = "video"
)

// Attachment describes media that came with a message.
type Attachment struct {
	Kind     AttachmentKind
	URL      string
	Name     string
	Size     int64
	Duration time.Duration
}

// Responder answers in the channel a request came from.
type Responder interface {
	Reply(ctx context.Context, text string) error
}

// Request is one resolved message.
type Request struct {
	ID          string
	Command     string
	Channel     Channel
	SenderID    string
	SenderName  string
	Text        string
	Args        Args
	Residual    string
	Attachments []Attachment
	Received    time.Time

	Responder Responder
}

// Reply is a no-op when the request has no responder.
func (r *Request) Reply(ctx context.Context, text string) error {
	if r == nil || r.Responder == nil {
		return nil
	}
	return r.Responder.Reply(ctx, text)
}

type (
	ExecuteFunc func(ctx context.Context, req *Request) error
	// LazyFunc handles the next message of the same sender in the same
	// channel. prev is the request that armed it.
	LazyFunc func(ctx context.Context, req, prev *Request) error
	// CronFunc runs for the index-th cron job of the command, fired at at.
	CronFunc func(ctx context.Context, index int, at time.Time) error
)

// Example is one usage example; more than one line renders as a conversation.
type Example []string

// Info holds what both command kinds share.
type Info struct {
	Name        string
	Icon        string
	Description string
	// Channels restricts the command to these channels; empty means all.
	Channels []Channel
	CronJobs []CronJob
	Examples []Example

	Execute ExecuteFunc
	Lazy    LazyFunc
	Cron    CronFunc
}

// Command is either a *StructuredCommand or a *NaturalCommand.
type Command interface {
	Name() string
	Icon() string
	Description() string
	Kind() Kind
	Channels() []Channel
	CronJobs() []CronJob
	Examples() []Example
	IsLazy() bool
	// Specificity is the number of arguments or query slots.
	Specificity() int

	Execute(ctx context.Context, req *Request) error
	ExecuteLazy(ctx context.Context, req, prev *Request) error
	ExecuteCron(ctx context.Context, index int, at time.Time) error

	Manual(formats map[string]string) string

	resolve(text string) (Args, string, bool)
}

// core serializes the callbacks of one command so cron firings never run
// alongside a message for the same command.
type core struct {
	info Info
	mu   sync.Mutex
}

func (c *core) init(info Info) error {
	switch {
	case strings.TrimSpace(info.Name) == "":
		return fmt.Errorf("%w: name", ErrMissingField)
	case strings.TrimSpace(info.Icon) == "":
		return fmt.Errorf("%w: %s: icon", ErrMissingField, info.Name)
	case strings.TrimSpace(info.Description) == "":
		return fmt.Errorf("%w: %s: description", ErrMissingField, info.Name)
	case info.Execute == nil:
		return fmt.Errorf("%w: %s: execute", ErrMissingField, info.Name)
	case len(info.CronJobs) > 0 && info.Cron == nil:
		return fmt.Errorf("%w: %s: cron callback", ErrMissingField, info.Name)
	}
	for i, j := range info.CronJobs {
		if err := j.validate(); err != nil {
			return fmt.Errorf("%s: cron job %d: %w", info.Name, i, err)
		}
	}

	chans := make([]Channel, 0, len(info.Channels))
	for _, ch := range info.Channels {
		if strings.TrimSpace(ch.ID) != "" {
			chans = append(chans, ch)
		}
	}
	info.Channels = chans
	info.CronJobs = append([]CronJob(nil), info.CronJobs...)
	info.Examples = append([]Example(nil), info.Examples...)
	c.info = info
	return nil
}

func (c *core) Name() string        { return c.info.Name }
func (c *core) Icon() string        { return c.info.Icon }
func (c *core) Description() string { return c.info.Description }
func (c *core) Channels() []Channel { return append([]Channel(nil), c.info.Channels...) }
func (c *core) CronJobs() []CronJob { return append([]CronJob(nil), c.info.CronJobs...) }
func (c *core) Examples() []Example { return append([]Example(nil), c.info.Examples...) }
func (c *core) IsLazy() bool        { return c.info.Lazy != nil }

func (c *core) Execute(ctx context.Context, req *Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info.Execute(ctx, req)
}

func (c *core) ExecuteLazy(ctx context.Context, req, prev *Request) error {
	if c.info.Lazy == nil {
		return fmt.Errorf("%s: %w", c.info.Name, ErrNotLazy)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info.Lazy(ctx, req, prev)
}

func (c *core) ExecuteCron(ctx context.Context, index int, at time.Time) error {
	if c.info.Cron == nil {
		return fmt.Errorf("%s: %w", c.info.Name, ErrNoCron)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info.Cron(ctx, index, at)
}

// ---- structured ----

type StructuredOptions struct {
	Info
	Usage string
	// Dates is required when Usage has a date placeholder.
	Dates DateParser
}

type StructuredCommand struct {
	core
	grammar *Grammar
}

func NewStructured(opt StructuredOptions) (*StructuredCommand, error) {
	c := &StructuredCommand{}
	if err := c.init(opt.Info); err != nil {
		return nil, err
	}
	g, err := CompileUsage(opt.Usage, opt.Dates)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opt.Name, err)
	}
	c.grammar = g
	return c, nil
}

func (c *StructuredCommand) Kind() Kind        { return KindStructured }
func (c *StructuredCommand) Specificity() int  { return len(c.grammar.Args) }
func (c *StructuredCommand) Grammar() *Grammar { return c.grammar }
func (c *StructuredCommand) Usage() string     { return c.grammar.Usage }

func (c *StructuredCommand) resolve(text string) (Args, string, bool) {
	args, ok := c.grammar.Match(text)
	return args, "", ok
}

// ---- natural ----

type NaturalOptions struct {
	Info
	Query      Query
	Dictionary Dictionary
	// Margin is the number of unexplained non-space characters tolerated.
	// nil means DefaultMargin.
	Margin   *int
	DateMode DateMode
	// KeepEnding leaves particles after a date (에, 의, ...) in the text.
	KeepEnding bool
	Dates      DateParser
}

// MarginOf is a convenience for NaturalOptions.Margin.
func MarginOf(n int) *int { return &n }

type NaturalCommand struct {
	core
	m     *matcher
	slots int
}

func NewNatural(opt NaturalOptions) (*NaturalCommand, error) {
	c := &NaturalCommand{slots: len(opt.Query)}
	if err := c.init(opt.Info); err != nil {
		return nil, err
	}
	margin := DefaultMargin
	if opt.Margin != nil {
		margin = max(*opt.Margin, 0)
	}
	m, err := newMatcher(opt.Dictionary, opt.Query, margin, opt.DateMode, !opt.KeepEnding, opt.Dates)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opt.Name, err)
	}
	c.m = m
	return c, nil
}

func (c *NaturalCommand) Kind() Kind         { return KindNatural }
func (c *NaturalCommand) Specificity() int   { return c.slots }
func (c *NaturalCommand) Margin() int        { return c.m.margin }
func (c *NaturalCommand) DateMode() DateMode { return c.m.mode }

func (c *NaturalCommand) resolve(text string) (Args, string, bool) {
	return c.m.match(text)
}
