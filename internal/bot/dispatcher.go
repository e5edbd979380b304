package bot

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/joshwoo0/gsa-bot/internal/command"
	"github.com/joshwoo0/gsa-bot/internal/eventbus"
	rtsup "github.com/joshwoo0/gsa-bot/internal/runtime/supervisor"
	"github.com/joshwoo0/gsa-bot/internal/storage"
	"github.com/joshwoo0/gsa-bot/internal/transport"
	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

// EventCommand is published after every message or lazy invocation; Data is
// a storage.AuditEntry.
const EventCommand = "command.executed"

const (
	replyFailed = "❌ 명령어를 처리하는 중 오류가 발생했습니다."
	replyBusy   = "⚠ 요청이 많아 처리하지 못했습니다. 잠시 후 다시 시도해주세요."
)

type Options struct {
	Registry *command.Registry
	Sender   transport.Sender
	Mode     *Mode
	// Store and Bus are optional.
	Store storage.Store
	Bus   eventbus.Bus
	Log   logx.Logger

	Workers        int           // default 4
	QueueSize      int           // per worker, default 64
	LazyTimeout    time.Duration // default 5m
	CommandTimeout time.Duration // default 30s

	Now func() time.Time
}

type Dispatcher struct {
	reg    *command.Registry
	sender transport.Sender
	mode   *Mode
	store  storage.Store
	bus    eventbus.Bus
	log    logx.Logger

	workers   int
	queueSize int
	lazyTTL   time.Duration
	timeout   time.Duration
	now       func() time.Time

	lazy   *lazyStore
	shards []chan transport.Message
}

func New(opt Options) *Dispatcher {
	d := &Dispatcher{
		reg:       opt.Registry,
		sender:    opt.Sender,
		mode:      opt.Mode,
		store:     opt.Store,
		bus:       opt.Bus,
		log:       opt.Log,
		workers:   opt.Workers,
		queueSize: opt.QueueSize,
		lazyTTL:   opt.LazyTimeout,
		timeout:   opt.CommandTimeout,
		now:       opt.Now,
		lazy:      newLazyStore(),
	}
	if d.log.IsZero() {
		d.log = logx.Nop()
	}
	if d.mode == nil {
		d.mode = NewMode(false, nil, "")
	}
	if d.workers <= 0 {
		d.workers = 4
	}
	if d.queueSize <= 0 {
		d.queueSize = 64
	}
	if d.lazyTTL <= 0 {
		d.lazyTTL = 5 * time.Minute
	}
	if d.timeout <= 0 {
		d.timeout = 30 * time.Second
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

func (d *Dispatcher) Mode() *Mode { return d.mode }

// Run consumes in until ctx is done or in is closed. Each channel is pinned
// to one worker so its messages are handled in arrival order.
func (d *Dispatcher) Run(ctx context.Context, in <-chan transport.Message) error {
	sup := rtsup.New(ctx, rtsup.WithLogger(d.log))
	d.shards = make([]chan transport.Message, d.workers)
	for i := range d.shards {
		ch := make(chan transport.Message, d.queueSize)
		d.shards[i] = ch
		sup.GoRestart("worker."+strconv.Itoa(i), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case msg := <-ch:
					d.Handle(c, msg)
				}
			}
		}, rtsup.WithBackoff(200*time.Millisecond, 5*time.Second))
	}
	sup.Go("lazy.sweep", func(c context.Context) error {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-c.Done():
				return nil
			case <-t.C:
				if n := d.lazy.sweep(d.now()); n > 0 {
					d.log.Debug("lazy continuations expired", logx.Int("count", n))
				}
			}
		}
	})
	d.log.Info("dispatcher started", logx.Int("workers", d.workers), logx.Int("queue_cap", d.queueSize))

	defer func() {
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Stop(wctx)
		cancel()
		d.log.Info("dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-in:
			if !ok {
				return nil
			}
			d.enqueue(ctx, msg)
		}
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, msg transport.Message) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(msg.ChannelID))
	shard := d.shards[h.Sum32()%uint32(len(d.shards))]
	select {
	case shard <- msg:
	default:
		d.log.Warn("dispatch queue full", logx.String("channel_id", msg.ChannelID))
		_ = d.sender.SendText(ctx, msg.ChannelID, replyBusy)
	}
}

// Handle processes one message synchronously.
func (d *Dispatcher) Handle(ctx context.Context, msg transport.Message) {
	if msg.Received.IsZero() {
		msg.Received = d.now()
	}
	d.noteChannel(ctx, msg)

	key := lazyKey{channel: msg.ChannelID, sender: msg.SenderID}
	if p, ok := d.lazy.take(key, d.now()); ok {
		req := d.request(msg, p.cmd.Name(), p.prev.Args, "")
		_ = d.invoke(ctx, KindLazy, p.cmd, req, p.prev)
		return
	}

	m, ok := d.reg.Resolve(msg.Text, msg.ChannelID, d.mode.DebugChannels(), d.mode.Debug())
	if !ok {
		return
	}
	req := d.request(msg, m.Command.Name(), m.Args, m.Residual)
	err := d.invoke(ctx, KindMessage, m.Command, req, nil)
	if err == nil && m.Command.IsLazy() {
		d.lazy.arm(key, pending{cmd: m.Command, prev: req, expires: d.now().Add(d.lazyTTL)})
	}
}

func (d *Dispatcher) request(msg transport.Message, name string, args command.Args, residual string) *command.Request {
	req := &command.Request{
		ID:         uuid.NewString(),
		Command:    name,
		Channel:    command.Channel{ID: msg.ChannelID, Name: msg.ChannelName},
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Text:       msg.Text,
		Args:       args,
		Residual:   residual,
		Received:   msg.Received,
		Responder:  responder{sender: d.sender, channelID: msg.ChannelID},
	}
	for _, a := range msg.Attachments {
		req.Attachments = append(req.Attachments, command.Attachment{
			Kind:     command.AttachmentKind(a.Kind),
			URL:      a.URL,
			Name:     a.Name,
			Size:     a.Size,
			Duration: a.Duration,
		})
	}
	return req
}

func (d *Dispatcher) invoke(ctx context.Context, kind string, cmd command.Command, req, prev *command.Request) error {
	call := &Call{
		Kind:    kind,
		Command: cmd,
		Req:     req,
		Prev:    prev,
		Log: d.log.With(
			logx.String("rid", req.ID),
			logx.String("channel_id", req.Channel.ID),
			logx.String("sender_id", req.SenderID),
			logx.String("cmd", cmd.Name()),
		),
	}
	h := func(ctx context.Context, c *Call) error {
		if c.Kind == KindLazy {
			return c.Command.ExecuteLazy(ctx, c.Req, c.Prev)
		}
		return c.Command.Execute(ctx, c.Req)
	}
	final := Chain(h,
		MWPanicRecover(d.log),
		MWRequestLog(d.log),
		MWTimeout(d.timeout),
	)

	start := time.Now()
	err := final(ctx, call)
	failed := err != nil && !errors.Is(err, command.ErrSkipLazy)
	if failed {
		_ = req.Reply(context.WithoutCancel(ctx), replyFailed)
	}

	if d.bus != nil {
		entry := storage.AuditEntry{
			At:         start,
			RequestID:  req.ID,
			Kind:       kind,
			Command:    cmd.Name(),
			ChannelID:  req.Channel.ID,
			SenderID:   req.SenderID,
			SenderName: req.SenderName,
			Text:       req.Text,
			OK:         !failed,
			TookMS:     time.Since(start).Milliseconds(),
		}
		if failed {
			entry.Error = err.Error()
		}
		d.bus.Publish(eventbus.Event{Type: EventCommand, Time: time.Now(), Data: entry})
	}
	return err
}

func (d *Dispatcher) noteChannel(ctx context.Context, msg transport.Message) {
	if d.store == nil || msg.ChannelID == "" {
		return
	}
	err := d.store.UpsertChannel(ctx, storage.ChannelRecord{
		ID:       msg.ChannelID,
		Name:     msg.ChannelName,
		Direct:   msg.Direct,
		Members:  msg.Members,
		LastSeen: msg.Received,
	})
	if err != nil {
		d.log.Debug("channel upsert failed", logx.String("channel_id", msg.ChannelID), logx.Err(err))
	}
}

// PendingLazy reports how many continuations are waiting.
func (d *Dispatcher) PendingLazy() int { return d.lazy.len() }
