// Package telegram adapts the Telegram Bot API (long polling) to transport.Adapter.
package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	rtsup "github.com/joshwoo0/gsa-bot/internal/runtime/supervisor"
	"github.com/joshwoo0/gsa-bot/internal/transport"
	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

const textLimit = 4000

type Config struct {
	Token       string
	PollTimeout time.Duration
}

type Adapter struct {
	cfg Config
	log logx.Logger

	bot *tele.Bot
	out atomic.Pointer[chan<- transport.Message]

	runMu   sync.Mutex
	running bool
	// sup owns the poll loop and its helpers; created on Start, cancelled on Stop.
	sup *rtsup.Supervisor

	// dropped counts messages lost because the consumer was slower than polling.
	dropped atomic.Uint64
}

var _ transport.Adapter = (*Adapter)(nil)

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	a := &Adapter{cfg: cfg, log: log, bot: b}
	a.registerHandlers()
	return a, nil
}

func (a *Adapter) Name() string { return "telegram" }

func (a *Adapter) registerHandlers() {
	// Handlers forward to the CURRENT output channel. Start() may swap it.
	h := func(c tele.Context) error {
		if m := c.Message(); m != nil {
			a.deliver(convert(m))
		}
		return nil
	}
	for _, ev := range []string{tele.OnText, tele.OnDocument, tele.OnPhoto, tele.OnVideo} {
		a.bot.Handle(ev, h)
	}
}

func convert(m *tele.Message) transport.Message {
	msg := transport.Message{
		ID:       strconv.Itoa(m.ID),
		Text:     m.Text,
		Received: m.Time(),
	}
	if m.Chat != nil {
		msg.ChannelID = strconv.FormatInt(m.Chat.ID, 10)
		msg.ChannelName = chatName(m.Chat)
		msg.Direct = m.Chat.Type == tele.ChatPrivate
	}
	if m.Sender != nil {
		msg.SenderID = strconv.FormatInt(m.Sender.ID, 10)
		msg.SenderName = strings.TrimSpace(m.Sender.FirstName + " " + m.Sender.LastName)
		if msg.SenderName == "" {
			msg.SenderName = m.Sender.Username
		}
	}
	if msg.Text == "" {
		msg.Text = m.Caption
	}

	switch {
	case m.Document != nil:
		msg.Attachments = append(msg.Attachments, transport.Attachment{
			Kind: transport.AttachmentFile,
			Name: m.Document.FileName,
			Size: m.Document.FileSize,
			URL:  m.Document.FileID,
		})
	case m.Photo != nil:
		msg.Attachments = append(msg.Attachments, transport.Attachment{
			Kind: transport.AttachmentPhoto,
			Size: m.Photo.FileSize,
			URL:  m.Photo.FileID,
		})
	case m.Video != nil:
		msg.Attachments = append(msg.Attachments, transport.Attachment{
			Kind:     transport.AttachmentVideo,
			Name:     m.Video.FileName,
			Size:     m.Video.FileSize,
			Duration: time.Duration(m.Video.Duration) * time.Second,
			URL:      m.Video.FileID,
		})
	}
	return msg
}

func chatName(c *tele.Chat) string {
	if c.Title != "" {
		return c.Title
	}
	if n := strings.TrimSpace(c.FirstName + " " + c.LastName); n != "" {
		return n
	}
	return c.Username
}

func (a *Adapter) deliver(msg transport.Message) {
	p := a.out.Load()
	if p == nil || *p == nil {
		return
	}
	select {
	case *p <- msg:
	default:
		a.dropped.Add(1)
	}
}

func (a *Adapter) Start(ctx context.Context, out chan<- transport.Message) error {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	a.out.Store(&out)
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log))
	sup := a.sup
	a.runMu.Unlock()

	// Periodic summary instead of a log line per dropped message.
	sup.Go("drop_report", func(c context.Context) error {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-c.Done():
				a.reportDropped(cap(out))
				return nil
			case <-ticker.C:
				a.reportDropped(cap(out))
			}
		}
	})

	sup.Go("stop_on_cancel", func(c context.Context) error {
		<-c.Done()
		a.bot.Stop()
		return nil
	})

	// bot.Start blocks until Stop. If it returns early the poll loop is restarted.
	sup.GoRestart("poll", func(c context.Context) error {
		a.log.Info("polling started")
		a.bot.Start()
		a.log.Info("polling stopped")
		if c.Err() == nil {
			return errors.New("telegram poller exited")
		}
		return nil
	}, rtsup.WithBackoff(500*time.Millisecond, 10*time.Second))

	return nil
}

func (a *Adapter) reportDropped(capacity int) {
	if n := a.dropped.Swap(0); n > 0 {
		a.log.Warn("incoming messages dropped (channel full)", logx.Int64("count", int64(n)), logx.Int("chan_cap", capacity))
	}
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	sup := a.sup
	a.sup = nil
	wasRunning := a.running
	a.running = false
	a.out.Store(nil)
	a.runMu.Unlock()

	if !wasRunning || sup == nil {
		return nil
	}
	a.log.Info("stopping")
	sup.Cancel()

	// Keep shutdown snappy even if getUpdates is still waiting.
	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		grace = min(grace, time.Until(dl))
	}
	wctx, cancel := context.WithTimeout(ctx, max(grace, 0))
	defer cancel()
	if err := sup.Wait(wctx); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Debug("telegram stopped with error", logx.Err(err))
	}
	return nil
}

func (a *Adapter) SendText(ctx context.Context, channelID, text string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(channelID), 10, 64)
	if err != nil {
		return errors.New("telegram: invalid chat id " + strconv.Quote(channelID))
	}
	chat := &tele.Chat{ID: id}
	for _, chunk := range transport.SplitText(text, textLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := a.bot.Send(chat, chunk, &tele.SendOptions{DisableWebPagePreview: true}); err != nil {
			return err
		}
	}
	return nil
}
