// Package discord adapts a discordgo gateway session to transport.Adapter.
package discord

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/joshwoo0/gsa-bot/internal/transport"
	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

// Discord rejects messages over 2000 characters.
const textLimit = 2000

type Config struct {
	Token string
}

type Adapter struct {
	log logx.Logger
	dg  *discordgo.Session

	out     atomic.Pointer[chan<- transport.Message]
	dropped atomic.Uint64

	runMu   sync.Mutex
	running bool
	removeH func()

	// names caches channel names; MessageCreate carries only the id.
	namesMu sync.Mutex
	names   map[string]string
}

var _ transport.Adapter = (*Adapter)(nil)

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("discord token is empty")
	}
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{log: log, dg: dg, names: map[string]string{}}, nil
}

func (a *Adapter) Name() string { return "discord" }

func (a *Adapter) Start(ctx context.Context, out chan<- transport.Message) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.running {
		return nil
	}
	a.out.Store(&out)
	a.removeH = a.dg.AddHandler(a.onMessageCreate)
	if err := a.dg.Open(); err != nil {
		a.removeH()
		a.out.Store(nil)
		return err
	}
	a.running = true
	a.log.Info("gateway connected")

	go func() {
		t := time.NewTicker(5 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = a.Stop(context.Background())
				return
			case <-t.C:
				if n := a.dropped.Swap(0); n > 0 {
					a.log.Warn("incoming messages dropped (channel full)", logx.Int64("count", int64(n)), logx.Int("chan_cap", cap(out)))
				}
				a.runMu.Lock()
				running := a.running
				a.runMu.Unlock()
				if !running {
					return
				}
			}
		}
	}()
	return nil
}

func (a *Adapter) Stop(context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if !a.running {
		return nil
	}
	a.running = false
	a.out.Store(nil)
	if a.removeH != nil {
		a.removeH()
	}
	a.log.Info("stopping")
	return a.dg.Close()
}

func (a *Adapter) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}
	p := a.out.Load()
	if p == nil || *p == nil {
		return
	}
	msg := a.convert(s, m)
	select {
	case *p <- msg:
	default:
		a.dropped.Add(1)
	}
}

func (a *Adapter) convert(s *discordgo.Session, m *discordgo.MessageCreate) transport.Message {
	msg := transport.Message{
		ID:         m.ID,
		ChannelID:  m.ChannelID,
		Direct:     m.GuildID == "",
		SenderID:   m.Author.ID,
		SenderName: m.Author.Username,
		Text:       m.Content,
		Received:   m.Timestamp,
	}
	if m.Member != nil && m.Member.Nick != "" {
		msg.SenderName = m.Member.Nick
	}
	if msg.Received.IsZero() {
		msg.Received = time.Now()
	}
	msg.ChannelName = a.channelName(s, m.ChannelID)

	for _, at := range m.Attachments {
		if at == nil {
			continue
		}
		kind := transport.AttachmentFile
		switch {
		case strings.HasPrefix(at.ContentType, "image/"):
			kind = transport.AttachmentPhoto
		case strings.HasPrefix(at.ContentType, "video/"):
			kind = transport.AttachmentVideo
		}
		msg.Attachments = append(msg.Attachments, transport.Attachment{
			Kind: kind,
			URL:  at.URL,
			Name: at.Filename,
			Size: int64(at.Size),
		})
	}
	return msg
}

func (a *Adapter) channelName(s *discordgo.Session, id string) string {
	a.namesMu.Lock()
	name, ok := a.names[id]
	a.namesMu.Unlock()
	if ok {
		return name
	}
	ch, err := s.State.Channel(id)
	if err != nil {
		ch, err = s.Channel(id)
	}
	if err != nil {
		a.log.Debug("channel lookup failed", logx.String("channel_id", id), logx.Err(err))
		return ""
	}
	a.namesMu.Lock()
	a.names[id] = ch.Name
	a.namesMu.Unlock()
	return ch.Name
}

func (a *Adapter) SendText(ctx context.Context, channelID, text string) error {
	for _, chunk := range transport.SplitText(text, textLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := a.dg.ChannelMessageSend(channelID, chunk, discordgo.WithContext(ctx)); err != nil {
			return err
		}
	}
	return nil
}
