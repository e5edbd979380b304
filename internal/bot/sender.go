package bot

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/joshwoo0/gsa-bot/internal/command"
	"github.com/joshwoo0/gsa-bot/internal/transport"
	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

// RateLimited paces outgoing messages to perSec (burst perSec). A
// non-positive rate returns next unchanged.
func RateLimited(next transport.Sender, perSec int) transport.Sender {
	if perSec <= 0 {
		return next
	}
	return &limitedSender{next: next, lim: rate.NewLimiter(rate.Limit(perSec), perSec)}
}

type limitedSender struct {
	next transport.Sender
	lim  *rate.Limiter
}

func (s *limitedSender) SendText(ctx context.Context, channelID, text string) error {
	if err := s.lim.Wait(ctx); err != nil {
		return err
	}
	return s.next.SendText(ctx, channelID, text)
}

// responder answers in a fixed channel.
type responder struct {
	sender    transport.Sender
	channelID string
}

func (r responder) Reply(ctx context.Context, text string) error {
	return r.sender.SendText(ctx, r.channelID, text)
}

// CronReporter posts cron audit records to the log channel.
type CronReporter struct {
	Sender transport.Sender
	Mode   *Mode
}

var _ command.Reporter = (*CronReporter)(nil)

func (r *CronReporter) ReportCron(ctx context.Context, rep command.CronReport) error {
	ch := r.Mode.LogChannel()
	if ch == "" {
		return nil
	}
	return r.Sender.SendText(ctx, ch, rep.Text())
}

// LogSink forwards log lines to the log channel.
type LogSink struct {
	Sender transport.Sender
	Mode   *Mode
}

var _ logx.Sender = (*LogSink)(nil)

func (s *LogSink) SendLog(ctx context.Context, text string) error {
	ch := s.Mode.LogChannel()
	if ch == "" {
		return nil
	}
	return s.Sender.SendText(ctx, ch, text)
}
