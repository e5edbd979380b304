package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/joshwoo0/gsa-bot/internal/command"
	"github.com/joshwoo0/gsa-bot/internal/eventbus"
	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

// Config controls the scheduler service.
type Config struct {
	Enabled  bool
	Timezone string        // IANA TZ, e.g. "Asia/Seoul"
	Timeout  time.Duration // per-run timeout (default 5m)
	History  int           // run history size (default 50)
}

const (
	defaultTimeout = 5 * time.Minute
	defaultHistory = 50
)

type scheduleDef struct {
	id      string
	name    string
	spec    string
	opt     command.CronOptions
	job     func(ctx context.Context) error
	entryID cron.EntryID
	stats   *runStats
}

type runStats struct {
	runs     atomic.Uint64
	failures atomic.Uint64
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location
	bus eventbus.Bus

	parser cron.Parser
	c      *cron.Cron
	defs   []scheduleDef

	// runCtx is the parent of every job context; cancelled on Stop.
	runCtx    context.Context
	runCancel context.CancelFunc

	// Failure warning throttling: key is schedule name.
	warnMu   sync.Mutex
	lastWarn map[string]time.Time

	histMu  sync.Mutex
	history []HistoryItem
}

var _ command.Scheduler = (*Service)(nil)

// Bus event types; Data is a RunEvent.
const (
	EventFinished = "cron.finished"
	EventFailed   = "cron.failed"
)

// RunEvent is published on the bus after every run.
type RunEvent struct {
	Name     string        `json:"name"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

type HistoryItem = RunEvent

type ScheduleInfo struct {
	ID       string
	Name     string
	Spec     string
	Before   time.Duration
	Start    time.Time
	End      time.Time
	Next     time.Time
	Prev     time.Time
	Runs     uint64
	Failures uint64
}

type Snapshot struct {
	Enabled   bool
	Running   bool
	Timezone  string
	Timeout   time.Duration
	Schedules []ScheduleInfo
	History   []HistoryItem
}
