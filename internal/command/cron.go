package command

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CronJob schedules ExecuteCron. Before fires the job earlier than the cron
// expression says; After delays the callback once fired. They are mutually
// exclusive. StartDate and EndDate bound the firings when set.
type CronJob struct {
	Cron      string
	Comment   string
	Before    time.Duration
	After     time.Duration
	StartDate time.Time
	EndDate   time.Time
}

func (j CronJob) validate() error {
	switch {
	case strings.TrimSpace(j.Cron) == "":
		return fmt.Errorf("%w: cron expression", ErrMissingField)
	case j.Before != 0 && j.After != 0:
		return ErrCronConflict
	case j.Before < 0 || j.After < 0:
		return fmt.Errorf("%w: negative delay", ErrInvalidBounds)
	case !j.StartDate.IsZero() && !j.EndDate.IsZero() && j.EndDate.Before(j.StartDate):
		return fmt.Errorf("%w: end date before start date", ErrInvalidBounds)
	}
	return nil
}

// CronOptions is the part of a CronJob the scheduler applies itself.
type CronOptions struct {
	Before    time.Duration
	StartDate time.Time
	EndDate   time.Time
}

// Options returns the scheduler-side options of j.
func (j CronJob) Options() CronOptions {
	return CronOptions{Before: j.Before, StartDate: j.StartDate, EndDate: j.EndDate}
}

// Scheduler registers cron expressions. Registering an existing name replaces it.
type Scheduler interface {
	AddCron(name, spec string, opt CronOptions, job func(ctx context.Context) error) (string, error)
	Remove(name string) bool
}

// Reporter receives an audit record after every cron firing. Errors are
// logged and otherwise ignored.
type Reporter interface {
	ReportCron(ctx context.Context, rep CronReport) error
}

type CronReport struct {
	Command string
	Icon    string
	Kind    Kind
	Index   int
	At      time.Time
	Took    time.Duration
	Err     error
}

// Text renders the report for a log channel.
func (r CronReport) Text() string {
	argv, _ := json.Marshal(struct {
		Idx      int    `json:"idx"`
		Datetime string `json:"datetime"`
	}{r.Index, r.At.Format(time.RFC3339)})

	lines := []string{
		fmt.Sprintf("호출된 명령어: Cronjob of %s(%s %s)", r.Kind, r.Icon, r.Command),
		"명령어 인자: " + string(argv),
		"시간: " + r.At.Format("2006-01-02 15:04:05"),
	}
	if r.Err != nil {
		lines = append(lines, "오류: "+r.Err.Error())
	}
	return strings.Join(lines, "\n")
}

func cronName(cmd Command, idx int) string { return fmt.Sprintf("%s#%d", cmd.Name(), idx) }

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
