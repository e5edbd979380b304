package command

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeScheduler struct {
	mu   sync.Mutex
	jobs map[string]func(ctx context.Context) error
	opts map[string]CronOptions
	spec map[string]string
	fail string
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{
		jobs: map[string]func(ctx context.Context) error{},
		opts: map[string]CronOptions{},
		spec: map[string]string{},
	}
}

func (f *fakeScheduler) AddCron(name, spec string, opt CronOptions, job func(ctx context.Context) error) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if spec == f.fail {
		return "", fmt.Errorf("bad spec %q", spec)
	}
	f.jobs[name] = job
	f.opts[name] = opt
	f.spec[name] = spec
	return name, nil
}

func (f *fakeScheduler) Remove(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.jobs[name]
	delete(f.jobs, name)
	return ok
}

func (f *fakeScheduler) fire(t *testing.T, name string) error {
	t.Helper()
	f.mu.Lock()
	job := f.jobs[name]
	f.mu.Unlock()
	if job == nil {
		t.Fatalf("no job %q", name)
	}
	return job(context.Background())
}

type fakeReporter struct {
	mu      sync.Mutex
	reports []CronReport
	err     error
}

func (f *fakeReporter) ReportCron(_ context.Context, rep CronReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, rep)
	return f.err
}

func structured(t *testing.T, name, usage string, channels ...Channel) *StructuredCommand {
	t.Helper()
	c, err := NewStructured(StructuredOptions{
		Info:  Info{Name: name, Icon: "s", Description: name, Channels: channels, Execute: noop},
		Usage: usage,
	})
	if err != nil {
		t.Fatalf("NewStructured(%s): %v", name, err)
	}
	return c
}

func natural(t *testing.T, name string, slots ...string) *NaturalCommand {
	t.Helper()
	q, d := Query{}, Dictionary{}
	for _, s := range slots {
		q[s] = Required()
		d[s] = []string{s}
	}
	c, err := NewNatural(NaturalOptions{
		Info:       Info{Name: name, Icon: "n", Description: name, Execute: noop},
		Query:      q,
		Dictionary: d,
	})
	if err != nil {
		t.Fatalf("NewNatural(%s): %v", name, err)
	}
	return c
}

func names(cmds []Command) []string {
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.Name())
	}
	return out
}

func TestRegistryOrdering(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.MustRegister(
		structured(t, "s2", "<a:int> <b:int>"),
		natural(t, "n3", "x", "y", "z"),
		structured(t, "s4", "<a:int> <b:int> <c:int> <d:int>"),
	)
	if got := names(r.Commands()); !reflect.DeepEqual(got, []string{"s4", "s2", "n3"}) {
		t.Fatalf("order=%v", got)
	}

	// Equal specificity keeps registration order.
	r.MustRegister(structured(t, "s2b", "<a:str> <b:str>"), natural(t, "n1", "w"))
	if got := names(r.Commands()); !reflect.DeepEqual(got, []string{"s4", "s2", "s2b", "n3", "n1"}) {
		t.Fatalf("order=%v", got)
	}
}

func TestRegistryDuplicateName(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	first := structured(t, "도움말", "도움말 <명령어:str?>")
	if err := r.Register(first); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := r.Register(structured(t, "도움말", "help"))
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("err=%v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("len=%d", r.Len())
	}
	got, ok := r.Find("도움말")
	if !ok || got != Command(first) {
		t.Fatalf("prior registration must stay intact")
	}
	if m, ok := r.Resolve("도움말 급식", "c", nil, false); !ok || m.Command != Command(first) {
		t.Fatalf("resolve must still use the first command")
	}
}

func TestRegistryDebugIsolation(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.MustRegister(structured(t, "any", "<x:str>"), natural(t, "nat", "밥"))
	debug := []string{"A", "B"}

	if m, ok := r.Resolve("hello", "C", debug, true); ok || m.Command != nil {
		t.Fatalf("debug mode must hide commands outside debug channels")
	}
	if _, ok := r.Resolve("밥", "C", debug, true); ok {
		t.Fatalf("debug mode must hide natural commands too")
	}
	if m, ok := r.Resolve("hello", "A", debug, true); !ok || m.Command.Name() != "any" {
		t.Fatalf("debug channel must see commands")
	}
	if _, ok := r.Resolve("hello", "C", debug, false); !ok {
		t.Fatalf("debug mode off must not hide unrestricted commands")
	}
}

func TestRegistryChannelAllowList(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.MustRegister(structured(t, "공지", "공지 <x:str>", Channel{ID: "staff", Name: "임원방"}, Channel{ID: ""}))
	debug := []string{"dbg"}

	if _, ok := r.Resolve("공지 a", "class", debug, false); ok {
		t.Fatalf("restricted command visible outside its channels")
	}
	if _, ok := r.Resolve("공지 a", "staff", debug, false); !ok {
		t.Fatalf("restricted command hidden in its channel")
	}
	if _, ok := r.Resolve("공지 a", "dbg", debug, false); !ok {
		t.Fatalf("restricted command hidden in a debug channel")
	}
	cmd, _ := r.Find("공지")
	if len(cmd.Channels()) != 1 {
		t.Fatalf("empty channel ids must be dropped: %v", cmd.Channels())
	}
}

func TestRegistryResolveFirstMatchWins(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.MustRegister(
		structured(t, "generic", "<x:str>"),
		structured(t, "specific", "<x:str> <y:int>"),
	)
	m, ok := r.Resolve("  a 1  ", "c", nil, false)
	if !ok || m.Command.Name() != "specific" {
		t.Fatalf("match=%+v", m)
	}
	if y, _ := m.Args.Int("y"); y != 1 {
		t.Fatalf("y=%v", m.Args["y"])
	}
	m, ok = r.Resolve("a", "c", nil, false)
	if !ok || m.Command.Name() != "generic" {
		t.Fatalf("match=%+v", m)
	}
	if m, ok := r.Resolve("a b c", "c", nil, false); ok || m.Command != nil || m.Args != nil {
		t.Fatalf("no command expected, got %+v", m)
	}
}

func cronCommand(t *testing.T, name string, jobs []CronJob, calls *[]string) *StructuredCommand {
	t.Helper()
	c, err := NewStructured(StructuredOptions{
		Info: Info{
			Name: name, Icon: "⏰", Description: name, Execute: noop,
			CronJobs: jobs,
			Cron: func(_ context.Context, idx int, at time.Time) error {
				*calls = append(*calls, fmt.Sprintf("%d@%s", idx, at.Format("15:04")))
				if idx == 1 {
					return errors.New("boom")
				}
				return nil
			},
		},
		Usage: name,
	})
	if err != nil {
		t.Fatalf("NewStructured: %v", err)
	}
	return c
}

func TestRegistryCronBinding(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 13, 11, 40, 0, 0, kst)
	rep := &fakeReporter{err: errors.New("log channel down")}
	r := NewRegistry(WithClock(func() time.Time { return now }), WithReporter(rep))
	var slept []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	var calls []string
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, kst)
	cmd := cronCommand(t, "급식", []CronJob{
		{Cron: "0 0 * * *", Comment: "자정", After: 10 * time.Second},
		{Cron: "40 11 * * *", Comment: "점심", Before: time.Minute, StartDate: start},
	}, &calls)

	// Registered before the scheduler exists: bound on attach.
	if err := r.Register(cmd); err != nil {
		t.Fatalf("Register: %v", err)
	}
	s := newFakeScheduler()
	if err := r.AttachScheduler(s); err != nil {
		t.Fatalf("AttachScheduler: %v", err)
	}
	if len(s.jobs) != 2 || s.spec["급식#1"] != "40 11 * * *" {
		t.Fatalf("jobs=%v", s.spec)
	}
	if got := s.opts["급식#1"]; got.Before != time.Minute || !got.StartDate.Equal(start) {
		t.Fatalf("opts=%+v", got)
	}

	if err := s.fire(t, "급식#0"); err != nil {
		t.Fatalf("fire: %v", err)
	}
	if err := s.fire(t, "급식#1"); err == nil {
		t.Fatalf("callback error must reach the scheduler")
	}
	if !reflect.DeepEqual(calls, []string{"0@11:40", "1@11:40"}) {
		t.Fatalf("calls=%v", calls)
	}
	if !reflect.DeepEqual(slept, []time.Duration{10 * time.Second, 0}) {
		t.Fatalf("slept=%v", slept)
	}
	if len(rep.reports) != 2 || rep.reports[1].Err == nil || rep.reports[0].Index != 0 {
		t.Fatalf("reports=%+v", rep.reports)
	}
	text := rep.reports[0].Text()
	for _, want := range []string{"Cronjob of StructuredCommand(⏰ 급식)", `"idx":0`, "시간: 2024-03-13 11:40:00"} {
		if !strings.Contains(text, want) {
			t.Fatalf("report text %q missing %q", text, want)
		}
	}

	// Registered after attach: bound immediately.
	var calls2 []string
	if err := r.Register(cronCommand(t, "일정", []CronJob{{Cron: "0 0 * * 1"}}, &calls2)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, ok := s.jobs["일정#0"]; !ok {
		t.Fatalf("late command not bound")
	}
}

func TestRegistryCronBindFailure(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	s := newFakeScheduler()
	s.fail = "bad"
	if err := r.AttachScheduler(s); err != nil {
		t.Fatalf("AttachScheduler: %v", err)
	}
	var calls []string
	err := r.Register(cronCommand(t, "x", []CronJob{{Cron: "0 0 * * *"}, {Cron: "bad"}}, &calls))
	if err == nil {
		t.Fatalf("expected bind error")
	}
	if r.Len() != 0 || len(s.jobs) != 0 {
		t.Fatalf("failed registration must not leave state behind: len=%d jobs=%v", r.Len(), s.jobs)
	}
}

func TestCronJobConflict(t *testing.T) {
	t.Parallel()

	_, err := NewStructured(StructuredOptions{
		Info: Info{
			Name: "x", Icon: "x", Description: "x", Execute: noop,
			CronJobs: []CronJob{{Cron: "0 0 * * *", Before: time.Second, After: time.Second}},
			Cron:     func(context.Context, int, time.Time) error { return nil },
		},
		Usage: "x",
	})
	if !errors.Is(err, ErrCronConflict) {
		t.Fatalf("err=%v", err)
	}

	_, err = NewStructured(StructuredOptions{
		Info:  Info{Name: "x", Icon: "x", Description: "x", Execute: noop, CronJobs: []CronJob{{Cron: "0 0 * * *"}}},
		Usage: "x",
	})
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("cron jobs without callback: err=%v", err)
	}
}

func TestCommandCallbacks(t *testing.T) {
	t.Parallel()

	var got []string
	c, err := NewStructured(StructuredOptions{
		Info: Info{
			Name: "공지", Icon: "📢", Description: "d",
			Execute: func(_ context.Context, req *Request) error {
				got = append(got, "exec:"+req.Text)
				return nil
			},
			Lazy: func(_ context.Context, req, prev *Request) error {
				got = append(got, "lazy:"+req.Text+"<"+prev.Text)
				return nil
			},
		},
		Usage: "공지",
	})
	if err != nil {
		t.Fatalf("NewStructured: %v", err)
	}
	if !c.IsLazy() {
		t.Fatalf("command with a lazy callback must be lazy")
	}
	ctx := context.Background()
	first := &Request{Text: "공지"}
	_ = c.Execute(ctx, first)
	_ = c.ExecuteLazy(ctx, &Request{Text: "내용"}, first)
	if !reflect.DeepEqual(got, []string{"exec:공지", "lazy:내용<공지"}) {
		t.Fatalf("got=%v", got)
	}
	if err := c.ExecuteCron(ctx, 0, time.Now()); !errors.Is(err, ErrNoCron) {
		t.Fatalf("err=%v", err)
	}

	plain := structured(t, "p", "p")
	if plain.IsLazy() {
		t.Fatalf("plain command must not be lazy")
	}
	if err := plain.ExecuteLazy(ctx, first, first); !errors.Is(err, ErrNotLazy) {
		t.Fatalf("err=%v", err)
	}
}
