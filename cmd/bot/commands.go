package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshwoo0/gsa-bot/internal/app"
	"github.com/joshwoo0/gsa-bot/internal/bot"
	"github.com/joshwoo0/gsa-bot/internal/config"
	"github.com/joshwoo0/gsa-bot/internal/eventbus"
	"github.com/joshwoo0/gsa-bot/internal/transport"
	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

type rootFlags struct {
	configPath string
	envFiles   []string
}

func buildRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:           "gsa-bot",
		Short:         "School chat bot (meals, calendar, notices)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return config.LoadDotEnv(f.envFiles...)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context(), f.configPath)
		},
	}
	root.PersistentFlags().StringVarP(&f.configPath, "config", "c", "./config.json",
		"Path to the config file (.json, .yaml or .toml)")
	root.PersistentFlags().StringSliceVar(&f.envFiles, "env-file", nil,
		"dotenv files loaded before the config (default .env)")

	root.AddCommand(buildRunCmd(f), buildCheckCmd(f), buildMatchCmd(f))
	return root
}

// =============================================================================
// Run Command
// =============================================================================

func buildRunCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to the chat platform and serve commands",
		Long: `Connect to the configured chat platform and serve commands until
SIGINT/SIGTERM. Config file edits are applied live where possible.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context(), f.configPath)
		},
	}
}

func runBot(ctx context.Context, cfgPath string) error {
	a, err := app.New(cfgPath)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = a.Stop(stopCtx, app.StopFatalError)
		return err
	}

	reason := app.StopSignal
	select {
	case <-ctx.Done():
	case <-a.Done():
		reason = app.StopFatalError
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := a.Stop(stopCtx, reason); err != nil {
		return err
	}
	if err := a.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// =============================================================================
// Check Command
// =============================================================================

func buildCheckCmd(f *rootFlags) *cobra.Command {
	var (
		manuals bool
		runs    int
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the config and list commands and upcoming cron runs",
		Example: `  gsa-bot check --config config.yaml
  gsa-bot check --manuals --runs 5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			core, err := offlineCore(cmd.Context(), f.configPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer core.Close()
			return printCheck(cmd.OutOrStdout(), core, manuals, runs)
		},
	}
	cmd.Flags().BoolVarP(&manuals, "manuals", "m", false, "Print each command's manual")
	cmd.Flags().IntVarP(&runs, "runs", "n", 3, "Upcoming runs shown per cron job")
	return cmd
}

func printCheck(w io.Writer, core *app.Core, manuals bool, runs int) error {
	fmt.Fprintf(w, "config ok (timezone %s, debug %v, storage %v)\n\n",
		core.Location, core.Mode.Debug(), core.Store != nil)
	now := time.Now().In(core.Location)
	for _, c := range core.Registry.Commands() {
		fmt.Fprintf(w, "%s %s [%s]", c.Icon(), c.Name(), c.Kind())
		if c.IsLazy() {
			fmt.Fprint(w, " lazy")
		}
		if chs := c.Channels(); len(chs) > 0 {
			names := make([]string, 0, len(chs))
			for _, ch := range chs {
				names = append(names, cmp.Or(ch.Name, ch.ID))
			}
			fmt.Fprintf(w, " channels=%s", strings.Join(names, ","))
		}
		fmt.Fprintln(w)
		for _, job := range c.CronJobs() {
			next, err := core.Sched.NextRuns(job.Cron, job.Options(), now, runs)
			if err != nil {
				return fmt.Errorf("%s: %w", c.Name(), err)
			}
			fmt.Fprintf(w, "    cron %q %s\n", job.Cron, job.Comment)
			for _, t := range next {
				fmt.Fprintf(w, "      %s\n", t.Add(job.After).Format("2006-01-02 15:04 Mon"))
			}
		}
		if manuals {
			fmt.Fprintln(w, indent(c.Manual(nil), "    "))
		}
	}
	return nil
}

func indent(s, pad string) string {
	return pad + strings.ReplaceAll(s, "\n", "\n"+pad)
}

// =============================================================================
// Match Command
// =============================================================================

func buildMatchCmd(f *rootFlags) *cobra.Command {
	var (
		channel string
		exec    bool
	)
	cmd := &cobra.Command{
		Use:   "match [flags] <text>",
		Short: "Show which command a message resolves to",
		Long: `Resolve a message against the registered commands without connecting
to the chat platform. With --exec the command runs and its replies are
printed instead of sent.`,
		Example: `  gsa-bot match "내일 점심 뭐야"
  gsa-bot match --exec --channel staff "교무부 알림 39"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			core, err := offlineCore(cmd.Context(), f.configPath, w)
			if err != nil {
				return err
			}
			defer core.Close()

			text := strings.Join(args, " ")
			m, ok := core.Registry.Resolve(text, channel, core.Mode.DebugChannels(), core.Mode.Debug())
			if !ok {
				fmt.Fprintln(w, "no match")
				return nil
			}
			fmt.Fprintf(w, "command: %s %s\n", m.Command.Icon(), m.Command.Name())
			keys := make([]string, 0, len(m.Args))
			for k := range m.Args {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(w, "  %s = %v\n", k, m.Args[k])
			}
			if m.Residual != "" {
				fmt.Fprintf(w, "residual: %q\n", m.Residual)
			}
			if !exec {
				return nil
			}
			d := bot.New(bot.Options{Registry: core.Registry, Sender: &printSender{w: w}, Mode: core.Mode})
			d.Handle(cmd.Context(), transport.Message{
				ID:          "cli",
				ChannelID:   channel,
				ChannelName: channel,
				SenderID:    "cli",
				SenderName:  "cli",
				Text:        text,
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "cli", "Channel id the message is posted in")
	cmd.Flags().BoolVar(&exec, "exec", false, "Execute the command and print its replies")
	return cmd
}

// offlineCore builds the command core with replies printed to w.
func offlineCore(ctx context.Context, cfgPath string, w io.Writer) (*app.Core, error) {
	cfg, err := config.NewManager(cfgPath).Load()
	if err != nil {
		return nil, err
	}
	log := logx.NewConsole("WARN")
	return app.BuildCore(ctx, cfg, &printSender{w: w}, eventbus.New(), log)
}

type printSender struct {
	mu sync.Mutex
	w  io.Writer
}

var _ transport.Sender = (*printSender)(nil)

func (s *printSender) SendText(_ context.Context, channelID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "→ [%s]\n%s\n", channelID, text)
	return err
}
