package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/swgoh/prereqbot/pkg/bus"
	"github.com/swgoh/prereqbot/pkg/channels/discord"
	"github.com/swgoh/prereqbot/pkg/commands"
	"github.com/swgoh/prereqbot/pkg/config"
	"github.com/swgoh/prereqbot/pkg/dispatch"
	"github.com/swgoh/prereqbot/pkg/infrastructure/persistence"
	"github.com/swgoh/prereqbot/pkg/logger"
)

const busSize = 64

var (
	configPath string
	logLevel   string
	logFormat  string
	watch      bool
	limit      int
)

var rootCmd = &cobra.Command{
	Use:           "prereqbot",
	Short:         "Discord bot answering character prerequisite questions",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Init(logLevel, logFormat); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Discord and serve commands until interrupted",
	RunE:  runBot,
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate the configuration file and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkConfig(cmd.OutOrStdout(), configPath)
	},
}

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "Show recent command failures from the audit database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showFailures(cmd.Context(), cmd.OutOrStdout(), configPath, limit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "console or json")
	runCmd.Flags().BoolVar(&watch, "watch", false, "reload the configuration when the file changes")
	failuresCmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of failures to list")

	rootCmd.AddCommand(runCmd, checkConfigCmd, failuresCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	store := config.NewStore(configPath)
	cfg, err := store.Load()
	if err != nil {
		return err
	}

	var opts []dispatch.Option
	if cfg.AuditDB != "" {
		audit, err := persistence.OpenFailureLog(cfg.AuditDB)
		if err != nil {
			return err
		}
		defer audit.Close()
		opts = append(opts, dispatch.WithAudit(audit))
	}

	events := bus.New(busSize)
	registry := commands.NewRegistry()
	gw, err := discord.New(cfg.Token, events, store, registry)
	if err != nil {
		return err
	}
	registry.MustRegister(commands.Builtins(registry, store, gw.Permissions, discordgo.PermissionManageGuild)...)

	d := dispatch.New(store, gw, opts...)
	if err := d.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.Run(ctx, events) })
	if watch {
		g.Go(func() error { return store.Watch(ctx) })
	}
	g.Go(func() error {
		if err := gw.Open(); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	})

	err = g.Wait()
	logger.InfoC("main", "Shutting down")
	if cerr := gw.Close(); cerr != nil {
		logger.WarnCF("main", "Failed to close gateway", map[string]interface{}{"error": cerr})
	}
	events.Close()
	d.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func checkConfig(w io.Writer, path string) error {
	cfg, err := config.Read(path)
	if err != nil {
		return err
	}
	audit := "disabled"
	if cfg.AuditDB != "" {
		audit = cfg.AuditDB
	}
	fmt.Fprintf(w, "%s: ok (prefix %q, audit %s)\n", path, cfg.Prefix, audit)
	return nil
}

func showFailures(ctx context.Context, w io.Writer, path string, n int) error {
	cfg, err := config.Read(path)
	if err != nil {
		return err
	}
	if cfg.AuditDB == "" {
		return fmt.Errorf("%s has no audit_db configured", path)
	}
	audit, err := persistence.OpenFailureLog(cfg.AuditDB)
	if err != nil {
		return err
	}
	defer audit.Close()

	counts, err := audit.CountByCategory(ctx)
	if err != nil {
		return err
	}
	categories := make([]string, 0, len(counts))
	for c := range counts {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		fmt.Fprintf(w, "%-20s %d\n", c, counts[c])
	}

	recent, err := audit.Recent(ctx, n)
	if err != nil {
		return err
	}
	if len(recent) > 0 {
		fmt.Fprintln(w)
	}
	for _, r := range recent {
		command := r.Command
		if command == "" {
			command = "unknown"
		}
		fmt.Fprintf(w, "%s  %-12s %-10s %s: %s [%s]\n",
			r.OccurredAt.Format("2006-01-02 15:04:05"), r.UserName, command, r.Category, r.Message,
			strings.Join(r.Hints, ", "))
	}
	return nil
}
