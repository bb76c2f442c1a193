package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kiwix/kiwix-reader/internal/cli/model"
	"github.com/kiwix/kiwix-reader/internal/logging"
)

var (
	readMetricsAddr string
	readNoRestore   bool
)

var readCmd = &cobra.Command{
	Use:   "read [zim]",
	Short: "Open the interactive reader",
	Long: `Open the interactive reader.

With an archive path, that archive is opened: its saved tabs come back if it
was the last archive read, otherwise its main page opens. Without a path the
tabs of the previous session are restored.

Examples:
  kiwix-reader read                          # restore the last session
  kiwix-reader read ~/zim/wikipedia_en.zim   # open an archive
  kiwix-reader read --metrics-addr 127.0.0.1:9464 wiki.zim`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)

	readCmd.Flags().StringVar(&readMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides metrics.addr)")
	readCmd.Flags().BoolVar(&readNoRestore, "no-restore", false, "do not restore the previous session")
}

func runRead(_ *cobra.Command, args []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}

	ctx, stop := signal.NotifyContext(app.Ctx(), syscall.SIGTERM, syscall.SIGHUP)
	defer stop()
	log := logging.FromContext(ctx)

	addr := readMetricsAddr
	if addr == "" {
		addr = app.Config.Metrics.Addr
	}
	session, err := app.StartSession(addr)
	if err != nil {
		return fmt.Errorf("start reader: %w", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to persist tabs on exit")
		}
	}()

	ctrl := session.Controller
	switch {
	case len(args) == 1:
		path, absErr := filepath.Abs(args[0])
		if absErr != nil {
			path = args[0]
		}
		ctrl.OpenContentSource(ctx, path)
	case app.Config.Session.RestoreOnStartup && !readNoRestore:
		ctrl.Start(ctx)
	}

	m := model.NewReaderModel(ctx, app.Theme, ctrl)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && errors.Is(ctx.Err(), context.Canceled) {
			log.Info().Msg("received signal, quitting")
			return nil
		}
		return fmt.Errorf("run reader: %w", err)
	}
	return nil
}
