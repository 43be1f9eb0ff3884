package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/gravitrone/msjbox/cli/internal/api"
	"github.com/gravitrone/msjbox/cli/internal/box"
	"github.com/gravitrone/msjbox/cli/internal/cmd"
	"github.com/gravitrone/msjbox/cli/internal/config"
	"github.com/gravitrone/msjbox/cli/internal/logging"
	"github.com/gravitrone/msjbox/cli/internal/realtime"
	"github.com/gravitrone/msjbox/cli/internal/ui"
	"github.com/gravitrone/msjbox/cli/internal/viewer"
)

const userAgent = "msjbox-cli"

func main() {
	root := &cobra.Command{
		Use:   "msjbox",
		Short: "msjbox - shared file box",
		Long:  "msjbox: drop files into a shared box and open them on any device. Runs the live box screen when called without a subcommand.",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runTUI()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(cmd.UseCmd())
	root.AddCommand(cmd.NewCmd())
	root.AddCommand(cmd.LsCmd())
	root.AddCommand(cmd.UploadCmd())
	root.AddCommand(cmd.GetCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Force truecolor so hex colors render correctly
	// Must be set before any lipgloss style initialization
	os.Setenv("COLORTERM", "truecolor")
}

func runTUI() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	boxID, err := cfg.RequireBox()
	if err != nil {
		if errors.Is(err, config.ErrNoBox) {
			fmt.Println(err)
		}
		return err
	}

	// The screen owns stdout, so logs go to a file.
	log, closer, err := logging.NewFile(cfg.LogPath(), cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closer.Close()

	client := api.NewClient(cfg.APIBaseURL()).WithLogger(log)
	rt, err := realtime.NewClient(cfg.RealtimeEndpoint(),
		realtime.WithLogger(log),
		realtime.WithHeader(http.Header{"User-Agent": []string{userAgent}}),
	)
	if err != nil {
		return fmt.Errorf("realtime endpoint: %w", err)
	}
	log.Info().Str("box_id", boxID).Str("api", client.BaseURL()).Str("realtime", rt.Endpoint()).Msg("starting")

	ctrl := box.New(boxID, box.Deps{
		API:         client,
		Realtime:    box.Realtime(rt),
		Viewer:      viewer.New(),
		DownloadDir: cfg.DownloadPath(),
		Log:         log,
	})
	defer ctrl.Unmount()

	p := tea.NewProgram(ui.NewApp(ctrl), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}
