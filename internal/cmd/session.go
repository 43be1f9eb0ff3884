// Package cmd holds the msjbox subcommands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/gravitrone/msjbox/cli/internal/api"
	"github.com/gravitrone/msjbox/cli/internal/box"
	"github.com/gravitrone/msjbox/cli/internal/config"
	"github.com/gravitrone/msjbox/cli/internal/logging"
	"github.com/gravitrone/msjbox/cli/internal/viewer"
)

const commandTimeout = 2 * time.Minute

// session is what every subcommand needs: merged config, a logger on stderr
// and a REST client.
type session struct {
	cfg    *config.Config
	log    *logging.Logger
	client *api.Client
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logging.New(cmd.ErrOrStderr(), cfg.LogLevel).With("cli")
	client := api.NewClient(cfg.APIBaseURL()).WithLogger(log)
	return &session{cfg: cfg, log: log, client: client}, nil
}

// boxID returns the explicit argument if given, else the selected box.
func (s *session) boxID(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	return s.cfg.RequireBox()
}

// mount builds a controller without live updates and loads the box.
func (s *session) mount(ctx context.Context, boxID string) (*box.Controller, error) {
	c := box.New(boxID, box.Deps{
		API:         s.client,
		Viewer:      viewer.New(),
		DownloadDir: s.cfg.DownloadPath(),
		Log:         s.log,
	})
	if err := c.Mount(ctx); err != nil {
		c.Unmount()
		return nil, err
	}
	return c, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, commandTimeout)
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
