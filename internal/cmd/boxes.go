package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/gravitrone/msjbox/cli/internal/api"
	"github.com/gravitrone/msjbox/cli/internal/box"
	"github.com/gravitrone/msjbox/cli/internal/config"
)

// UseCmd returns the `msjbox use` command.
func UseCmd() *cobra.Command {
	var noVerify bool
	cmd := &cobra.Command{
		Use:   "use <box-id>",
		Short: "Select the box other commands work on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return fmt.Errorf("box id is required")
			}

			title := ""
			if !noVerify {
				s, err := newSession(cmd)
				if err != nil {
					return err
				}
				ctx, cancel := commandContext(cmd)
				defer cancel()
				b, err := s.client.GetBox(ctx, id)
				if err != nil {
					return fmt.Errorf("find box: %w", err)
				}
				title = b.Title
			}

			if err := selectBox(id); err != nil {
				return err
			}
			if title != "" {
				printf(cmd.OutOrStdout(), "using box %s (%s)\n", id, title)
			} else {
				printf(cmd.OutOrStdout(), "using box %s\n", id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "skip checking that the box exists")
	return cmd
}

// NewCmd returns the `msjbox new` command.
func NewCmd() *cobra.Command {
	var use bool
	cmd := &cobra.Command{
		Use:   "new <title>",
		Short: "Create a new box",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			b, err := s.client.CreateBox(ctx, api.CreateBoxInput{Title: strings.Join(args, " ")})
			if err != nil {
				return fmt.Errorf("create box: %w", err)
			}
			printf(cmd.OutOrStdout(), "created box %s (%s)\n", b.ID, b.Title)

			if use {
				if err := selectBox(b.ID); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "using box %s\n", b.ID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&use, "use", true, "select the new box")
	return cmd
}

// LsCmd returns the `msjbox ls` command.
func LsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [box-id]",
		Short: "List files in a box",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			id, err := s.boxID(args)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			b, err := s.client.GetBox(ctx, id)
			if err != nil {
				return fmt.Errorf("list box: %w", err)
			}

			out := cmd.OutOrStdout()
			printf(out, "%s  %s\n", b.Title, english.Plural(len(b.Files), "file", "files"))
			if len(b.Files) == 0 {
				printf(out, "  no files yet\n")
				return nil
			}
			for _, f := range b.Files {
				added := "-"
				if !f.CreatedAt.IsZero() {
					added = humanize.Time(f.CreatedAt)
				}
				printf(out, "  %s  %-20s  %s\n", f.ID, box.DisplayName(f.Title), added)
			}
			return nil
		},
	}
}

// selectBox persists the box choice without writing env overrides back.
func selectBox(id string) error {
	cfg, err := config.LoadFile()
	if err != nil {
		return err
	}
	cfg.BoxID = id
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}
