package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/gravitrone/msjbox/cli/internal/box"
)

// UploadCmd returns the `msjbox upload` command.
func UploadCmd() *cobra.Command {
	var boxFlag, name string
	cmd := &cobra.Command{
		Use:   "upload <path>...",
		Short: "Upload files to the selected box",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name != "" && len(args) > 1 {
				return fmt.Errorf("--name only applies to a single file")
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			id, err := s.boxID(nonEmpty(boxFlag))
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			c, err := s.mount(ctx, id)
			if err != nil {
				return err
			}
			defer c.Unmount()

			for _, path := range args {
				info, err := os.Stat(path)
				if err != nil {
					return fmt.Errorf("upload %s: %w", path, err)
				}
				if info.IsDir() {
					return fmt.Errorf("upload %s: is a directory", path)
				}
				fileName := name
				if fileName == "" {
					fileName = filepath.Base(path)
				}
				if err := c.Upload(ctx, path, "", fileName); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "uploaded %s\n", box.NormalizeUploadName(fileName))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&boxFlag, "box", "", "box id (defaults to the selected box)")
	cmd.Flags().StringVar(&name, "name", "", "file name to store (defaults to the local name)")
	return cmd
}

// GetCmd returns the `msjbox get` command.
func GetCmd() *cobra.Command {
	var boxFlag string
	var open, quiet bool
	cmd := &cobra.Command{
		Use:   "get <file-id>",
		Short: "Download a file from the selected box",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			id, err := s.boxID(nonEmpty(boxFlag))
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			c, err := s.mount(ctx, id)
			if err != nil {
				return err
			}
			defer c.Unmount()

			f, ok := c.File(args[0])
			if !ok {
				return fmt.Errorf("file %s not found in box %s", args[0], id)
			}

			var opts []box.DownloadOption
			if !quiet {
				opts = append(opts, box.WithProgress(func(total int64) io.Writer {
					return newProgressBar(cmd.ErrOrStderr(), total, f.Title)
				}))
			}

			if open {
				if err := c.OpenFile(ctx, f, opts...); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "opened %s\n", box.LocalPath(s.cfg.DownloadPath(), f.Title))
				return nil
			}
			path, err := c.Download(ctx, f, opts...)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "saved %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&boxFlag, "box", "", "box id (defaults to the selected box)")
	cmd.Flags().BoolVar(&open, "open", false, "open the file with the default application")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress bar")
	return cmd
}

func newProgressBar(w io.Writer, total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSpinnerType(14),
	)
}

func nonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
