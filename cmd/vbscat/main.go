// Command vbscat exercises the vbs library from the command line: open a
// recording spread across one or more mountpoints, then cat or seek
// within it.
//
// Logging:
//   - Base logger is created here with output format and level
//   - Logger is passed to Open via dependency injection
//   - No global slog configuration (no slog.SetDefault)
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"libvbs"
	"libvbs/internal/logging"
	"libvbs/internal/pathutil"
)

func main() {
	baseHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	filterHandler := logging.NewComponentFilterHandler(baseHandler, slog.LevelInfo)
	logger := slog.New(filterHandler)

	rootCmd := &cobra.Command{
		Use:   "vbscat",
		Short: "Read a scattered VLBI recording as one contiguous stream",
	}
	rootCmd.PersistentFlags().String("layout", "scattered", "on-disk layout: scattered or block-header")
	rootCmd.PersistentFlags().String("root", "", "directory whose disk<N> children are used as mountpoints, in place of listing them as arguments")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging for the discovery component")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			filterHandler.SetLevel("discovery", slog.LevelDebug)
		}
	}

	rootCmd.AddCommand(newCatCmd(logger), newStatCmd(logger))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func parseLayout(cmd *cobra.Command) (vbs.Layout, error) {
	raw, _ := cmd.Flags().GetString("layout")
	switch raw {
	case "scattered":
		return vbs.Scattered, nil
	case "block-header":
		return vbs.BlockHeader, nil
	default:
		return 0, fmt.Errorf("unknown layout %q", raw)
	}
}

// resolveMountpoints returns the mountpoints to scan: if --root is set,
// its disk<N> children (per pathutil.IsMountpoint, spec.md §4.1/§6.3),
// sorted for deterministic ordering; otherwise the positional arguments
// following the recording name, taken as given.
func resolveMountpoints(cmd *cobra.Command, explicit []string) ([]string, error) {
	root, _ := cmd.Flags().GetString("root")
	if root == "" {
		return explicit, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading --root %s: %w", root, err)
	}

	var mountpoints []string
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())
		if pathutil.IsMountpoint(path) {
			mountpoints = append(mountpoints, path)
		}
	}
	if len(mountpoints) == 0 {
		return nil, fmt.Errorf("no disk<N> mountpoints found under --root %s", root)
	}
	return mountpoints, nil
}

func newCatCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat <recording> [mountpoint...]",
		Short: "Write a recording's contents to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := parseLayout(cmd)
			if err != nil {
				return err
			}
			mountpoints, err := resolveMountpoints(cmd, args[1:])
			if err != nil {
				return err
			}
			return runCat(logger, args[0], mountpoints, layout)
		},
	}
	return cmd
}

func runCat(logger *slog.Logger, recording string, mountpoints []string, layout vbs.Layout) error {
	handle, err := vbs.Open(recording, mountpoints, layout, logger)
	if err != nil {
		return fmt.Errorf("open %s: %w", recording, err)
	}
	defer func() {
		if err := vbs.Close(handle); err != nil {
			logger.Error("close failed", "error", err)
		}
	}()

	buf := make([]byte, 64*1024)
	for {
		n, err := vbs.Read(handle, buf)
		if n > 0 {
			if _, werr := os.Stdout.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", recording, err)
		}
	}
}

func newStatCmd(logger *slog.Logger) *cobra.Command {
	var seek string

	cmd := &cobra.Command{
		Use:   "stat <recording> [mountpoint...]",
		Short: "Print a recording's size and chunk count",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := parseLayout(cmd)
			if err != nil {
				return err
			}
			mountpoints, err := resolveMountpoints(cmd, args[1:])
			if err != nil {
				return err
			}
			return runStat(logger, args[0], mountpoints, layout, seek)
		},
	}
	cmd.Flags().StringVar(&seek, "seek", "", "seek to this byte offset before reporting position")
	return cmd
}

func runStat(logger *slog.Logger, recording string, mountpoints []string, layout vbs.Layout, seek string) error {
	handle, err := vbs.Open(recording, mountpoints, layout, logger)
	if err != nil {
		return fmt.Errorf("open %s: %w", recording, err)
	}
	defer func() {
		if err := vbs.Close(handle); err != nil {
			logger.Error("close failed", "error", err)
		}
	}()

	if seek != "" {
		offset, err := strconv.ParseInt(seek, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid --seek value %q: %w", seek, err)
		}
		if _, err := vbs.Seek(handle, offset, io.SeekStart); err != nil {
			return fmt.Errorf("seek: %w", err)
		}
	}

	info, err := vbs.Stat(handle)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	fmt.Printf("size=%d position=%d chunks=%d\n", info.Size, info.Position, info.NumChunks)
	return nil
}
