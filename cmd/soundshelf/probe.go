package main

import (
	"fmt"

	"soundshelf/internal/config"
	"soundshelf/internal/logging"
	"soundshelf/internal/metadata"

	"github.com/spf13/cobra"
)

var probeVerbose bool

var probeCmd = &cobra.Command{
	Use:   "probe <file>",
	Short: "Print the duration and tags the server would read from an audio file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.Discard()
		if probeVerbose {
			var err error
			logger, err = logging.New(config.LoggingConfig{Level: "debug", Format: "text"})
			if err != nil {
				return err
			}
		}

		p := metadata.NewExtractor(logger).Probe(args[0])
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "file:     %s\n", args[0])
		fmt.Fprintf(out, "duration: %ds\n", p.DurationSeconds)
		fmt.Fprintf(out, "frames:   %d\n", p.Frames)
		if p.Format != "" {
			fmt.Fprintf(out, "tags:     %s\n", p.Format)
		}
		if p.Title != "" {
			fmt.Fprintf(out, "title:    %s\n", p.Title)
		}
		if p.Artist != "" {
			fmt.Fprintf(out, "artist:   %s\n", p.Artist)
		}
		if p.DurationSeconds == 0 {
			return fmt.Errorf("unable to determine audio duration for %s", args[0])
		}
		return nil
	},
}

func init() {
	probeCmd.Flags().BoolVarP(&probeVerbose, "verbose", "v", false, "log decoding details")
	rootCmd.AddCommand(probeCmd)
}
