// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/tempo/cmd/tempo/cli"
	"github.com/bureau-foundation/tempo/lib/hostinfo"
	"github.com/bureau-foundation/tempo/lib/samples"
)

func samplesCommand() *cli.Command {
	return &cli.Command{
		Name:    "samples",
		Summary: "Inspect sample archives written by bench",
		Subcommands: []*cli.Command{
			samplesShowCommand(),
		},
	}
}

type samplesShowParams struct {
	cli.JSONOutput
}

type samplesShowResult struct {
	Header      samples.Header    `json:"header"`
	Compression string            `json:"compression"`
	SizeBytes   int64             `json:"size_bytes"`
	Summaries   []samples.Summary `json:"summaries"`
}

func samplesShowCommand() *cli.Command {
	var params samplesShowParams

	return &cli.Command{
		Name:    "show",
		Summary: "Summarize a sample archive",
		Description: `Decode a sample archive and summarize each series against the wait
resolution that was calibrated when it was recorded.`,
		Usage:  "tempo samples show <path> [flags]",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one archive path, got %d arguments", len(args))
			}
			archive, compression, err := samples.ReadFile(args[0])
			if err != nil {
				return err
			}
			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			logger.Debug("archive decoded", "path", args[0], "compression", compression.String(), "series", len(archive.Series))

			result := samplesShowResult{
				Header:      archive.Header,
				Compression: compression.String(),
				SizeBytes:   info.Size(),
				Summaries:   samples.SummarizeAll(archive),
			}
			if done, err := params.EmitJSON(result); done {
				return err
			}

			output := cli.Stdout()
			output.Heading("Archive " + args[0])
			output.Field("run", archive.Header.ID)
			output.Field("recorded", fmt.Sprintf("%s (%s)", archive.Header.Created.Format(time.RFC3339), humanize.Time(archive.Header.Created)))
			output.Field("size", fmt.Sprintf("%s, %s", humanize.IBytes(uint64(info.Size())), compression))
			output.Field("clock", archive.Header.Calibration.Clock)
			output.Printf("\n")
			renderHost(output, archive.Header.Host, hostinfo.Fingerprint(archive.Header.Host).String())
			output.Printf("\n")
			renderSummaries(output, result.Summaries, archive.Header.Calibration.ResolutionMS)
			return nil
		},
	}
}
