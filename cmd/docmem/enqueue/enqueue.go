// Package enqueuecmder
package enqueuecmder

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docmem/pkg/cliui"
	"github.com/papercomputeco/docmem/pkg/config"
	"github.com/papercomputeco/docmem/pkg/ingest"
	"github.com/papercomputeco/docmem/pkg/pipeline"
	"github.com/papercomputeco/docmem/pkg/utils"
)

const enqueueLongDesc string = `Queue files for assimilation.

Sends one assimilation request per file to the assimilation queue (or kafka
topic). Paths are made absolute, so the consumer must see the same
filesystem.

Examples:
  docmem enqueue docmem.toml report.pdf notes.md
  docmem enqueue docmem.toml --queue assimilate-urgent memo.txt`

const enqueueShortDesc string = "Queue files for assimilation"

type enqueueCommander struct {
	debug bool
}

var enqueueFlags = []string{
	config.FlagQueue,
	config.FlagLogFormat,
}

func NewEnqueueCmd() *cobra.Command {
	cmder := &enqueueCommander{}

	cmd := &cobra.Command{
		Use:   "enqueue <config> <file>...",
		Short: enqueueShortDesc,
		Long:  enqueueLongDesc,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return err
			}
			return cmder.run(cmd, args[0], args[1:])
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagQueue)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogFormat)

	return cmd
}

func (c *enqueueCommander) run(cmd *cobra.Command, path string, files []string) error {
	cfg, err := config.LoadForCommand(cmd, path, enqueueFlags)
	if err != nil {
		return err
	}

	logger, logCloser, err := pipeline.NewLogger(cfg.Logger, c.debug, os.Stderr)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx := cmd.Context()
	queue := cfg.Broker.AssimilateQueue

	b := pipeline.NewBroker(cfg.Broker, "docmem-enqueue", logger)
	defer b.Close()

	producer, err := b.RequestsProducer(ctx, queue)
	if err != nil {
		return err
	}
	defer producer.Close()

	enqueuer := ingest.NewEnqueuer(producer, queue, logger)
	out := cmd.OutOrStdout()

	var failed []error
	for _, file := range files {
		err := cliui.Step(out, "enqueue "+utils.Truncate(file, 60), func() error {
			_, err := enqueuer.Enqueue(ctx, file)
			return err
		})
		if err != nil {
			logger.Error("enqueue failed", "file", file, "error", err)
			failed = append(failed, err)
			if ingest.Classify(err) == ingest.KindTopology || ctx.Err() != nil {
				break
			}
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d files not queued: %w", len(failed), len(files), errors.Join(failed...))
	}
	fmt.Fprintf(out, "queued %d file(s) on %s\n", len(files), queue)
	return nil
}
