// Package watchcmder
package watchcmder

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docmem/pkg/config"
	"github.com/papercomputeco/docmem/pkg/ingest"
	"github.com/papercomputeco/docmem/pkg/pipeline"
	"github.com/papercomputeco/docmem/pkg/watch"
)

const watchLongDesc string = `Watch a directory and queue files for assimilation.

Every file created or written in the directory is queued once it has not
changed for the settle period. Subdirectories and hidden files are ignored.

Examples:
  docmem watch docmem.toml ./inbox
  docmem watch docmem.toml ./inbox --existing --settle 2s`

const watchShortDesc string = "Queue files as they appear in a directory"

type watchCommander struct {
	debug    bool
	existing bool
	settle   time.Duration
}

var watchFlags = []string{
	config.FlagQueue,
	config.FlagLogFormat,
	config.FlagLogFile,
}

func NewWatchCmd() *cobra.Command {
	cmder := &watchCommander{}

	cmd := &cobra.Command{
		Use:   "watch <config> <dir>",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return err
			}
			return cmder.run(cmd, args[0], args[1])
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagQueue)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogFormat)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogFile)
	cmd.Flags().BoolVar(&cmder.existing, "existing", false, "Also queue files already in the directory")
	cmd.Flags().DurationVar(&cmder.settle, "settle", 500*time.Millisecond, "Quiet period before a changed file is queued")

	return cmd
}

func (c *watchCommander) run(cmd *cobra.Command, path, dir string) error {
	cfg, err := config.LoadForCommand(cmd, path, watchFlags)
	if err != nil {
		return err
	}

	logger, logCloser, err := pipeline.NewLogger(cfg.Logger, c.debug, os.Stderr)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue := cfg.Broker.AssimilateQueue
	b := pipeline.NewBroker(cfg.Broker, "docmem-watch", logger)
	defer b.Close()

	producer, err := b.RequestsProducer(ctx, queue)
	if err != nil {
		return err
	}
	defer producer.Close()
	enqueuer := ingest.NewEnqueuer(producer, queue, logger)

	w, err := watch.New(watch.Config{
		Dir:      dir,
		Settle:   c.settle,
		Existing: c.existing,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	logger.Info("watching directory", "dir", dir, "queue", queue)

	var fatal error
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	err = w.Run(ctx, func(ctx context.Context, file string) {
		req, err := enqueuer.Enqueue(ctx, file)
		if err == nil {
			logger.Info("queued file", "file_path", req.FilePath)
			return
		}

		switch ingest.Classify(err) {
		case ingest.KindTopology, ingest.KindConnection:
			fatal = err
			cancel()
		default:
			logger.Warn("could not queue file", "file", file, "error", err)
		}
	})
	if fatal != nil {
		return fatal
	}
	return err
}
