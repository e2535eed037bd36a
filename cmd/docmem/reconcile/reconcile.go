// Package reconcilecmder
package reconcilecmder

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docmem/pkg/cliui"
	"github.com/papercomputeco/docmem/pkg/config"
	"github.com/papercomputeco/docmem/pkg/eventstream"
	"github.com/papercomputeco/docmem/pkg/ingest"
	"github.com/papercomputeco/docmem/pkg/pipeline"
)

const reconcileLongDesc string = `Publish memories that were stored but never published.

A chunk is recorded in the delivery ledger once it is in the vector store and
again once its memory event is confirmed. Reconcile publishes the events of
every chunk still waiting for the second step, oldest first.

Examples:
  docmem reconcile docmem.toml
  docmem reconcile docmem.toml --limit 100`

const reconcileShortDesc string = "Publish stored but unpublished memories"

type reconcileCommander struct {
	debug bool
	limit int
}

var reconcileFlags = []string{
	config.FlagLedger,
	config.FlagLedgerTarget,
	config.FlagLogFormat,
}

func NewReconcileCmd() *cobra.Command {
	cmder := &reconcileCommander{}

	cmd := &cobra.Command{
		Use:   "reconcile <config>",
		Short: reconcileShortDesc,
		Long:  reconcileLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return err
			}
			return cmder.run(cmd, args[0])
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagLedger)
	config.AddStringFlag(cmd, config.Flags, config.FlagLedgerTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogFormat)
	cmd.Flags().IntVar(&cmder.limit, "limit", 0, "Maximum records to publish (0 publishes all)")

	return cmd
}

func (c *reconcileCommander) run(cmd *cobra.Command, path string) error {
	cfg, err := config.LoadForCommand(cmd, path, reconcileFlags)
	if err != nil {
		return err
	}
	if cfg.Ledger.Provider == "inmemory" {
		return fmt.Errorf("reconcile needs a durable ledger, got provider %q", cfg.Ledger.Provider)
	}

	logger, logCloser, err := pipeline.NewLogger(cfg.Logger, c.debug, os.Stderr)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx := cmd.Context()

	ledger, err := pipeline.NewLedger(ctx, cfg.Ledger, logger)
	if err != nil {
		return err
	}
	defer ledger.Close()

	b := pipeline.NewBroker(cfg.Broker, "docmem-reconcile", logger)
	defer b.Close()

	producer, err := b.MemoriesProducer(ctx)
	if err != nil {
		return err
	}
	publisher := eventstream.NewBrokerPublisher(producer, logger)
	defer publisher.Close()

	_, publishRetry := pipeline.RetryPolicies(cfg.Ingest)
	reconciler, err := ingest.NewReconciler(ingest.ReconcilerConfig{
		Ledger:     ledger,
		Publisher:  publisher,
		RoutingKey: cfg.Broker.MemoriesRoutingKey,
		Retry:      publishRetry,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	var published int
	err = cliui.Step(cmd.OutOrStdout(), "publishing pending memories", func() error {
		var err error
		published, err = reconciler.Reconcile(ctx, c.limit)
		return err
	})
	fmt.Fprintf(cmd.OutOrStdout(), "published %d memories\n", published)
	return err
}
