// Package docmemcmder
package docmemcmder

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	enqueuecmder "github.com/papercomputeco/docmem/cmd/docmem/enqueue"
	reconcilecmder "github.com/papercomputeco/docmem/cmd/docmem/reconcile"
	watchcmder "github.com/papercomputeco/docmem/cmd/docmem/watch"
	versioncmder "github.com/papercomputeco/docmem/cmd/version"
	"github.com/papercomputeco/docmem/pkg/config"
)

const docmemLongDesc string = `docmem turns documents into memories.

It consumes "assimilate file" requests, extracts and chunks each file, stores
every chunk in a vector store and publishes one memory event per chunk.

Usage:
  docmem <config>                     Consume assimilation requests
  docmem enqueue <config> <file>...   Queue files for assimilation
  docmem watch <config> <dir>         Queue files as they appear in a directory
  docmem reconcile <config>           Publish stored memories that were never published`

const docmemShortDesc string = "docmem - Document Memories"

// runFlags are the registry keys bound by the consumer.
var runFlags = []string{
	config.FlagWorkers,
	config.FlagStatusListen,
	config.FlagLogFormat,
	config.FlagLogFile,
	config.FlagLedger,
	config.FlagLedgerTarget,
}

func NewDocmemCmd() *cobra.Command {
	cmder := &runCommander{}

	cmd := &cobra.Command{
		Use:           "docmem <config>",
		Short:         docmemShortDesc,
		Long:          docmemLongDesc,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return err
			}

			path := ""
			if len(args) == 1 {
				path = args[0]
			}

			err = cmder.run(cmd.Context(), cmd, path)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")

	config.AddIntFlag(cmd, config.Flags, config.FlagWorkers)
	config.AddStringFlag(cmd, config.Flags, config.FlagStatusListen)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogFormat)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogFile)
	config.AddStringFlag(cmd, config.Flags, config.FlagLedger)
	config.AddStringFlag(cmd, config.Flags, config.FlagLedgerTarget)

	// Add subcommands
	cmd.AddCommand(enqueuecmder.NewEnqueueCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(reconcilecmder.NewReconcileCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
