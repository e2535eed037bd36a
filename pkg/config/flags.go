package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands and descriptions inline, so the same logical flag cannot drift
// between "docmem", "docmem enqueue" and "docmem watch".
type Flag struct {
	// Name is the long flag name (e.g. "workers").
	Name string

	// Shorthand is the one-letter short flag (e.g. "w"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "ingest.workers").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagWorkers      = "workers"
	FlagStatusListen = "status-listen"
	FlagLogFormat    = "log-format"
	FlagLogFile      = "log-file"
	FlagQueue        = "queue"
	FlagLedger       = "ledger"
	FlagLedgerTarget = "ledger-target"
)

// Flags is the registry shared by all docmem commands.
var Flags = FlagSet{
	FlagWorkers: {
		Name:        "workers",
		Shorthand:   "w",
		ViperKey:    "ingest.workers",
		Description: "Number of concurrent consumer workers",
	},
	FlagStatusListen: {
		Name:        "status-listen",
		ViperKey:    "status.listen",
		Description: "Address for the status server (empty disables it)",
	},
	FlagLogFormat: {
		Name:        "log-format",
		ViperKey:    "logger.format",
		Description: "Log format: auto, pretty, json or text",
	},
	FlagLogFile: {
		Name:        "log-file",
		ViperKey:    "logger.file",
		Description: "Also write JSON logs to this file",
	},
	FlagQueue: {
		Name:        "queue",
		Shorthand:   "q",
		ViperKey:    "broker.assimilate_queue",
		Description: "Assimilation queue (kafka topic) to send requests to",
	},
	FlagLedger: {
		Name:        "ledger",
		ViperKey:    "ledger.provider",
		Description: "Delivery ledger provider: inmemory, sqlite, libsql, postgres or badger",
	},
	FlagLedgerTarget: {
		Name:        "ledger-target",
		ViperKey:    "ledger.target",
		Description: "Delivery ledger path or connection string",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// Defaults are left empty: unchanged flags never override the config file.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	if def.Shorthand != "" {
		cmd.Flags().StringP(def.Name, def.Shorthand, "", def.Description)
	} else {
		cmd.Flags().String(def.Name, "", def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, key string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	if def.Shorthand != "" {
		cmd.Flags().IntP(def.Name, def.Shorthand, 0, def.Description)
	} else {
		cmd.Flags().Int(def.Name, 0, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// LoadForCommand loads the config file at path with environment overrides
// and the given registered flags of cmd bound on top.
func LoadForCommand(cmd *cobra.Command, path string, registryKeys []string) (*Config, error) {
	v := InitViper()
	BindRegisteredFlags(v, cmd, Flags, registryKeys)
	return Load(path, v)
}
