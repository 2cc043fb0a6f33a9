// Command qx evaluates and converts query expressions for list requests.
//
// Usage:
//
//	qx eval --format json '[Query.equal("status", "published"), Query.limit(10)]'
//	qx convert --format compact '[{"method":"limit","values":[25]}]'
//	qx validate --format json - < filters.json
//	qx methods --format compact geo
//	qx list --format compact limit=25 order=name:desc --where '[Query.isNotNull("email")]'
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stnguyen90/appwrite-explorer/internal/config"
	"github.com/stnguyen90/appwrite-explorer/internal/logger"
	"github.com/stnguyen90/appwrite-explorer/queryexpr"
	"github.com/stnguyen90/appwrite-explorer/queryexpr/cobraext"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		logJSON    bool
		logLevel   string
		engine     *queryexpr.Engine
		log        *zap.SugaredLogger
	)

	root := &cobra.Command{
		Use:          "qx",
		Short:        "Query expression engine for list requests",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-json") {
				cfg.Log.JSON = logJSON
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = logLevel
			}

			log, err = logger.New(logger.Options{
				JSON:   cfg.Log.JSON,
				Level:  cfg.Log.Level,
				Output: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			engine, err = cfg.Engine(log.With(logger.FieldComponent, "queryexpr"))
			if err != nil {
				return err
			}
			log.Debugw("Engine ready",
				logger.FieldFile, cfg.File,
				logger.FieldCount, len(engine.Catalog().Names()),
				logger.FieldPolicy, engine.UnknownPolicy().String())
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./qx.toml)")
	root.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")

	cobraext.AddCommands(root, func() *queryexpr.Engine { return engine })
	return root
}
