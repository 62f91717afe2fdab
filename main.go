package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"fingerprinter/internal/database"
	"fingerprinter/internal/logging"
	"fingerprinter/internal/media"
	"fingerprinter/internal/startup"
)

// cli carries the state shared by the subcommands of one invocation.
type cli struct {
	v       *viper.Viper
	cfgFile string
	verbose int
}

func main() {
	code := 0
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		code = 1
	}
	media.ShutdownVips()
	os.Exit(code)
}

func newRootCmd() *cobra.Command {
	c := &cli{v: startup.NewViper()}

	root := &cobra.Command{
		Use:           "fingerprinter",
		Short:         "Incremental file fingerprinting into a SQLite store",
		Version:       startup.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.initConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default: ./fingerprinter.yaml)")
	flags.String("database", startup.DefaultDatabase, "SQLite database path")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.CountVarP(&c.verbose, "verbose", "v", "increase verbosity (-v info, -vv debug)")
	c.bind(flags, map[string]string{
		startup.KeyDatabase: "database",
		startup.KeyLogLevel: "log-level",
	})

	root.AddCommand(
		c.newRunCmd(),
		c.newAlgorithmsCmd(),
		c.newDropDBCmd(),
		c.newServeCmd(),
		c.newExportCmd(),
	)
	return root
}

func (c *cli) initConfig() error {
	if err := startup.ReadConfigFile(c.v, c.cfgFile); err != nil {
		return err
	}
	switch {
	case c.verbose >= 2:
		c.v.Set(startup.KeyLogLevel, "debug")
	case c.verbose == 1:
		c.v.Set(startup.KeyLogLevel, "info")
	}
	if name := c.v.GetString(startup.KeyLogLevel); name != "" {
		if level, ok := logging.ParseLevel(name); ok {
			logging.SetLevel(level)
		}
	}
	return nil
}

// bind maps config keys to flag names.
func (c *cli) bind(flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := c.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func (c *cli) loadConfig() (*startup.Config, error) {
	config, err := startup.LoadConfig(c.v)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return config, nil
}

func openDatabase(ctx context.Context, path string) (*database.Database, error) {
	dbStart := time.Now()
	db, err := database.New(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))
	return db, nil
}

func closeDatabase(db *database.Database) {
	if err := db.Close(); err != nil {
		logging.Warn("Failed to close database: %v", err)
	}
}
