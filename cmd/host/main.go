package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ashpect/mxembed/pkg/config"
	"github.com/ashpect/mxembed/pkg/host"
	"github.com/ashpect/mxembed/pkg/utils"
)

var (
	configFile string
	listenAddr string
	logLevel   string
	pretty     bool
)

var rootCmd = &cobra.Command{
	Use:           "mxhost",
	Short:         "Demo host app that embeds Metabase through mxproxy with JWT SSO",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", config.DefaultConfigFile, "config file (toml or yaml)")
	rootCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address, overrides host.listenAddr")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level, overrides log.level")
	rootCmd.Flags().BoolVar(&pretty, "pretty", false, "human readable logs")
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(configFile, cmd.Flags().Changed("config"))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if listenAddr != "" {
		cfg.Host.ListenAddr = listenAddr
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger, err := utils.NewLogger(cfg.Log.Level, cfg.Log.Pretty || pretty)
	if err != nil {
		return err
	}

	handler, err := host.NewHandler(cfg, logger)
	if err != nil {
		return err
	}

	logger.Info().
		Str("listen", cfg.Host.ListenAddr).
		Str("proxy", cfg.Host.ProxyURL).
		Msg("host app starting")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return utils.Serve(ctx, logger, utils.NewServer(cfg.Host.ListenAddr, handler, logger))
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
