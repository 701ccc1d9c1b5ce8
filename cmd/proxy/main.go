package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ashpect/mxembed/pkg/config"
	"github.com/ashpect/mxembed/pkg/proxy"
	"github.com/ashpect/mxembed/pkg/utils"
)

var (
	configFile string
	listenAddr string
	logLevel   string
	pretty     bool
)

var rootCmd = &cobra.Command{
	Use:           "mxproxy",
	Short:         "Reverse proxy that embeds the MinusX extension into Metabase",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", config.DefaultConfigFile, "config file (toml or yaml)")
	rootCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address, overrides proxy.listenAddr")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level, overrides log.level")
	rootCmd.Flags().BoolVar(&pretty, "pretty", false, "human readable logs")
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(configFile, cmd.Flags().Changed("config"))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if listenAddr != "" {
		cfg.Proxy.ListenAddr = listenAddr
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger, err := utils.NewLogger(cfg.Log.Level, cfg.Log.Pretty || pretty)
	if err != nil {
		return err
	}

	handler, err := proxy.NewHandler(cfg, logger)
	if err != nil {
		return err
	}
	defer handler.Close()
	servers := []*http.Server{utils.NewServer(cfg.Proxy.ListenAddr, handler, logger)}

	if cfg.Proxy.MetricsAddr != "" {
		metrics := http.NewServeMux()
		metrics.Handle("/metrics", promhttp.Handler())
		servers = append(servers, utils.NewServer(cfg.Proxy.MetricsAddr, metrics, logger))
	}

	logger.Info().
		Str("listen", cfg.Proxy.ListenAddr).
		Str("upstream", cfg.Proxy.UpstreamURL).
		Msg("reverse proxy starting")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return utils.Serve(ctx, logger, servers...)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
