// Package main provides the rgraph CLI: run graph queries against RedisGraph.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/orneryd/redisgraph/pkg/config"
	"github.com/orneryd/redisgraph/pkg/redisgraph"
)

var (
	version   = "0.1.0"
	commit    = "dev"
	buildTime = "unknown" // Set via ldflags: -X main.buildTime=$(date +%Y%m%d-%H%M%S)
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rgraph",
		Short: "rgraph - RedisGraph command line client",
		Long: `rgraph runs graph queries against a RedisGraph server, a pool of
connections to one, or a Redis cluster.

Configuration is read from redisgraph.yaml, then REDISGRAPH_* environment
variables, then flags.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (default: search standard locations)")
	rootCmd.PersistentFlags().String("host", "", "Server host")
	rootCmd.PersistentFlags().Int("port", 0, "Server port")
	rootCmd.PersistentFlags().String("password", "", "Server password")
	rootCmd.PersistentFlags().String("mode", "", "Topology: pool, single or cluster")
	rootCmd.PersistentFlags().StringSlice("cluster-addrs", nil, "Cluster seed nodes (host:port)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: DEBUG, INFO, WARN, ERROR")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rgraph v%s (%s) built %s\n", version, commit, buildTime)
		},
	})

	// Query commands
	for _, readOnly := range []bool{false, true} {
		readOnly := readOnly
		queryCmd := &cobra.Command{
			Use:   "query GRAPH QUERY",
			Short: "Run a query (GRAPH.QUERY)",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runQuery(cmd, args, readOnly)
			},
		}
		if readOnly {
			queryCmd.Use = "ro-query GRAPH QUERY"
			queryCmd.Short = "Run a read-only query (GRAPH.RO_QUERY)"
		}
		queryCmd.Flags().Duration("timeout", 0, "Server-side query timeout (0 = none)")
		queryCmd.Flags().StringArrayP("param", "p", nil, "Query parameter name=value (repeatable)")
		rootCmd.AddCommand(queryCmd)
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "delete GRAPH",
		Short: "Delete a graph (GRAPH.DELETE)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, client *redisgraph.Client) error {
				status, err := client.DeleteGraph(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), status)
				return nil
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "explain GRAPH QUERY",
		Short: "Show the execution plan of a query (GRAPH.EXPLAIN)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, client *redisgraph.Client) error {
				plan, err := client.Explain(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				for _, line := range plan {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				return nil
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List graphs (GRAPH.LIST)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, client *redisgraph.Client) error {
				graphs, err := client.ListGraphs(ctx)
				if err != nil {
					return err
				}
				for _, g := range graphs {
					fmt.Fprintln(cmd.OutOrStdout(), g)
				}
				return nil
			})
		},
	})

	return rootCmd
}

func runQuery(cmd *cobra.Command, args []string, readOnly bool) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	rawParams, _ := cmd.Flags().GetStringArray("param")
	params, err := parseParams(rawParams)
	if err != nil {
		return err
	}
	text, err := redisgraph.PrepareQuery(args[1], params)
	if err != nil {
		return err
	}

	return withClient(cmd, func(ctx context.Context, client *redisgraph.Client) error {
		start := time.Now()
		rs, err := client.Execute(ctx, redisgraph.Query{
			GraphID:  args[0],
			Text:     text,
			Timeout:  timeout,
			ReadOnly: readOnly,
		})
		if err != nil {
			return err
		}
		printResultSet(cmd.OutOrStdout(), rs, time.Since(start))
		return nil
	})
}

// loadConfig applies flags over file and environment configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.FindConfigFile()
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}

	if v, _ := cmd.Flags().GetString("host"); v != "" {
		cfg.Server.Host = v
	}
	if v, _ := cmd.Flags().GetInt("port"); v > 0 {
		cfg.Server.Port = v
	}
	if v, _ := cmd.Flags().GetString("password"); v != "" {
		cfg.Server.Password = v
	}
	if v, _ := cmd.Flags().GetString("mode"); v != "" {
		cfg.Mode = strings.ToLower(v)
	}
	if v, _ := cmd.Flags().GetStringSlice("cluster-addrs"); len(v) > 0 {
		cfg.Cluster.Addrs = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Logging.Level = strings.ToUpper(v)
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// withClient dials a client from configuration, runs fn until it returns or
// the process is interrupted, then closes the client.
func withClient(cmd *cobra.Command, fn func(context.Context, *redisgraph.Client) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging)

	if cfg.Metrics.Enabled {
		srv := &http.Server{Addr: cfg.Metrics.Address, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
		defer srv.Close()
	}

	client, err := redisgraph.Dial(cfg, redisgraph.WithLogger(logger))
	if err != nil {
		return err
	}
	defer client.Close()
	logger.Debug("client ready", "config", cfg.String())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return fn(ctx, client)
}

// parseParams turns name=value pairs into query parameters. Values that
// parse as integers, floats, booleans or null keep that type; anything else
// is a string. Wrap a value in double quotes to force a string.
func parseParams(raw []string) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(raw))
	for _, p := range raw {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q, want name=value", p)
		}
		params[name] = parseParamValue(value)
	}
	return params, nil
}

func parseParamValue(v string) any {
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		return v[1 : len(v)-1]
	}
	if v == "null" {
		return nil
	}
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	return v
}
