package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tvarn/fieldplan/internal/eventbus"
	"github.com/tvarn/fieldplan/internal/format"
	"github.com/tvarn/fieldplan/internal/language"
	"github.com/tvarn/fieldplan/internal/logging"
	"github.com/tvarn/fieldplan/internal/otel"
	"github.com/tvarn/fieldplan/internal/plan"
	"github.com/tvarn/fieldplan/internal/schema"
	"github.com/tvarn/fieldplan/internal/server"
)

var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "fieldplan",
	Short: "Schema-directed field selection planner",
	Long: `fieldplan turns a resource schema and a client field request into a
query plan: the columns to select, the calculations and relationships to
load, and the template that shapes the response.

Flags can also be set through FIELDPLAN_* environment variables, e.g.
FIELDPLAN_SCHEMA=./schema.yaml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		viper.SetEnvPrefix("FIELDPLAN")
		viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		viper.AutomaticEnv()
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}

		config := zap.NewProductionConfig()
		if viper.GetBool("verbose") {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP planning service",
	RunE:  runServe,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a schema file and report its resources",
	RunE:  runCheck,
}

var planCmd = &cobra.Command{
	Use:   "plan <resource>",
	Short: "Print the plan for a field request as JSON",
	Long: `Builds the plan for a single request and writes it to stdout.
The field list comes from --fields (a JSON array) or --query (the braced
shorthand, e.g. '{ id user { displayName } }').`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	rootCmd.PersistentFlags().String("schema", "schema.yaml", "path to the schema file")
	rootCmd.PersistentFlags().String("format", "camel", "external field convention: camel, pascal, or snake")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	serveCmd.Flags().Bool("pretty", false, "pretty-print JSON responses")
	serveCmd.Flags().Duration("timeout", 10*time.Second, "per-request timeout")
	serveCmd.Flags().Int64("max-body", 1<<20, "request body size limit in bytes, 0 for unlimited")
	serveCmd.Flags().StringSlice("cors-origin", nil, "allowed CORS origins")
	serveCmd.Flags().String("otel-endpoint", "", "OTLP collector endpoint")
	serveCmd.Flags().String("otel-service", "fieldplan", "OpenTelemetry service name")

	planCmd.Flags().String("fields", "", "field request as a JSON array")
	planCmd.Flags().String("query", "", "field request in braced shorthand")
	planCmd.Flags().Bool("compact", false, "emit compact JSON")

	rootCmd.AddCommand(serveCmd, checkCmd, planCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func buildPlanner() (*plan.Planner, error) {
	f, ok := format.ByName(viper.GetString("format"))
	if !ok {
		return nil, fmt.Errorf("unknown format %q", viper.GetString("format"))
	}
	reg, err := schema.Load(viper.GetString("schema"))
	if err != nil {
		return nil, err
	}
	return plan.New(reg, f), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	planner, err := buildPlanner()
	if err != nil {
		return err
	}

	bus := eventbus.New()
	detach := logging.Attach(bus, logger)
	defer detach()

	shutdownTracing, err := otel.Setup(bus, viper.GetString("otel-endpoint"), viper.GetString("otel-service"))
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}

	opts := []server.Option{
		server.WithBus(bus),
		server.WithTimeout(viper.GetDuration("timeout")),
		server.WithMaxBodyBytes(viper.GetInt64("max-body")),
	}
	if viper.GetBool("pretty") {
		opts = append(opts, server.WithPretty())
	}
	if origins := viper.GetStringSlice("cors-origin"); len(origins) > 0 {
		opts = append(opts, server.WithCORS(origins...))
	}

	srv := &http.Server{
		Addr:    viper.GetString("addr"),
		Handler: server.New(planner, opts...),
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case sig := <-sigc:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	return shutdownTracing(ctx)
}

func runCheck(cmd *cobra.Command, args []string) error {
	reg, err := schema.Load(viper.GetString("schema"))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ok: %d resources\n", reg.Resources())
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	planner, err := buildPlanner()
	if err != nil {
		return err
	}

	fieldsJSON := viper.GetString("fields")
	query := viper.GetString("query")
	if (fieldsJSON == "") == (query == "") {
		return fmt.Errorf("provide exactly one of --fields or --query")
	}

	var fields []any
	if query != "" {
		fields, err = language.ParseFields(query)
		if err != nil {
			return err
		}
	} else if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
		return fmt.Errorf("invalid --fields JSON: %w", err)
	}

	res, err := planner.Plan(args[0], fields)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if !viper.GetBool("compact") {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(res)
}
