package duckask

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/duckmesh/duckask/internal/config"
	"github.com/duckmesh/duckask/internal/dataset"
	"github.com/duckmesh/duckask/internal/keychain"
	"github.com/duckmesh/duckask/internal/llm"
	"github.com/duckmesh/duckask/internal/observability"
	"github.com/duckmesh/duckask/internal/prompt"
	"github.com/duckmesh/duckask/internal/query/duckdb"
	"github.com/duckmesh/duckask/internal/storage/s3"
)

const serviceName = "duckask"

type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv  config.LookupFunc
	DotEnvPath string
	// Keychain defaults to the OS credential store.
	Keychain func() config.LookupFunc
	// NewCompleter defaults to the OpenAI-compatible client.
	NewCompleter func(config.AIConfig) (llm.Completer, error)
}

func (o Options) withDefaults() Options {
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.LookupEnv == nil {
		o.LookupEnv = os.LookupEnv
	}
	if o.DotEnvPath == "" {
		o.DotEnvPath = ".env"
	}
	if o.Keychain == nil {
		o.Keychain = keychain.LookupOrEmpty
	}
	if o.NewCompleter == nil {
		o.NewCompleter = newOpenAICompleter
	}
	return o
}

func NewCommand(opts Options) *cobra.Command {
	opts = opts.withDefaults()
	cmd := &cobra.Command{
		Use:           "duckask",
		Short:         "Ask questions about employees.csv and purchases.csv in plain language",
		Long:          "duckask turns questions into DuckDB SQL with a language model, runs them against the CSV files and summarizes the answer.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.SetIn(opts.Stdin)
	cmd.SetOut(opts.Stdout)
	cmd.SetErr(opts.Stderr)
	cmd.AddCommand(newStoreKeyCommand(opts))
	return cmd
}

func newStoreKeyCommand(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "store-key",
		Short: "Read the model API key from stdin and save it in the OS keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprint(opts.Stdout, "API key: ")
			value, err := bufio.NewReader(opts.Stdin).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("read api key: %w", err)
			}
			store, err := keychain.Open()
			if err != nil {
				return err
			}
			if err := store.SetAPIKey(value); err != nil {
				return fmt.Errorf("store api key: %w", err)
			}
			fmt.Fprintln(opts.Stdout, "API key saved to the OS keychain.")
			return nil
		},
	}
}

func run(ctx context.Context, opts Options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	lookup, err := configLookup(opts)
	if err != nil {
		return err
	}
	cfg, err := config.Load(serviceName, lookup)
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg, opts.Stderr)

	if cfg.Observability.MetricsAddr != "" {
		if _, err := observability.ServeMetrics(ctx, cfg.Observability.MetricsAddr, logger); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
	}

	dataDir, cleanup, err := prepareData(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	loader, err := dataset.NewLoader(dataDir, logger)
	if err != nil {
		return err
	}
	if err := loader.Verify(); err != nil {
		return err
	}

	template, err := prompt.LoadTemplate(cfg.Prompt.Path)
	if err != nil {
		return err
	}
	completer, err := opts.NewCompleter(cfg.AI)
	if err != nil {
		return fmt.Errorf("create model client: %w", err)
	}

	session, err := NewSession(SessionConfig{
		Completer: completer,
		Engine:    duckdb.NewEngine(loader, logger),
		Template:  template,
		Out:       opts.Stdout,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	logger.Debug("session ready",
		slog.String("data_dir", loader.Dir),
		slog.String("model", cfg.AI.Model),
		slog.String("base_url", cfg.AI.BaseURL),
	)
	fmt.Fprintln(opts.Stdout, "Welcome to the DuckDB Query Generator!")
	fmt.Fprintln(opts.Stdout, "You can ask questions about the data in the 'employees.csv' and 'purchases.csv' files.")
	return session.Run(ctx, opts.Stdin)
}

// configLookup layers the process environment over .env, the HCL config file
// and the OS keychain, in that order.
func configLookup(opts Options) (config.LookupFunc, error) {
	dotenv, err := godotenv.Read(opts.DotEnvPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", opts.DotEnvPath, err)
		}
		dotenv = map[string]string{}
	}
	base := config.ChainLookup(opts.LookupEnv, func(key string) (string, bool) {
		value, ok := dotenv[key]
		return value, ok
	})

	path, _ := base("DUCKASK_CONFIG_FILE")
	fileLookup, err := config.LoadFile(strings.TrimSpace(path))
	if err != nil {
		return nil, err
	}
	return config.ChainLookup(base, fileLookup, opts.Keychain()), nil
}

// prepareData returns the directory the CSV files are read from. For the s3
// source the objects are downloaded into a temporary directory that cleanup
// removes.
func prepareData(ctx context.Context, cfg config.Config, logger *slog.Logger) (string, func(), error) {
	if cfg.Data.Source != config.DataSourceS3 {
		return cfg.Data.Dir, func() {}, nil
	}

	store, err := s3.New(s3.Config{
		Endpoint:        cfg.ObjectStore.Endpoint,
		Region:          cfg.ObjectStore.Region,
		Bucket:          cfg.ObjectStore.Bucket,
		AccessKeyID:     cfg.ObjectStore.AccessKeyID,
		SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
		UseSSL:          cfg.ObjectStore.UseSSL,
		Prefix:          cfg.ObjectStore.Prefix,
	})
	if err != nil {
		return "", nil, fmt.Errorf("create object store: %w", err)
	}
	dir, err := os.MkdirTemp("", "duckask-data-*")
	if err != nil {
		return "", nil, fmt.Errorf("create data cache: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	logger.Info("fetching datasets", slog.String("bucket", cfg.ObjectStore.Bucket), slog.String("dir", dir))
	if err := dataset.Fetch(ctx, store, dir, dataset.Defaults); err != nil {
		cleanup()
		return "", nil, err
	}
	return dir, cleanup, nil
}

func newOpenAICompleter(cfg config.AIConfig) (llm.Completer, error) {
	return llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
	})
}
