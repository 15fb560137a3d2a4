package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"whisperd/internal/catalog"
	"whisperd/internal/config"
	"whisperd/internal/engine"
	"whisperd/internal/httpapi"
	"whisperd/internal/manager"
)

func main() {
	// .env is optional; real environment always wins.
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "whisperd",
		Short:         "Asynchronous transcription job daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", envOr("WHISPERD_CONFIG", ""), "Path to config file (.toml/.yaml/.json)")
	root.PersistentFlags().String("models-dir", envOr("WHISPERD_MODELS_DIR", "~/models/whisper"), "Directory holding model files")
	root.PersistentFlags().String("default-model", envOr("WHISPERD_DEFAULT_MODEL", ""), "Default model name when a request omits one")
	root.PersistentFlags().String("log-level", envOr("WHISPERD_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")
	root.PersistentFlags().String("addr", envOr("WHISPERD_ADDR", ":8090"), "HTTP listen address, e.g. :8090")
	root.PersistentFlags().Int("retain-finished-sec", 0, "Seconds to retain finished job records (0=config/default, negative=keep forever)")
	root.PersistentFlags().Int("max-body-mb", 0, "Maximum upload size in MB (0=config/default)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE:  runServe,
	}
	root.AddCommand(serve)

	models := &cobra.Command{
		Use:   "models",
		Short: "List catalog models present on disk",
		RunE:  runModels,
	}
	root.AddCommand(models)

	// Bare invocation serves; matches the common daemon expectation.
	root.RunE = runServe
	return root
}

// loadSetup resolves config file + flags into the shared pieces both
// subcommands need. Flag values set explicitly beat the config file.
func loadSetup(cmd *cobra.Command) (config.Config, *catalog.Catalog, zerolog.Logger, error) {
	var cfg config.Config
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return cfg, nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
		}
	}
	modelsDir, _ := cmd.Flags().GetString("models-dir")
	if cfg.ModelsDir != "" && !cmd.Flags().Changed("models-dir") {
		modelsDir = cfg.ModelsDir
	}
	defaultModel, _ := cmd.Flags().GetString("default-model")
	if cfg.DefaultModel != "" && !cmd.Flags().Changed("default-model") {
		defaultModel = cfg.DefaultModel
	}
	levelStr, _ := cmd.Flags().GetString("log-level")
	if cfg.LogLevel != "" && !cmd.Flags().Changed("log-level") {
		levelStr = cfg.LogLevel
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	cat, err := catalog.New(modelsDir, cfg.Models, defaultModel)
	if err != nil {
		return cfg, nil, log, fmt.Errorf("load model catalog: %w", err)
	}
	return cfg, cat, log, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, cat, log, err := loadSetup(cmd)
	if err != nil {
		return err
	}

	retain := time.Duration(cfg.RetainFinishedForSec) * time.Second
	if v, _ := cmd.Flags().GetInt("retain-finished-sec"); v != 0 {
		retain = time.Duration(v) * time.Second
	}
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Catalog:           cat,
		Engine:            engine.NewWhisperEngine(),
		Defaults:          cfg.Transcribe,
		RetainFinishedFor: retain,
		Logger:            &log,
	})
	defer func() {
		if err := mgr.Close(); err != nil {
			log.Warn().Err(err).Msg("manager close")
		}
	}()

	maxBodyMB := cfg.MaxBodyMB
	if v, _ := cmd.Flags().GetInt("max-body-mb"); v > 0 {
		maxBodyMB = v
	}
	if maxBodyMB > 0 {
		httpapi.SetMaxUploadBytes(int64(maxBodyMB) << 20)
	}
	httpapi.SetLogger(log)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins,
		[]string{http.MethodGet, http.MethodPost}, []string{"Content-Type"})

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	addr, _ := cmd.Flags().GetString("addr")
	if cfg.Addr != "" && !cmd.Flags().Changed("addr") {
		addr = cfg.Addr
	}
	srv := &http.Server{Addr: addr, Handler: httpapi.NewMux(mgr)}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("models_dir", cat.Dir()).Msg("whisperd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown")
	}
	return nil
}

func runModels(cmd *cobra.Command, _ []string) error {
	_, cat, _, err := loadSetup(cmd)
	if err != nil {
		return err
	}
	models := cat.Available()
	if len(models) == 0 {
		fmt.Println("no models found in", cat.Dir())
		return nil
	}
	for _, m := range models {
		marker := " "
		if m.Name == cat.DefaultName() {
			marker = "*"
		}
		fmt.Printf("%s %-20s %s\n", marker, m.Name, m.Path)
	}
	return nil
}
