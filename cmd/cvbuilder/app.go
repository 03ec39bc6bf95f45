package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jonathan/cv-builder/internal/api"
	"github.com/jonathan/cv-builder/internal/auth"
	"github.com/jonathan/cv-builder/internal/config"
	"github.com/jonathan/cv-builder/internal/editor"
	"github.com/jonathan/cv-builder/internal/export"
	"github.com/jonathan/cv-builder/internal/logger"
	"github.com/jonathan/cv-builder/internal/notify"
	"github.com/jonathan/cv-builder/internal/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// errNotLoggedIn is returned by commands that need a backend session.
var errNotLoggedIn = errors.New("not logged in: run `cvbuilder auth login` first")

// app holds what every command shares. It lives for one invocation.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	kv      storage.KV
	tokens  *auth.Store
	session *auth.Session
	client  *api.Client
	notify  *notify.Notifier
}

var current *app

// setupApp resolves the configuration (flags over env over file over
// defaults) and opens the local store and the backend session.
func setupApp(cmd *cobra.Command, _ []string) error {
	closeApp()

	cfg, err := config.Resolve(configPath, os.Getenv)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.NewWithWriter(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	ctx := cmd.Context()

	kv, err := storage.Open(ctx, cfg.StorageDSN)
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}

	tokens := auth.NewStore(kv)
	client, err := api.New(api.Options{
		BaseURL: cfg.APIURL,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		Tokens:  tokens,
		Logger:  log,
	})
	if err != nil {
		_ = kv.Close()
		return err
	}

	session := auth.NewSession(tokens, client, log)
	if err := session.Init(ctx); err != nil {
		log.Warn().Err(err).Msg("could not restore session")
	}

	current = &app{
		cfg:     cfg,
		log:     log,
		kv:      kv,
		tokens:  tokens,
		session: session,
		client:  client,
		notify:  notify.New(cmd.OutOrStdout()),
	}
	log.Debug().Str("api_url", cfg.APIURL).Msg("cvbuilder ready")
	return nil
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIURL = apiURLFlag
	}
	if flags.Changed("storage-dsn") {
		cfg.StorageDSN = storageDSNFlag
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevelFlag
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormatFlag
	}
	if flags.Changed("timeout") {
		cfg.TimeoutSeconds = timeoutFlag
	}
}

// closeApp releases what setupApp opened. It is safe to call more than once.
func closeApp() {
	if current == nil {
		return
	}
	if err := current.session.Close(); err != nil {
		current.log.Warn().Err(err).Msg("failed to close session")
	}
	if err := current.kv.Close(); err != nil {
		current.log.Warn().Err(err).Msg("failed to close local store")
	}
	current = nil
}

// requireLogin fails fast when no usable access token is stored.
func (a *app) requireLogin(ctx context.Context) error {
	if !a.session.IsAuthenticated(ctx) {
		return errNotLoggedIn
	}
	return nil
}

// sink is where exported documents go: the configured bucket, or dir
// (the configured export directory when dir is empty).
func (a *app) sink(ctx context.Context, dir string) (export.Sink, error) {
	if dir == "" && a.cfg.S3Enabled() {
		return export.NewS3(ctx, a.cfg.S3)
	}
	if dir == "" {
		dir = a.cfg.ExportDir
	}
	return export.NewDir(dir), nil
}

// newEditor returns an editor over the local store. onEvent may be nil.
func (a *app) newEditor(onEvent func(editor.Event)) *editor.Editor {
	return editor.New(editor.Options{
		Backend: a.client,
		KV:      a.kv,
		Logger:  a.log,
		OnEvent: onEvent,
	})
}
