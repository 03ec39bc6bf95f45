package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/cv-builder/internal/server"
	"github.com/jonathan/cv-builder/internal/server/ratelimit"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local editor server",
	Long: `Start an HTTP server on this machine that exposes the CV editor as a JSON API:
section editing, validation, save, preview, export and a live event stream.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveAddr   string
	serveCVID   string
	serveSecure bool
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveCVID, "cv", "", "Open the stored CV with this id instead of the local draft")
	serveCmd.Flags().BoolVar(&serveSecure, "secure-cookies", false, "Mark the session cookie Secure (serve behind TLS)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a := current
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := a.cfg.ServerAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	events := server.NewEvents()
	ed := a.newEditor(events.Publish)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ed.Close(closeCtx); err != nil {
			a.log.Warn().Err(err).Msg("failed to write local draft")
		}
	}()

	if serveCVID != "" {
		if err := a.requireLogin(ctx); err != nil {
			return err
		}
		if err := ed.Open(ctx, serveCVID); err != nil {
			return err
		}
	} else if err := ed.NewDraft(ctx); err != nil {
		return err
	}

	sink, err := a.sink(ctx, "")
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Addr:           addr,
		AllowedOrigins: a.cfg.AllowedOrigins,
		Editor:         ed,
		Events:         events,
		Session:        a.session,
		Auth:           a.client,
		Sink:           sink,
		RateLimit:      ratelimit.LoadConfig(),
		SecureCookies:  serveSecure,
		Logger:         a.log,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	a.notify.Info("Editor server", "Listening on http://"+addr)
	return srv.Start(ctx)
}
