package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prowriter/article"
	"prowriter/server"
)

var serveFlags struct {
	addr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", "", "listen address (overrides server_addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr := cfg.ServerAddr
	if serveFlags.addr != "" {
		addr = serveFlags.addr
	}

	agent, err := buildAgent(cfg)
	if err != nil {
		return err
	}
	st, catalog, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	pub, err := buildPublisher(cfg, st, catalog)
	if err != nil {
		return err
	}
	deps := server.Deps{
		Agent:         agent,
		Store:         st,
		Catalog:       catalog,
		Methods:       article.NewCatalog(),
		Publisher:     pub,
		Logger:        logger.Named("server"),
		WizardOptions: wizardOptions(cfg),
		SessionTTL:    cfg.SessionTTL,
	}
	srv, err := server.New(deps)
	if err != nil {
		return err
	}
	defer srv.Close()

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go srv.ExpireEvery(ctx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", addr),
			zap.String("provider", cfg.LLM.Provider),
			zap.Bool("publish", pub != nil))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
