package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parcelworks/addrsplit/internal/config"
	"github.com/parcelworks/addrsplit/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the address resolution HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		srvOpts := []server.Option{
			server.WithModels(modelCatalog(cfg)),
		}
		if len(cfg.Server.AllowedOrigins) > 0 {
			srvOpts = append(srvOpts, server.WithAllowedOrigins(cfg.Server.AllowedOrigins))
		}
		api := server.New(e.store, e.resolver, srvOpts...)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.Router(),
		}

		// Periodic retention sweep
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					n, err := e.store.DeleteExpired(ctx)
					if err != nil {
						zap.L().Warn("expiry sweep failed", zap.Error(err))
						continue
					}
					if n > 0 {
						zap.L().Info("expired submissions deleted", zap.Int("count", n))
					}
				}
			}
		}()

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// modelCatalog builds the /models listing from the pricing table plus the
// configured default model.
func modelCatalog(cfg *config.Config) []server.ModelInfo {
	ids := make(map[string]struct{}, len(cfg.Pricing.LLM)+1)
	for id := range cfg.Pricing.LLM {
		ids[id] = struct{}{}
	}
	if cfg.LLM.Model != "" {
		ids[cfg.LLM.Model] = struct{}{}
	}

	models := make([]server.ModelInfo, 0, len(ids))
	for id := range ids {
		models = append(models, server.ModelInfo{
			ID:       id,
			Provider: providerForModel(id),
			Name:     id,
		})
	}
	sort.Slice(models, func(i, j int) bool {
		if models[i].Provider != models[j].Provider {
			return models[i].Provider < models[j].Provider
		}
		return models[i].Name < models[j].Name
	})
	return models
}

func providerForModel(id string) string {
	switch {
	case strings.HasPrefix(id, "claude"):
		return "anthropic"
	case strings.HasPrefix(id, "gpt"), strings.HasPrefix(id, "o1"), strings.HasPrefix(id, "o3"):
		return "openai"
	default:
		return "unknown"
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
