package cmd

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hkanyike/tradingbuddy/api"
	"github.com/hkanyike/tradingbuddy/auth"
	"github.com/hkanyike/tradingbuddy/internal/applog"
	"github.com/hkanyike/tradingbuddy/market"
	"github.com/hkanyike/tradingbuddy/paper"
	"github.com/hkanyike/tradingbuddy/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger, err := applog.New(cfg.Logging)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		st, err := store.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer st.Close()

		// Admin bootstrap: promote the configured email if that user
		// already exists (registration also honors it).
		if cfg.Auth.AdminEmail != "" {
			if u, err := st.GetUserByEmail(cmd.Context(), strings.ToLower(cfg.Auth.AdminEmail)); err == nil && u.Role != store.RoleAdmin {
				if err := st.SetUserRole(cmd.Context(), u.UserID, store.RoleAdmin); err != nil {
					return err
				}
				logger.Info("promoted admin", zap.String("email", u.Email))
			}
		}

		mkt := market.NewService(cfg.Market)
		authSvc := auth.NewService(st, cfg.Auth, cfg.Paper)
		engine := paper.NewEngine(st, mkt, cfg.Paper, logger.Named("paper"))
		server := api.NewServer(cfg.Server, logger.Named("api"), st, authSvc, engine, mkt)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger.Info("starting", zap.String("addr", cfg.Server.Addr), zap.String("db", cfg.Database.Path))
		return server.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
