// Package api exposes the dashboard's REST surface: auth, market data,
// paper accounts and orders, strategies, backtest records and the admin
// console.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hkanyike/tradingbuddy/auth"
	"github.com/hkanyike/tradingbuddy/config"
	"github.com/hkanyike/tradingbuddy/market"
	"github.com/hkanyike/tradingbuddy/paper"
	"github.com/hkanyike/tradingbuddy/store"
)

type Server struct {
	cfg    config.ServerConfig
	logger *zap.Logger
	store  *store.Store
	auth   *auth.Service
	engine *paper.Engine
	market *market.Service
}

func NewServer(
	cfg config.ServerConfig,
	logger *zap.Logger,
	st *store.Store,
	authSvc *auth.Service,
	engine *paper.Engine,
	mkt *market.Service,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		store:  st,
		auth:   authSvc,
		engine: engine,
		market: mkt,
	}
}

// Run serves until ctx is cancelled, then drains within the configured
// shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout),
		WriteTimeout: time.Duration(s.cfg.WriteTimeout),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("api listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.ShutdownTimeout))
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
