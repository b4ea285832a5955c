package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"lv-tickettrader/internal/accounts"
	"lv-tickettrader/internal/auth"
	"lv-tickettrader/internal/config"
	"lv-tickettrader/internal/db"
	"lv-tickettrader/internal/events"
	"lv-tickettrader/internal/favorites"
	"lv-tickettrader/internal/httpserver"
	"lv-tickettrader/internal/stream"
	"lv-tickettrader/internal/trading"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()

	var pool *pgxpool.Pool
	var store trading.LedgerStore
	var provisioner trading.Provisioner
	var favoritesHandler *favorites.Handler

	switch cfg.StoreDriver {
	case "postgres":
		pool, err = db.NewPool(ctx, cfg.DBDSN)
		if err != nil {
			log.Fatal(err)
		}
		defer pool.Close()
		store = trading.NewPGStore(pool)
		provisioner = accounts.NewPGProvisioner(pool)
		favoritesHandler = favorites.NewHandler(favorites.NewStore(pool))
	case "memory":
		mem := trading.NewMemStore()
		store = mem
		provisioner = accounts.NewMemProvisioner(mem)
		log.Printf("memory store driver: balances are not durable")
	}

	bus := stream.NewBus()
	engine := trading.NewEngine(store)
	authSvc := auth.NewService(pool, cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL)
	authHandler := auth.NewHandler(authSvc)
	tradeHandler := trading.NewHandler(engine, provisioner, bus, cfg.DemoStartingCash)
	eventStore, err := events.NewStore(cfg.EventsFile)
	if err != nil {
		log.Fatal(err)
	}
	eventsHandler := events.NewHandler(eventStore)
	wsHandler := httpserver.NewWSHandler(bus, authSvc, cfg.WebSocketOrigin)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandler:      authHandler,
		TradeHandler:     tradeHandler,
		EventsHandler:    eventsHandler,
		FavoritesHandler: favoritesHandler,
		AuthService:      authSvc,
		WSHandler:        wsHandler,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	log.Printf("server listening on %s (store driver: %s)", cfg.HTTPAddr, cfg.StoreDriver)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
