package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/iota-uz/campus-feed/modules/feed/infrastructure/persistence"
	"github.com/iota-uz/campus-feed/modules/feed/presentation/controllers"
	"github.com/iota-uz/campus-feed/modules/feed/services"
	"github.com/iota-uz/campus-feed/pkg/composables"
	"github.com/iota-uz/campus-feed/pkg/configuration"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	router := newRouter(conf, pool)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: strings.Split(conf.AllowedOrigins, ","),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", conf.RequestIDHeader},
	})

	srv := &http.Server{
		Addr:         conf.SocketAddress,
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", conf.SocketAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown failed")
	}
	configuration.Use().Unload()
}

func newRouter(conf *configuration.Configuration, pool *pgxpool.Pool) *mux.Router {
	router := mux.NewRouter()
	router.Use(withPool(pool))
	router.Use(controllers.InstrumentAPI())

	userService := services.NewUserService(persistence.NewUserRepository())

	auth := controllers.NewAuthController(userService, conf.JWTSecret)
	auth.Register(router)

	feed := controllers.NewFeedAPIController(
		services.NewSchoolService(persistence.NewSchoolRepository()),
		services.NewOrganizationService(persistence.NewOrganizationRepository()),
		services.NewTagService(persistence.NewTagRepository()),
		services.NewPostService(persistence.NewPostRepository()),
	)
	feed.FeedMiddleware = []mux.MiddlewareFunc{controllers.RequireAuth(conf.JWTSecret)}
	feed.Register(router)

	router.HandleFunc("/health", healthHandler(pool)).Methods(http.MethodGet)
	if conf.Prometheus.Enabled {
		router.Handle(conf.Prometheus.Path, promhttp.Handler()).Methods(http.MethodGet)
	}
	return router
}

func withPool(pool *pgxpool.Pool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(composables.WithPool(r.Context(), pool)))
		})
	}
}

func healthHandler(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db unreachable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
