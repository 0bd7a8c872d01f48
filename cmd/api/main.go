package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/cors"

	"github.com/PortNumber53/simple-publish-engine/internal/adapters"
	"github.com/PortNumber53/simple-publish-engine/internal/engine"
	"github.com/PortNumber53/simple-publish-engine/internal/handlers"
	"github.com/PortNumber53/simple-publish-engine/internal/store"
	pgstore "github.com/PortNumber53/simple-publish-engine/internal/store/postgres"
)

func resolvePort(getenv func(string) string) string {
	if p := getenv("PORT"); p != "" {
		return p
	}
	return "18911"
}

func parseIntervalFromEnv(getenv func(string) string, key string, def time.Duration) time.Duration {
	v := getenv(key)
	if v == "" {
		return def
	}
	var secs int
	if _, err := fmt.Sscanf(v, "%d", &secs); err != nil || secs <= 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}

func buildRouter(h *handlers.Handler) *mux.Router {
	r := mux.NewRouter()
	handlers.RegisterRoutes(h, r)
	return r
}

// openStores connects to Postgres and runs migrations when DATABASE_URL is
// set; otherwise the engine runs on its in-memory repositories.
func openStores(getenv func(string) string) (store.AccountRepository, store.PostRepository, *sql.DB, error) {
	databaseURL := getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Printf("[Startup] DATABASE_URL not set; using in-memory stores")
		return nil, nil, nil, nil
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, nil, nil, fmt.Errorf("ping database: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init migration driver: %w", err)
	}
	migrator, err := migrate.NewWithDatabaseInstance("file://db/migrations", "postgres", driver)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create migrator: %w", err)
	}
	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Println("Database is up-to-date")
	return pgstore.NewAccountRepository(db), pgstore.NewPostRepository(db), db, nil
}

func buildAdapters(getenv func(string) string) map[string]adapters.Adapter {
	if getenv("PUBLISH_DRY_RUN") == "true" {
		log.Printf("[Startup] PUBLISH_DRY_RUN=true; using mock adapters, nothing reaches real platforms")
		return adapters.NewMockRegistry()
	}
	return adapters.NewRegistry(&http.Client{Timeout: 20 * time.Second}, log.Default())
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Root context for the scheduler loop and graceful shutdown
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	accounts, posts, db, err := openStores(os.Getenv)
	if err != nil {
		log.Fatalf("Failed to open stores: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	eng := engine.New(engine.Config{
		Accounts:     accounts,
		Posts:        posts,
		Adapters:     buildAdapters(os.Getenv),
		TickInterval: parseIntervalFromEnv(os.Getenv, "SCHEDULER_TICK_SECONDS", 10*time.Second),
	})
	if err := eng.Start(rootCtx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	h := handlers.New(eng)
	r := buildRouter(h)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	port := resolvePort(os.Getenv)
	srv := &http.Server{
		Handler:      c.Handler(r),
		Addr:         ":" + port,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		log.Println("Shutting down server...")
		eng.Stop()
		cancel()
		ctx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("Server starting on port %s", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	log.Println("Server stopped")
}
