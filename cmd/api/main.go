package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-sambatan-pool.git/internal/blob"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/clock"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/config"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/httpx"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/identity"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/notify"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/postgres"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/product"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/ratelimit"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/redisx"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/sambatan"
	"github.com/ariefcatur/go-sambatan-pool.git/migrations"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB + schema
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := migrations.Apply(ctx, db); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka emitter (satu producer per topic)
	emitter := notify.NewKafkaEmitter(ctx, cfg.KafkaBrokers, 1024)

	repo := &sambatan.Repo{DB: db}
	svc := &sambatan.Service{
		Repo:        repo,
		Products:    &product.PGCatalog{DB: db},
		Identity:    identity.NewStaticAdmins(cfg.AdminIDs),
		Emitter:     emitter,
		Clock:       clock.System(),
		ServiceName: cfg.ServiceName,
	}

	router := httpx.NewRouter()
	ph := &httpx.PoolsHandler{
		Svc:   svc,
		Redis: rdb,
		Limiter: &ratelimit.Limiter{
			RDB:    rdb,
			Limit:  cfg.JoinRateLimit,
			Window: cfg.JoinRateWindow,
		},
		Proofs: &blob.DiskStore{Dir: cfg.ProofDir},
	}
	ph.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	emitter.Close() // flush sisa event
}
