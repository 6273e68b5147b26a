package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-sambatan-pool.git/internal/clock"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/config"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/metrics"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/notify"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/postgres"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/sambatan"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Sweeper memindahkan pool OPEN yg sudah lewat expires_at ke CANCELLED.
// joinPool tetap cek expiry di dalam transaksinya sendiri; sweeper hanya
// membereskan state yg tertinggal dan mengirim event expired.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	emitter := notify.NewKafkaEmitter(ctx, cfg.KafkaBrokers, 256)

	svc := &sambatan.Service{
		Repo:        &sambatan.Repo{DB: db},
		Emitter:     emitter,
		Clock:       clock.System(),
		ServiceName: cfg.ServiceName + "-sweeper",
	}

	sweep := func() {
		sctx, scancel := context.WithTimeout(ctx, 30*time.Second)
		defer scancel()
		expired, err := svc.CancelExpired(sctx)
		if err != nil {
			log.Printf("sweep failed: %v", err)
			return
		}
		metrics.ObserveSweep(len(expired))
		if len(expired) > 0 {
			log.Printf("sweep: %d pool(s) expired", len(expired))
		}
	}

	// Satu kali saat boot, lalu sesuai schedule.
	sweep()

	c := cron.New()
	if _, err := c.AddFunc(cfg.SweepSpec, sweep); err != nil {
		log.Fatalf("bad SWEEP_SPEC %q: %v", cfg.SweepSpec, err)
	}
	c.Start()
	log.Printf("sweeper started: spec=%q", cfg.SweepSpec)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down sweeper...")

	<-c.Stop().Done()
	emitter.Close()
}
