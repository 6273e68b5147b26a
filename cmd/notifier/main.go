package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-sambatan-pool.git/internal/config"
	kafkax "github.com/ariefcatur/go-sambatan-pool.git/internal/kafka"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/notifier"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/postgres"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/redisx"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/sambatan"
	"github.com/joho/godotenv"
)

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

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notifier.Service{
		Pools:       &sambatan.Repo{DB: db},
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-notifier",
	}

	group := cfg.NotifierGroup
	workers := cfg.NotifierWorkers

	topics := []string{
		sambatan.TopicNewParticipant,
		sambatan.TopicQuotaReached,
		sambatan.TopicCompleted,
		sambatan.TopicExpired,
	}
	for _, topic := range topics {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topic, workers)
		go func(topic string) {
			log.Printf("notifier consumer started: group=%s topic=%s workers=%d", group, topic, workers)
			if err := cons.Start(ctx, svc.HandleEvent); err != nil {
				log.Printf("consumer exit topic=%s: %v", topic, err)
				cancel()
			}
		}(topic)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Println("shutting down notifier...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
