package cron

import (
	"context"
	"log"
	"time"

	"moyobot/config"
	"moyobot/services/session"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

const TypeSessionReap = "session:reap"

// InitReapWorker runs the periodic session reaper in background. Stale
// sessions are deleted once their idle time passes the configured TTL.
func InitReapWorker(store session.Store) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 1,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSessionReap, handleReapTask(store))

	scheduler := asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{})
	interval := config.AppConfig.SessionReapInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if _, err := scheduler.Register(
		"@every "+interval.String(),
		asynq.NewTask(TypeSessionReap, nil),
	); err != nil {
		log.Printf("[SessionReaper] failed to register schedule: %v", err)
	}

	go monitorRedisConnection()

	// Start async worker with retry logic.
	go func() {
		log.Println("[SessionReaper] 🚀 Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[SessionReaper] ❌ Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[SessionReaper] ❗ Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()

	go func() {
		if err := scheduler.Run(); err != nil {
			log.Printf("[SessionReaper] scheduler stopped: %v", err)
		}
	}()
}

func handleReapTask(store session.Store) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		ttl := config.AppConfig.SessionTTL
		if ttl <= 0 {
			ttl = 30 * time.Minute
		}
		reaped, err := store.Reap(ctx, ttl)
		if err != nil {
			log.Printf("[SessionReaper] ❌ reap failed: %v", err)
			return err
		}
		if reaped > 0 {
			log.Printf("[SessionReaper] ⏰ removed %d stale session(s)", reaped)
		}
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer client.Close()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[SessionReaper] ⚠️ Redis ping failed: %v", err)
		}
		cancel()
	}
}
