package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/xiangyupai/order-service/internal/config"
	"github.com/xiangyupai/order-service/internal/gateway"
	"github.com/xiangyupai/order-service/internal/gateway/backend"
	"github.com/xiangyupai/order-service/internal/gateway/mock"
	"github.com/xiangyupai/order-service/internal/http-server/handlers/order/create"
	"github.com/xiangyupai/order-service/internal/http-server/handlers/order/pay"
	"github.com/xiangyupai/order-service/internal/http-server/handlers/order/preview"
	"github.com/xiangyupai/order-service/internal/http-server/handlers/order/verify"
	mwLogger "github.com/xiangyupai/order-service/internal/http-server/middleware/logger"
	"github.com/xiangyupai/order-service/internal/processor/settlement"
	"github.com/xiangyupai/order-service/internal/storage/kafka"
	"github.com/xiangyupai/order-service/internal/storage/postgres"
	"github.com/xiangyupai/order-service/internal/storage/redis"
	"github.com/xiangyupai/order-service/lib/logger/sl"
	"github.com/xiangyupai/order-service/lib/logger/slogpretty"
)

// Дефолты mock-шлюза для локальной разработки. Пароль известен, чтобы
// сценарии с подтверждением можно было проходить руками.
const (
	mockBalance     = 1000
	mockPayPassword = "123456"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wg := &sync.WaitGroup{}

	cfg := config.MustLoad()

	log := slogpretty.SetupLogger(cfg.Env)

	log.Info("starting order service",
		slog.String("env", cfg.Env),
		slog.String("gateway", cfg.Gateway),
	)

	var (
		gw       gateway.Gateway
		producer *kafka.Producer
		consumer *kafka.Consumer
	)

	switch cfg.Gateway {
	case config.GatewayMock:
		gw = mock.New(mock.Config{
			Balance:           mockBalance,
			PayPassword:       mockPayPassword,
			PasswordFreeLimit: cfg.Payment.PasswordFreeLimit,
		})

		log.Info("mock gateway init successful")

	case config.GatewayBackend:
		storage, err := postgres.New(cfg.Postgres, log)
		if err != nil {
			log.Error("failed to init storage", sl.Err(err))
			os.Exit(1)
		}

		log.Info("storage init successful")

		cache, err := redis.New(ctx, cfg.Redis, cfg.Payment.PreviewTTL)
		if err != nil {
			log.Error("failed to init cache", sl.Err(err))
			os.Exit(1)
		}

		if err := cache.Warm(ctx, storage); err != nil {
			log.Error("failed to warm cache", sl.Err(err))
		}

		log.Info("cache init successful")

		producer, err = kafka.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Error("failed to init producer", sl.Err(err))
			os.Exit(1)
		}

		wg.Add(1)
		go producer.HandleResult(ctx, wg)

		eventChan := make(chan *sarama.ConsumerMessage)
		commitChan := make(chan *sarama.ConsumerMessage)

		consumer, err = kafka.NewConsumer(cfg.Kafka, eventChan, commitChan, log)
		if err != nil {
			log.Error("failed to init consumer", sl.Err(err))
			os.Exit(1)
		}

		log.Info("kafka init successful")

		proc := settlement.New(storage, eventChan, commitChan, log)

		wg.Add(1)
		go proc.ProcessEvents(ctx, wg)

		wg.Add(1)
		go consumer.ProcessMessages(ctx, cfg.Kafka.Topic, wg)

		gw = backend.New(storage, cache, producer, cfg.Kafka.Topic, cfg.Payment.PasswordFreeLimit, log)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwLogger.New(log))
	router.Use(middleware.Recoverer)

	router.Route("/api/order", func(r chi.Router) {
		r.Get("/preview", preview.New(log, gw, cfg.Payment.DemoUserID))
		r.Post("/create", create.New(log, gw, cfg.Payment.DemoUserID))
		r.Post("/pay", pay.New(log, gw, cfg.Payment.DemoUserID))
		r.Post("/pay/verify", verify.New(log, gw, cfg.Payment.DemoUserID))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", slog.String("address", cfg.HTTPServer.Address))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		select {
		case <-sigchan:
		case <-gCtx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", sl.Err(err))
	}

	cancel()
	wg.Wait()

	if consumer != nil {
		log.Info("shutting down consumer")
		consumer.Consumer.Close()
	}

	if producer != nil {
		log.Info("shutting down producer")
		producer.Producer.Close()
	}

	log.Info("order service stopped")
}
