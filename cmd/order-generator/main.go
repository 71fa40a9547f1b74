// package main является точкой входа для сервиса-генератора событий.
// Его основная задача — создавать случайные события об оплаченных заказах
// и отправлять их в виде сообщений в топик Apache Kafka, эмулируя нагрузку
// на расчетный конвейер.
// Сервис поддерживает graceful shutdown: при получении сигналов SIGINT или
// SIGTERM он корректно завершает работу, дожидаясь окончания всех активных
// горутин и закрывая соединение с Kafka.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/xiangyupai/order-service/internal/config"
	"github.com/xiangyupai/order-service/internal/storage/kafka"
	"github.com/xiangyupai/order-service/lib/logger/sl"
	"github.com/xiangyupai/order-service/lib/logger/slogpretty"
)

func main() {
	// Создаем корневой контекст с функцией отмены для управления graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())

	// Загружаем конфигурацию. В случае ошибки приложение завершится.
	cfg := config.MustLoad()

	// Настраиваем логгер в соответствии с текущим окружением (ENV).
	log := slogpretty.SetupLogger(cfg.Env)

	log.Info("starting order event generator", slog.String("env", cfg.Env))

	// Инициализируем продюсера Kafka.
	p, err := kafka.NewProducer(cfg.Kafka, log)
	if err != nil {
		log.Error("failed to init producer", sl.Err(err))
		os.Exit(1)
	}
	log.Info("producer init successful")

	// Создаем канал для прослушивания системных сигналов.
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)

	// WaitGroup для ожидания завершения всех запущенных горутин.
	wg := &sync.WaitGroup{}

	// Запускаем горутину, которая будет генерировать и отправлять события в Kafka.
	wg.Add(1)
	go p.ProduceEvents(ctx, cfg.Kafka.Topic, wg)

	// Запускаем горутину для обработки ответов от Kafka (успех/ошибка).
	wg.Add(1)
	go p.HandleResult(ctx, wg)

	// Блокируем выполнение до получения сигнала, после чего останавливаем
	// все горутины через отмену контекста.
	<-sigchan
	cancel()

	wg.Wait()

	log.Info("stopping producer")
	p.Producer.Close()
}
