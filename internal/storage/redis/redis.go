// Package redis предоставляет кэш-слой на Redis: снапшоты превью заказа
// (с TTL) и снапшоты оплаченных заказов. Кэш стоит перед PostgreSQL,
// чтобы повторная загрузка экрана подтверждения не ходила в базу.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xiangyupai/order-service/internal/config"
	"github.com/xiangyupai/order-service/internal/models"
	"github.com/xiangyupai/order-service/internal/storage"
)

// Client является оберткой над стандартным клиентом `redis.Client`,
// что позволяет в будущем расширить его функциональность, не изменяя
// публичный API пакета.
type Client struct {
	*redis.Client
	previewTTL time.Duration
}

// Storage определяет интерфейс для хранилища, из которого наполняется
// кэш оплаченных заказов. Интерфейс объявлен здесь, чтобы пакет не
// зависел напрямую от `postgres.Storage`.
type Storage interface {
	GetPaidOrders(ctx context.Context) ([]*models.Order, error)
}

// New создает и настраивает новый клиент для подключения к Redis.
// Функция проверяет соединение с помощью команды PING и возвращает ошибку,
// если Redis недоступен.
func New(ctx context.Context, cfg config.Redis, previewTTL time.Duration) (*Client, error) {
	address := net.JoinHostPort(cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Проверяем, что соединение с Redis установлено и сервер отвечает.
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("can't ping redis: %v", err)
	}

	return &Client{Client: client, previewTTL: previewTTL}, nil
}

func previewKey(userID, serviceID int64) string {
	return fmt.Sprintf("preview:%d:%d", userID, serviceID)
}

// SavePreview кэширует снапшот превью с TTL: превью неизменяемо в рамках
// одного открытия экрана, но цена и баланс не должны жить вечно.
func (c *Client) SavePreview(ctx context.Context, userID, serviceID int64, preview *models.OrderPreview) error {
	const fn = "storage.redis.SavePreview"

	previewBytes, err := json.Marshal(preview)
	if err != nil {
		return fmt.Errorf("%s: can't marshal preview: %v", fn, err)
	}

	if err := c.Set(ctx, previewKey(userID, serviceID), previewBytes, c.previewTTL).Err(); err != nil {
		return fmt.Errorf("%s: can't set preview: %v", fn, err)
	}

	return nil
}

// GetPreview извлекает закэшированное превью. Отсутствие ключа
// транслируется в доменную ошибку `storage.ErrNoPreview`.
func (c *Client) GetPreview(ctx context.Context, userID, serviceID int64) (*models.OrderPreview, error) {
	const fn = "storage.redis.GetPreview"

	previewJSON, err := c.Get(ctx, previewKey(userID, serviceID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNoPreview
	}
	if err != nil {
		return nil, fmt.Errorf("%s: can't get preview: %v", fn, err)
	}

	preview := &models.OrderPreview{}
	if err := json.Unmarshal([]byte(previewJSON), preview); err != nil {
		return nil, fmt.Errorf("%s: can't unmarshal preview json: %v", fn, err)
	}

	return preview, nil
}

// SaveOrder сохраняет снапшот заказа по его order_id без срока жизни.
func (c *Client) SaveOrder(ctx context.Context, order *models.Order) error {
	const fn = "storage.redis.SaveOrder"

	orderBytes, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("%s: can't marshal order: %v", fn, err)
	}

	if err := c.Set(ctx, order.OrderID, orderBytes, 0).Err(); err != nil {
		return fmt.Errorf("%s: can't set order: %v", fn, err)
	}

	return nil
}

// GetOrder извлекает снапшот заказа. Если ключ не найден, возвращается
// `storage.ErrNoOrder`, что позволяет вызывающему коду обратиться к
// основной БД.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	const fn = "storage.redis.GetOrder"

	orderJSON, err := c.Get(ctx, orderID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNoOrder
	}
	if err != nil {
		return nil, fmt.Errorf("%s: can't get order: %v", fn, err)
	}

	order := &models.Order{}
	if err := json.Unmarshal([]byte(orderJSON), order); err != nil {
		return nil, fmt.Errorf("%s: can't unmarshal order json: %v", fn, err)
	}

	return order, nil
}

// Warm загружает оплаченные заказы из основного хранилища и сохраняет их
// в Redis. Вызывается при старте приложения для "прогрева" кэша.
func (c *Client) Warm(ctx context.Context, storage Storage) error {
	const fn = "storage.redis.Warm"

	orders, err := storage.GetPaidOrders(ctx)
	if err != nil {
		return fmt.Errorf("can't get orders: %v", err)
	}

	for _, order := range orders {
		if err := c.SaveOrder(ctx, order); err != nil {
			return fmt.Errorf("%s: %w", fn, err)
		}
	}

	return nil
}
