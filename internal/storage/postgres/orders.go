package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/xiangyupai/order-service/internal/models"
	"github.com/xiangyupai/order-service/internal/storage"
)

type previewRow struct {
	ServiceID       int64          `db:"service_id"`
	ServiceName     string         `db:"service_name"`
	UnitPrice       int64          `db:"unit_price"`
	PriceText       string         `db:"price_text"`
	MinQuantity     int            `db:"min_quantity"`
	MaxQuantity     int            `db:"max_quantity"`
	DefaultQuantity int            `db:"default_quantity"`
	ProviderID      int64          `db:"provider_id"`
	Avatar          string         `db:"avatar"`
	Nickname        string         `db:"nickname"`
	Gender          string         `db:"gender"`
	Age             sql.NullInt64  `db:"age"`
	Tags            pq.StringArray `db:"tags"`
	GameArea        sql.NullString `db:"game_area"`
	RankDisplay     sql.NullString `db:"rank_display"`
}

// GetPreview собирает превью заказа: услуга, исполнитель и баланс
// пользователя одним снапшотом.
func (s *Storage) GetPreview(ctx context.Context, userID, serviceID int64) (*models.OrderPreview, error) {
	const fn = "storage.postgres.GetPreview"

	query, args, err := s.sb.
		Select(
			"s.id AS service_id",
			"s.name AS service_name",
			"s.unit_price",
			"s.price_text",
			"s.min_quantity",
			"s.max_quantity",
			"s.default_quantity",
			"p.id AS provider_id",
			"p.avatar",
			"p.nickname",
			"p.gender",
			"p.age",
			"p.tags",
			"p.game_area",
			"p.rank_display",
		).
		From("services s").
		Join("providers p ON p.id = s.provider_id").
		Where(sq.Eq{"s.id": serviceID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	var row previewRow

	err = s.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNoService
	}
	if err != nil {
		return nil, fmt.Errorf("%s: can't get service: %v", fn, err)
	}

	wallet, err := s.GetWallet(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	return &models.OrderPreview{
		Provider: models.Provider{
			ID:       row.ProviderID,
			Avatar:   row.Avatar,
			Nickname: row.Nickname,
			Gender:   row.Gender,
			Age:      int(row.Age.Int64),
			Tags:     row.Tags,
			SkillInfo: models.SkillInfo{
				GameArea:    row.GameArea.String,
				RankDisplay: row.RankDisplay.String,
			},
		},
		Service: models.ServiceInfo{Name: row.ServiceName},
		Price: models.PriceInfo{
			UnitPrice:   row.UnitPrice,
			DisplayText: row.PriceText,
		},
		QuantityOptions: models.QuantityOptions{
			Min:     row.MinQuantity,
			Max:     row.MaxQuantity,
			Default: row.DefaultQuantity,
		},
		UserBalance: wallet.Balance,
	}, nil
}

func (s *Storage) SaveOrder(ctx context.Context, order *models.Order) error {
	const fn = "storage.postgres.SaveOrder"

	query, args, err := s.sb.
		Insert("orders").
		Columns("order_id", "order_no", "user_id", "service_id", "quantity", "amount", "status", "created_at").
		Values(order.OrderID, order.OrderNo, order.UserID, order.ServiceID, order.Quantity, order.Amount, order.Status, order.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: can't save order: %v", fn, err)
	}

	return nil
}

func (s *Storage) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	const fn = "storage.postgres.GetOrder"

	query, args, err := s.sb.
		Select("order_id", "order_no", "user_id", "service_id", "quantity", "amount", "status", "created_at").
		From("orders").
		Where(sq.Eq{"order_id": orderID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	var order models.Order

	err = s.db.GetContext(ctx, &order, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNoOrder
	}
	if err != nil {
		return nil, fmt.Errorf("%s: can't get order: %v", fn, err)
	}

	return &order, nil
}

// GetPaidOrders returns every paid order, used to warm the cache at startup.
func (s *Storage) GetPaidOrders(ctx context.Context) ([]*models.Order, error) {
	const fn = "storage.postgres.GetPaidOrders"

	query, args, err := s.sb.
		Select("order_id", "order_no", "user_id", "service_id", "quantity", "amount", "status", "created_at").
		From("orders").
		Where(sq.Eq{"status": models.OrderStatusPaid}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	var orders []*models.Order

	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("%s: can't get orders: %v", fn, err)
	}

	return orders, nil
}

// DebitAndMarkPaid списывает сумму заказа с кошелька и переводит заказ в
// статус paid в одной транзакции. Кошелек блокируется FOR UPDATE, чтобы
// параллельное списание не увело баланс в минус.
//
// Возвращает баланс после списания. Гонка по статусу заказа дает
// ErrOrderPaid, нехватка средств - ErrLowBalance; ни то, ни другое не
// меняет данные.
func (s *Storage) DebitAndMarkPaid(ctx context.Context, orderID string, userID int64) (int64, error) {
	const fn = "storage.postgres.DebitAndMarkPaid"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: can't begin tx: %v", fn, err)
	}
	defer tx.Rollback() //nolint:errcheck

	var order models.Order

	err = tx.GetContext(ctx, &order,
		`SELECT order_id, order_no, user_id, service_id, quantity, amount, status, created_at
		 FROM orders WHERE order_id = $1 FOR UPDATE`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrNoOrder
	}
	if err != nil {
		return 0, fmt.Errorf("%s: can't get order: %v", fn, err)
	}

	if order.Status == models.OrderStatusPaid {
		return 0, storage.ErrOrderPaid
	}

	var balance int64

	err = tx.GetContext(ctx, &balance,
		`SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrNoWallet
	}
	if err != nil {
		return 0, fmt.Errorf("%s: can't get wallet: %v", fn, err)
	}

	if balance < order.Amount {
		return balance, storage.ErrLowBalance
	}

	balance -= order.Amount

	if _, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = $1 WHERE user_id = $2`, balance, userID); err != nil {
		return 0, fmt.Errorf("%s: can't debit wallet: %v", fn, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $1 WHERE order_id = $2`, models.OrderStatusPaid, orderID); err != nil {
		return 0, fmt.Errorf("%s: can't mark order paid: %v", fn, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: can't commit tx: %v", fn, err)
	}

	return balance, nil
}

// SaveSettlement записывает строку расчетной книги по терминальному
// событию заказа. Повторная доставка события безопасна: конфликт по
// order_id игнорируется.
func (s *Storage) SaveSettlement(ctx context.Context, event *models.OrderEvent) error {
	const fn = "storage.postgres.SaveSettlement"

	query, args, err := s.sb.
		Insert("settlements").
		Columns("order_id", "order_no", "user_id", "service_id", "quantity", "amount", "status", "occurred_at").
		Values(event.OrderID, event.OrderNo, event.UserID, event.ServiceID, event.Quantity, event.Amount, event.Status, event.OccurredAt).
		Suffix("ON CONFLICT (order_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: can't save settlement: %v", fn, err)
	}

	return nil
}
