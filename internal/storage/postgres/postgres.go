package postgres

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/xiangyupai/order-service/internal/config"
	"github.com/xiangyupai/order-service/internal/models"
	"github.com/xiangyupai/order-service/internal/storage"
)

type Storage struct {
	db  *sqlx.DB
	sb  sq.StatementBuilderType
	log *slog.Logger
}

func New(cfg config.Postgres, log *slog.Logger) (*Storage, error) {
	const fn = "storage.postgres.New"

	// open database
	db, err := sqlx.Open("postgres", cfg.ConnString()+"?sslmode=disable")
	if err != nil {
		return nil, fmt.Errorf("%s: can't open database: %v", fn, err)
	}

	// check if we can connect to database
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("%s: can't connect to database: %v", fn, err)
	}

	return &Storage{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		log: log,
	}, nil
}

type walletRow struct {
	UserID          int64          `db:"user_id"`
	Balance         int64          `db:"balance"`
	PayPasswordHash sql.NullString `db:"pay_password_hash"`
}

func (s *Storage) GetWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	const fn = "storage.postgres.GetWallet"

	query, args, err := s.sb.
		Select("user_id", "balance", "pay_password_hash").
		From("wallets").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	var row walletRow

	err = s.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNoWallet
	}
	if err != nil {
		return nil, fmt.Errorf("%s: can't get wallet: %v", fn, err)
	}

	return &models.Wallet{
		UserID:      row.UserID,
		Balance:     row.Balance,
		HasPassword: row.PayPasswordHash.Valid && row.PayPasswordHash.String != "",
	}, nil
}

// VerifyPassword compares the given payment password against the stored
// hash. Verification itself is opaque to callers: they only see
// ErrBadPassword or nil.
func (s *Storage) VerifyPassword(ctx context.Context, userID int64, password string) error {
	const fn = "storage.postgres.VerifyPassword"

	query, args, err := s.sb.
		Select("pay_password_hash").
		From("wallets").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	var hash sql.NullString

	err = s.db.GetContext(ctx, &hash, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNoWallet
	}
	if err != nil {
		return fmt.Errorf("%s: can't get wallet: %v", fn, err)
	}

	if !hash.Valid || hash.String == "" {
		return storage.ErrBadPassword
	}

	if subtle.ConstantTimeCompare([]byte(hash.String), []byte(HashPassword(password))) != 1 {
		return storage.ErrBadPassword
	}

	return nil
}

// HashPassword is the storage representation of a payment password.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))

	return hex.EncodeToString(sum[:])
}
