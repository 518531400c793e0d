package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type TxType string

const (
	TxPurchase TxType = "purchase"
	TxSale     TxType = "sale"
	TxStock    TxType = "stock"
	TxPrestige TxType = "prestige"
)

// Transaction journals a spend or gain for audit and balance tuning.
// Amount is in the named currency, negative for debits.
type Transaction struct {
	ID        int64
	PlayerID  int64
	Type      TxType
	Currency  string
	Amount    float64
	Detail    *string
	CreatedAt time.Time
}

type TransactionStore struct {
	db *pgxpool.Pool
}

func NewTransactionStore(db *pgxpool.Pool) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Record(ctx context.Context, playerID int64, txType TxType, currency string, amount float64, detail *string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO transactions (player_id, type, currency, amount, detail) VALUES ($1, $2, $3, $4, $5)
	`, playerID, txType, currency, amount, detail)
	return err
}

func (s *TransactionStore) PlayerHistory(ctx context.Context, playerID int64, limit int) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, player_id, type, currency, amount, detail, created_at
		FROM transactions WHERE player_id = $1
		ORDER BY created_at DESC LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.PlayerID, &t.Type, &t.Currency, &t.Amount, &t.Detail, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
