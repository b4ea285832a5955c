package favorites

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Favorite struct {
	EventID   string `json:"event_id"`
	EventName string `json:"event_name"`
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) List(ctx context.Context, accountID string) ([]Favorite, error) {
	rows, err := s.pool.Query(ctx,
		"select event_id, event_name from favorites where account_id = $1 order by created_at desc",
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Favorite
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.EventID, &f.EventName); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Add upserts; re-favoriting refreshes the stored event name.
func (s *Store) Add(ctx context.Context, accountID, eventID, eventName string) error {
	_, err := s.pool.Exec(ctx, `
		insert into favorites (account_id, event_id, event_name)
		values ($1, $2, $3)
		on conflict (account_id, event_id) do update set event_name = excluded.event_name
	`, accountID, eventID, eventName)
	return err
}

func (s *Store) Remove(ctx context.Context, accountID, eventID string) error {
	_, err := s.pool.Exec(ctx,
		"delete from favorites where account_id = $1 and event_id = $2",
		accountID, eventID)
	return err
}
