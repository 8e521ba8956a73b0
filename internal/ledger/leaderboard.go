package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Leader is one leaderboard line
type Leader struct {
	UserID   uint            `json:"user_id"`
	Name     string          `json:"name"`
	GameName string          `json:"game_name"`
	Total    decimal.Decimal `json:"total"`
}

// Leaderboard groups the three rankings shown to players
type Leaderboard struct {
	Killers []Leader `json:"killers"`
	Winners []Leader `json:"winners"`
	Earners []Leader `json:"earners"`
}

// Leaderboard ranks users by total kills, wins and prize money
func (s *Store) Leaderboard(ctx context.Context, limit int) (*Leaderboard, error) {
	var (
		lb  Leaderboard
		err error
	)
	if lb.Killers, err = s.rank(ctx, "SUM(r.kills)", "", limit); err != nil {
		return nil, err
	}
	if lb.Winners, err = s.rank(ctx, "COUNT(*)", "r.position = 1", limit); err != nil {
		return nil, err
	}
	if lb.Earners, err = s.rank(ctx, "SUM(r.total_reward)", "", limit); err != nil {
		return nil, err
	}
	return &lb, nil
}

func (s *Store) rank(ctx context.Context, agg, where string, limit int) ([]Leader, error) {
	q := s.db.WithContext(ctx).
		Table("tournament_results AS r").
		Select("r.user_id AS user_id, u.name AS name, u.game_name AS game_name, " + agg + " AS total").
		Joins("JOIN users u ON u.id = r.user_id")
	if where != "" {
		q = q.Where(where)
	}
	var out []Leader
	err := q.Group("r.user_id, u.name, u.game_name").
		Having(agg + " > 0").
		Order("total DESC, r.user_id").
		Limit(limit).
		Scan(&out).Error
	return out, err
}
