package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/niksmo/dynamic-pricing/internal/core/port"
)

var _ port.PromotionStore = (*PromotionsRepository)(nil)

type PromotionsRepository struct {
	sqldb sqldb
}

func NewPromotionsRepository(sqldb sqldb) PromotionsRepository {
	return PromotionsRepository{sqldb}
}

func (r PromotionsRepository) ListPromotions(
	ctx context.Context,
) (ps []domain.EventPromotion, err error) {
	const op = "PromotionsRepository.ListPromotions"

	query := `
		SELECT
			event_id, event_name, start_date, end_date,
			affected_products, discount_rate
		FROM event_promotions
		ORDER BY start_date, event_id;`

	rows, err := r.sqldb.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%s: %w", op, closeErr)
		}
	}()

	for rows.Next() {
		var (
			v        domain.EventPromotion
			affected string
		)
		err := rows.Scan(
			&v.EventID, &v.EventName, &v.StartDate, &v.EndDate,
			&affected, &v.DiscountRate,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		v.AffectedProducts = SplitProductIDs(affected)
		ps = append(ps, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ps, nil
}

// SplitProductIDs parses a comma separated product list.
// Blank items are dropped.
func SplitProductIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
