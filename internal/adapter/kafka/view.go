package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lovoo/goka"
	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/niksmo/dynamic-pricing/internal/core/port"
	"github.com/niksmo/dynamic-pricing/pkg/schema"
)

var _ port.PublishedPriceReader = (*PriceView)(nil)

type viewGetter interface {
	Get(key string) (any, error)
}

// A PriceView reads the group table of [PriceViewProcessor].
type PriceView struct {
	gv     *goka.View
	getter viewGetter
}

func NewPriceView(
	seedBrokers []string,
	group string,
	priceChangedSerde Serde,
	opts ...goka.ViewOption,
) (PriceView, error) {
	const op = "NewPriceView"

	gv, err := goka.NewView(
		seedBrokers,
		goka.GroupTable(goka.Group(group)),
		newPriceChangedCodec(priceChangedSerde),
		opts...,
	)
	if err != nil {
		return PriceView{}, opErr(err, op)
	}

	return PriceView{gv: gv, getter: gv}, nil
}

func (v PriceView) Run(ctx context.Context) error {
	const op = "PriceView.Run"
	log := slog.With("op", op)

	log.Info("running")
	if err := v.gv.Run(ctx); err != nil {
		log.Error("unexpected fail on run", "err", err)
		return opErr(err, op)
	}
	log.Info("stopped")
	return nil
}

func (v PriceView) GetPublishedPrice(
	ctx context.Context, productID string,
) (domain.PriceChanged, error) {
	const op = "PriceView.GetPublishedPrice"

	if err := ctx.Err(); err != nil {
		return domain.PriceChanged{}, opErr(err, op)
	}

	value, err := v.getter.Get(productID)
	if err != nil {
		return domain.PriceChanged{}, opErr(
			fmt.Errorf("%w: %w", err, domain.ErrDependency), op,
		)
	}

	if value == nil {
		return domain.PriceChanged{}, opErr(
			fmt.Errorf("published price of %q: %w", productID, domain.ErrNotFound), op,
		)
	}

	s, ok := value.(schema.PriceChangedV1)
	if !ok {
		return domain.PriceChanged{}, opErr(
			fmt.Errorf("%w %T: %w", ErrInvalidValueType, value, domain.ErrDependency), op,
		)
	}

	e, err := schemaV1ToPriceChanged(s)
	if err != nil {
		return domain.PriceChanged{}, opErr(
			fmt.Errorf("%w: %w", err, domain.ErrDependency), op,
		)
	}
	return e, nil
}
