package stockwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ibex-commerce/storefront/internal/catalog"
	kafkax "github.com/ibex-commerce/storefront/internal/kafka"
	"github.com/ibex-commerce/storefront/internal/redisx"
	"github.com/ibex-commerce/storefront/internal/shop"
)

// Service watches finalized orders and flags products whose stock has
// dropped to the replenishment threshold. It only reads; stock is
// mutated solely by the finalizer's commit.
type Service struct {
	Catalog     *catalog.Repo
	Redis       *redis.Client
	Log         *slog.Logger
	ServiceName string
	Threshold   int
}

// HandleOrderFinalized is wired as the consumer handler.
func (s *Service) HandleOrderFinalized(ctx context.Context, m kafkago.Message) error {
	var env shop.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != shop.EventOrderFinalized {
		return nil
	}

	// dedup via redis on event_id; redeliveries are expected
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafkax.UnwrapPayload[shop.OrderFinalizedPayload](env.Payload)
	if err != nil {
		return err
	}

	for _, it := range p.Items {
		prod, err := s.Catalog.GetProduct(ctx, it.ProductID)
		if err != nil {
			s.Log.Warn("product lookup failed", "product_id", it.ProductID, "err", err)
			continue
		}
		if prod.Stock <= s.Threshold {
			s.Log.Warn("low stock",
				"product_id", prod.ID, "name", prod.Name,
				"stock", prod.Stock, "threshold", s.Threshold,
				"order_code", p.OrderCode)
		}
	}
	return nil
}
