package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"fleamarket-backend/internal/apperr"
	"fleamarket-backend/internal/model"
	"fleamarket-backend/internal/repository"

	"github.com/shopspring/decimal"
)

const snapshotPriceKey = "negotiated_price"

// PriceResolver derives the authoritative sale price for a confirm request.
// Precedence: explicit final price on the request, then the negotiated price
// inside the payload snapshot, then the live listing price. An invalid
// NullDecimal means no source yielded a value; callers must not treat that
// as zero until the point of settlement.
type PriceResolver struct {
	items repository.ItemRepository
}

func NewPriceResolver(items repository.ItemRepository) *PriceResolver {
	return &PriceResolver{
		items: items,
	}
}

func (p *PriceResolver) ResolveFinalPrice(ctx context.Context, req *model.ConfirmRequest) (decimal.NullDecimal, error) {
	if req.FinalPrice.Valid {
		return req.FinalPrice, nil
	}

	if price, ok := snapshotPrice(req.PayloadSnapshot); ok {
		return decimal.NullDecimal{Decimal: price, Valid: true}, nil
	}

	item, err := p.items.GetByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return decimal.NullDecimal{}, nil
		}
		return decimal.NullDecimal{}, fmt.Errorf("lookup listing price: %w", err)
	}

	return decimal.NullDecimal{Decimal: item.Price, Valid: true}, nil
}

// snapshotPrice pulls negotiated_price out of the snapshot blob. The value
// may arrive as a JSON number or a numeric string; null and malformed
// values are skipped so the next precedence level applies.
func snapshotPrice(snapshot json.RawMessage) (decimal.Decimal, bool) {
	if len(snapshot) == 0 {
		return decimal.Decimal{}, false
	}

	dec := json.NewDecoder(bytes.NewReader(snapshot))
	dec.UseNumber()

	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		return decimal.Decimal{}, false
	}

	switch v := payload[snapshotPriceKey].(type) {
	case json.Number:
		price, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Decimal{}, false
		}
		return price, true
	case string:
		price, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return price, true
	default:
		return decimal.Decimal{}, false
	}
}
