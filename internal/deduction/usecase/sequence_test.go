package usecase_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	adjdto "github.com/fekuna/omnipos-stock-service/internal/adjustment/dto"
	adjuc "github.com/fekuna/omnipos-stock-service/internal/adjustment/usecase"
	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/deduction/dto"
	"github.com/fekuna/omnipos-stock-service/internal/deduction/usecase"
	"github.com/fekuna/omnipos-stock-service/internal/events"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	"github.com/fekuna/omnipos-stock-service/internal/stock/stocktest"
	trfdto "github.com/fekuna/omnipos-stock-service/internal/transfer/dto"
	trfuc "github.com/fekuna/omnipos-stock-service/internal/transfer/usecase"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Seeded random mixes of Consume, Transfer and Adjust never leave a pool
// below zero; rejected operations fail only with a stock shortfall.
func TestMixedOperations_NoNegativePools(t *testing.T) {
	f := stocktest.New(t)
	log := logger.NewNop()
	pub := events.NewNopPublisher()

	lager, cider := f.Product("Lager", "30"), f.Product("Cider", "12")
	products := []*model.Product{lager, cider}
	bars := []*model.Bar{f.Bar("Terrace"), f.Bar("Lounge"), f.Bar("Roof")}
	for _, b := range bars {
		f.Stock(b, lager, "5")
		f.Stock(b, cider, "2")
	}

	rum, lime := f.Ingredient("Rum", "mL", "1000"), f.Ingredient("Lime", "unit", "30")
	daiquiri := f.Recipe("Daiquiri")
	f.RecipeLine(daiquiri, rum, "60")
	f.RecipeLine(daiquiri, lime, "1")
	drink := f.RecipeProduct("Daiquiri", daiquiri)
	shot := f.Product("Rum shot", "0")
	f.DirectLine(shot, rum, "40")
	composites := []*model.Product{drink, shot}
	ingredients := []*model.Ingredient{rum, lime}

	consume := usecase.NewDeductionUseCase(f.Store, log)
	transfer := trfuc.NewTransferUseCase(f.Store, stock.NewNopLocker(), pub, log)
	adjust := adjuc.NewAdjustmentUseCase(f.Store, stock.NewNopLocker(), pub, log)

	amount := func(rng *rand.Rand, max int) decimal.Decimal {
		return decimal.NewFromInt(int64(1 + rng.Intn(max)))
	}
	randomBar := func(rng *rand.Rand) string {
		if n := rng.Intn(len(bars) + 1); n < len(bars) {
			return bars[n].ID
		}
		return ""
	}
	rowID := func(barID, productID string) string {
		var id string
		require.NoError(t, f.Store.View(context.Background(), func(ctx context.Context, tx stock.Tx) error {
			row, err := tx.FindInventory(ctx, barID, productID)
			if row != nil {
				id = row.ID
			}
			return err
		}))
		return id
	}

	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	var applied, rejected int
	for i := 0; i < 600; i++ {
		p := products[rng.Intn(len(products))]

		var err error
		op := rng.Intn(5)
		switch op {
		case 0:
			_, err = consume.Consume(ctx, &dto.ConsumeInput{ProductID: p.ID, BarID: randomBar(rng), Quantity: 1 + rng.Intn(4)})
		case 1:
			c := composites[rng.Intn(len(composites))]
			_, err = consume.Consume(ctx, &dto.ConsumeInput{ProductID: c.ID, BarID: randomBar(rng), Quantity: 1 + rng.Intn(3)})
		case 2:
			from := randomBar(rng)
			var dests []string
			for _, n := range rng.Perm(len(bars) + 1)[:1+rng.Intn(3)] {
				dest := trfdto.GeneralStock
				if n < len(bars) {
					dest = bars[n].ID
				}
				if dest == from || (from == "" && dest == trfdto.GeneralStock) {
					continue
				}
				dests = append(dests, dest)
			}
			if len(dests) == 0 {
				continue
			}
			_, err = transfer.Transfer(ctx, &trfdto.TransferInput{ProductID: p.ID, FromBarID: from, Destinations: dests, Amount: amount(rng, 4)})
		case 3:
			input := &adjdto.AdjustInput{Kind: model.AdjustmentLoss, ProductID: p.ID, Amount: amount(rng, 4), Reason: "breakage"}
			if bar := randomBar(rng); bar != "" {
				if id := rowID(bar, p.ID); id != "" {
					input.InventoryID, input.ProductID = id, ""
				}
			}
			_, err = adjust.Adjust(ctx, input)
		case 4:
			input := &adjdto.AdjustInput{Kind: model.AdjustmentReentry, ProductID: p.ID, Amount: amount(rng, 3)}
			if rng.Intn(2) == 0 {
				input.DestinationBarIDs = []string{bars[rng.Intn(len(bars))].ID}
			}
			_, err = adjust.Adjust(ctx, input)
		}

		if err != nil {
			require.True(t,
				errors.Is(err, apperror.ErrInsufficientStock) || errors.Is(err, apperror.ErrInsufficientIngredientStock),
				"step %d (op %d): unexpected error %v", i, op, err)
			rejected++
		} else {
			applied++
		}

		for _, prod := range append(products, composites...) {
			require.False(t, f.Qty(model.GeneralStock(prod.ID)).IsNegative(), "step %d: general stock of %s", i, prod.Name)
			for _, b := range bars {
				require.False(t, f.Qty(model.BarInventoryPool(b.ID, prod.ID)).IsNegative(), "step %d: %s at %s", i, prod.Name, b.Name)
			}
		}
		for _, ing := range ingredients {
			require.False(t, f.Qty(model.IngredientStock(ing.ID)).IsNegative(), "step %d: %s stock", i, ing.Name)
		}
	}

	require.Positive(t, applied)
	require.Positive(t, rejected)
}
