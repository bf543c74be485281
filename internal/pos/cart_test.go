package pos_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/floradistro/websitev2-sub001/internal/apierror"
	"github.com/floradistro/websitev2-sub001/internal/money"
	"github.com/floradistro/websitev2-sub001/internal/pos"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func product(name, price string) pos.Product {
	return pos.Product{ID: uuid.New(), Name: name, UnitPrice: money.MustParse(price)}
}

func TestCart_ScenarioTotals(t *testing.T) {
	a := product("Blue Dream 3.5g", "25.00")
	b := product("Pre-roll", "10.00")

	cart := pos.NewCart()
	require.NoError(t, cart.AddItem(a, qty("2"), nil))
	require.NoError(t, cart.AddItem(b, qty("1"), nil))

	rate := qty("0.08")
	assert.Equal(t, "60.00", cart.Subtotal().String())
	assert.Equal(t, "4.80", cart.Tax(rate).String())
	assert.Equal(t, "64.80", cart.Total(rate).String())
}

func TestCart_AddItem_MergesSameProduct(t *testing.T) {
	a := product("Gummies", "12.50")
	cart := pos.NewCart()
	require.NoError(t, cart.AddItem(a, qty("1"), nil))
	require.NoError(t, cart.AddItem(a, qty("2"), nil))

	lines := cart.Lines()
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Quantity.Equal(qty("3")))
	assert.Equal(t, "37.50", lines[0].LineTotal.String())
}

func TestCart_AddItem_RejectsNonPositiveQuantity(t *testing.T) {
	cart := pos.NewCart()
	for _, q := range []string{"0", "-1"} {
		err := cart.AddItem(product("x", "1.00"), qty(q), nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apierror.ErrValidation))
	}
	assert.True(t, cart.IsEmpty())
}

func TestCart_FractionalQuantity(t *testing.T) {
	flower := product("Flower by the gram", "9.99")
	cart := pos.NewCart()
	require.NoError(t, cart.AddItem(flower, qty("3.5"), nil))
	// 9.99 × 3.5 = 34.965 → 34.97
	assert.Equal(t, "34.97", cart.Subtotal().String())
}

func TestCart_UpdateQuantity(t *testing.T) {
	a := product("A", "5.00")
	b := product("B", "2.00")
	cart := pos.NewCart()
	require.NoError(t, cart.AddItem(a, qty("1"), nil))
	require.NoError(t, cart.AddItem(b, qty("1"), nil))

	cart.UpdateQuantity(a.ID, qty("4"))
	assert.Equal(t, "22.00", cart.Subtotal().String())

	cart.UpdateQuantity(a.ID, qty("0"))
	assert.Equal(t, 1, cart.Len())
	assert.True(t, cart.Quantity(a.ID).IsZero())

	cart.UpdateQuantity(b.ID, qty("-3"))
	assert.True(t, cart.IsEmpty())
}

func TestCart_RemoveAbsentIsNoop(t *testing.T) {
	cart := pos.NewCart()
	require.NoError(t, cart.AddItem(product("A", "1.00"), qty("1"), nil))
	cart.RemoveItem(uuid.New())
	assert.Equal(t, 1, cart.Len())
	cart.Clear()
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, money.Zero, cart.Subtotal())
}

func TestCart_PriceOverrideTracksDiscount(t *testing.T) {
	a := product("Vape cart", "40.00")
	cart := pos.NewCart()
	require.NoError(t, cart.AddItem(a, qty("2"), &pos.PriceOverride{UnitPrice: money.MustParse("30.00"), Label: "Happy hour"}))

	lines := cart.Lines()
	require.Len(t, lines, 1)
	l := lines[0]
	require.NotNil(t, l.OriginalPrice)
	assert.Equal(t, "40.00", l.OriginalPrice.String())
	assert.Equal(t, "60.00", l.LineTotal.String())
	assert.Equal(t, "20.00", l.Discount.String())
	assert.Equal(t, "Happy hour", l.PromotionLabel)

	totals := cart.Totals(decimal.Zero)
	assert.Equal(t, "20.00", totals.Discount.String())
	assert.Equal(t, "60.00", totals.Total.String())
}

func TestCart_LinesAreDeepCopies(t *testing.T) {
	a := product("A", "40.00")
	cart := pos.NewCart()
	require.NoError(t, cart.AddItem(a, qty("1"), &pos.PriceOverride{UnitPrice: money.MustParse("35.00")}))

	snapshot := cart.Lines()
	cart.UpdateQuantity(a.ID, qty("5"))
	cart.Clear()

	require.Len(t, snapshot, 1)
	assert.True(t, snapshot[0].Quantity.Equal(qty("1")))
	assert.Equal(t, "35.00", snapshot[0].LineTotal.String())
	*snapshot[0].OriginalPrice = 1
	assert.True(t, cart.IsEmpty())
}

// Subtotal always equals the sum of unit price × quantity over the lines.
func TestCart_SubtotalMatchesLines_RandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	products := []pos.Product{
		product("A", "25.00"), product("B", "10.00"), product("C", "0.99"), product("D", "13.37"),
	}
	quantities := []string{"1", "2", "0.5", "1.25", "3", "0", "-1"}

	for run := 0; run < 50; run++ {
		cart := pos.NewCart()
		for step := 0; step < 40; step++ {
			p := products[rng.Intn(len(products))]
			q := qty(quantities[rng.Intn(len(quantities))])
			switch rng.Intn(3) {
			case 0:
				_ = cart.AddItem(p, q, nil)
			case 1:
				cart.UpdateQuantity(p.ID, q)
			default:
				cart.RemoveItem(p.ID)
			}

			var want money.Cents
			for _, l := range cart.Lines() {
				assert.Equal(t, l.UnitPrice.MulQuantity(l.Quantity), l.LineTotal)
				want += l.UnitPrice.MulQuantity(l.Quantity)
			}
			require.Equal(t, want, cart.Subtotal())
		}
	}
}
