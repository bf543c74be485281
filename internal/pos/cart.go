// Package pos is the in-memory core of the register: the cart, payment
// resolution against a total, and cash movement rules. It has no I/O; the
// service layer persists what it produces.
package pos

import (
	"github.com/floradistro/websitev2-sub001/internal/apierror"
	"github.com/floradistro/websitev2-sub001/internal/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the slice of a catalog product the cart needs.
type Product struct {
	ID        uuid.UUID
	Name      string
	UnitPrice money.Cents
}

// PriceOverride replaces the catalog price for a line, typically a promotion.
type PriceOverride struct {
	UnitPrice money.Cents
	Label     string
}

// CartLine is one product in the cart. LineTotal and Discount are derived and
// recomputed on every mutation.
type CartLine struct {
	ProductID      uuid.UUID
	ProductName    string
	UnitPrice      money.Cents
	Quantity       decimal.Decimal
	LineTotal      money.Cents
	OriginalPrice  *money.Cents
	Discount       money.Cents
	PromotionLabel string
}

func (l *CartLine) recompute() {
	l.LineTotal = l.UnitPrice.MulQuantity(l.Quantity)
	l.Discount = 0
	if l.OriginalPrice != nil && *l.OriginalPrice > l.UnitPrice {
		l.Discount = (*l.OriginalPrice).MulQuantity(l.Quantity) - l.LineTotal
	}
}

// clone returns a deep copy; OriginalPrice is the only pointer field.
func (l CartLine) clone() CartLine {
	if l.OriginalPrice != nil {
		p := *l.OriginalPrice
		l.OriginalPrice = &p
	}
	return l
}

// Totals is the cart priced at a tax rate.
type Totals struct {
	Subtotal money.Cents
	Discount money.Cents
	Tax      money.Cents
	Total    money.Cents
}

// Cart is the working set of lines for one register transaction. It is not
// safe for concurrent use; callers serialize access per register.
type Cart struct {
	lines []CartLine
}

func NewCart() *Cart { return &Cart{} }

func (c *Cart) index(productID uuid.UUID) int {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// AddItem appends a line or, when the product is already present, increases
// its quantity. A non-nil override reprices the line.
func (c *Cart) AddItem(p Product, qty decimal.Decimal, override *PriceOverride) error {
	if !qty.IsPositive() {
		return apierror.Validation("quantity must be greater than zero")
	}
	if p.UnitPrice < 0 {
		return apierror.Validation("unit price cannot be negative")
	}
	if override != nil && override.UnitPrice < 0 {
		return apierror.Validation("override price cannot be negative")
	}

	if i := c.index(p.ID); i >= 0 {
		line := &c.lines[i]
		line.Quantity = line.Quantity.Add(qty)
		if override != nil {
			applyOverride(line, p.UnitPrice, override)
		}
		line.recompute()
		return nil
	}

	line := CartLine{
		ProductID:   p.ID,
		ProductName: p.Name,
		UnitPrice:   p.UnitPrice,
		Quantity:    qty,
	}
	if override != nil {
		applyOverride(&line, p.UnitPrice, override)
	}
	line.recompute()
	c.lines = append(c.lines, line)
	return nil
}

func applyOverride(line *CartLine, catalogPrice money.Cents, o *PriceOverride) {
	line.UnitPrice = o.UnitPrice
	line.PromotionLabel = o.Label
	line.OriginalPrice = nil
	if o.UnitPrice != catalogPrice {
		orig := catalogPrice
		line.OriginalPrice = &orig
	}
}

// UpdateQuantity sets a line's quantity. Zero or negative removes the line.
func (c *Cart) UpdateQuantity(productID uuid.UUID, qty decimal.Decimal) {
	if !qty.IsPositive() {
		c.RemoveItem(productID)
		return
	}
	if i := c.index(productID); i >= 0 {
		c.lines[i].Quantity = qty
		c.lines[i].recompute()
	}
}

// RemoveItem drops the line for productID; absent products are a no-op.
func (c *Cart) RemoveItem(productID uuid.UUID) {
	if i := c.index(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

func (c *Cart) Clear() { c.lines = nil }

func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

func (c *Cart) Len() int { return len(c.lines) }

// Quantity returns the quantity in the cart for productID, zero if absent.
func (c *Cart) Quantity(productID uuid.UUID) decimal.Decimal {
	if i := c.index(productID); i >= 0 {
		return c.lines[i].Quantity
	}
	return decimal.Zero
}

// Lines returns a deep copy of the lines in insertion order.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	for i, l := range c.lines {
		out[i] = l.clone()
	}
	return out
}

func (c *Cart) Subtotal() money.Cents {
	var sum money.Cents
	for _, l := range c.lines {
		sum += l.LineTotal
	}
	return sum
}

// Tax is subtotal × rate, rounded half-up to the cent.
func (c *Cart) Tax(rate decimal.Decimal) money.Cents {
	return c.Subtotal().ApplyRate(rate)
}

func (c *Cart) Total(rate decimal.Decimal) money.Cents {
	return c.Subtotal() + c.Tax(rate)
}

func (c *Cart) Totals(rate decimal.Decimal) Totals {
	t := Totals{Subtotal: c.Subtotal(), Tax: c.Tax(rate)}
	t.Total = t.Subtotal + t.Tax
	for _, l := range c.lines {
		t.Discount += l.Discount
	}
	return t
}

// Restore puts a previously captured line back into the cart as-is,
// replacing any line for the same product.
func (c *Cart) Restore(line CartLine) {
	line = line.clone()
	line.recompute()
	if i := c.index(line.ProductID); i >= 0 {
		c.lines[i] = line
		return
	}
	c.lines = append(c.lines, line)
}
