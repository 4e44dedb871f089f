package billing

import (
	"context"
	"fmt"

	"shop-pos/internal/models"

	"github.com/shopspring/decimal"
)

// ProductLookup reads the current stock and price of one product.
type ProductLookup interface {
	Product(ctx context.Context, id uint) (*models.Product, error)
}

// Line is one product in an in-progress sale.
type Line struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

// Totals is always derived from the current lines, never cached.
type Totals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

// Cart accumulates the sale being rung up. It is not safe for concurrent use;
// Registry serializes access for the HTTP shell.
type Cart struct {
	lookup     ProductLookup
	lines      []Line
	customerID uint
	discount   decimal.Decimal
	tax        decimal.Decimal
}

func NewCart(lookup ProductLookup) *Cart {
	return &Cart{lookup: lookup, customerID: models.WalkInCustomerID}
}

// Add looks up live stock and price and merges qty into the cart. The combined
// quantity may not exceed the stock on hand.
func (c *Cart) Add(ctx context.Context, productID uint, qty int) (Line, error) {
	if qty <= 0 {
		return Line{}, ErrInvalidQuantity
	}
	p, err := c.lookup.Product(ctx, productID)
	if err != nil {
		return Line{}, err
	}
	if p.StockQuantity <= 0 {
		return Line{}, fmt.Errorf("%w: '%s' is out of stock", ErrInsufficientStock, p.Name)
	}

	for i := range c.lines {
		l := &c.lines[i]
		if l.ProductID != productID {
			continue
		}
		if l.Quantity+qty > p.StockQuantity {
			return Line{}, fmt.Errorf("%w: cannot add %d more '%s', only %d in stock", ErrInsufficientStock, qty, p.Name, p.StockQuantity)
		}
		l.Quantity += qty
		l.Total = lineTotal(l.UnitPrice, l.Quantity)
		return *l, nil
	}

	if qty > p.StockQuantity {
		return Line{}, fmt.Errorf("%w: '%s' has only %d in stock", ErrInsufficientStock, p.Name, p.StockQuantity)
	}
	l := Line{
		ProductID: p.ID,
		Name:      p.Name,
		Quantity:  qty,
		UnitPrice: p.SellingPrice,
		Total:     lineTotal(p.SellingPrice, qty),
	}
	c.lines = append(c.lines, l)
	return l, nil
}

// SetQuantity replaces a line's quantity after re-checking stock. Zero removes the line.
func (c *Cart) SetQuantity(ctx context.Context, productID uint, qty int) error {
	if qty < 0 {
		return ErrInvalidQuantity
	}
	if qty == 0 {
		c.Remove(productID)
		return nil
	}
	for i := range c.lines {
		l := &c.lines[i]
		if l.ProductID != productID {
			continue
		}
		p, err := c.lookup.Product(ctx, productID)
		if err != nil {
			return err
		}
		if qty > p.StockQuantity {
			return fmt.Errorf("%w: '%s' has only %d in stock", ErrInsufficientStock, p.Name, p.StockQuantity)
		}
		l.Quantity = qty
		l.Total = lineTotal(l.UnitPrice, qty)
		return nil
	}
	return ErrLineNotFound
}

// Remove drops a line. It reports whether the product was in the cart.
func (c *Cart) Remove(productID uint) bool {
	for i, l := range c.lines {
		if l.ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Cart) SetDiscount(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrNegativeAdjustment
	}
	c.discount = d.Round(2)
	return nil
}

func (c *Cart) SetTax(t decimal.Decimal) error {
	if t.IsNegative() {
		return ErrNegativeAdjustment
	}
	c.tax = t.Round(2)
	return nil
}

func (c *Cart) SetCustomer(id uint) {
	if id == 0 {
		id = models.WalkInCustomerID
	}
	c.customerID = id
}

func (c *Cart) CustomerID() uint { return c.customerID }

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Totals() Totals {
	return computeTotals(c.lines, c.discount, c.tax)
}

func (c *Cart) Empty() bool { return len(c.lines) == 0 }

// Clear resets the cart for the next customer.
func (c *Cart) Clear() {
	c.lines = nil
	c.discount = decimal.Zero
	c.tax = decimal.Zero
	c.customerID = models.WalkInCustomerID
}

func lineTotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

// computeTotals: total = sum(line totals) - discount + tax
func computeTotals(lines []Line, discount, tax decimal.Decimal) Totals {
	t := Totals{Subtotal: decimal.Zero, Discount: discount, Tax: tax}
	for _, l := range lines {
		t.Subtotal = t.Subtotal.Add(lineTotal(l.UnitPrice, l.Quantity))
		t.ItemCount += l.Quantity
	}
	t.Total = t.Subtotal.Sub(discount).Add(tax).Round(2)
	return t
}
