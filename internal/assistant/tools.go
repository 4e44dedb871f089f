package assistant

import (
	"context"
	"fmt"
	"time"

	"shop-pos/internal/customers"
	"shop-pos/internal/inventory"
	"shop-pos/internal/reports"

	"github.com/shopspring/decimal"
)

// Tools are the services the model may call.
type Tools struct {
	Inventory *inventory.Service
	Reports   *reports.Service
	Customers *customers.Service
}

type productView struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Cost     float64 `json:"cost"`
	Stock    int     `json:"stock"`
	LowStock bool    `json:"low_stock"`
}

// run executes one tool call. Failures go back to the model as {"error": ...}
// so it can explain them rather than aborting the conversation.
func (t *Tools) run(ctx context.Context, userID uint, name string, args map[string]interface{}) map[string]interface{} {
	out, err := t.dispatch(ctx, userID, name, args)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	return out
}

func (t *Tools) dispatch(ctx context.Context, userID uint, name string, args map[string]interface{}) (map[string]interface{}, error) {
	switch name {
	case "check_inventory":
		search, _ := args["search"].(string)
		products, err := t.Inventory.FindByName(ctx, search)
		if err != nil {
			return nil, err
		}
		views := make([]productView, len(products))
		for i, p := range products {
			views[i] = productView{
				ID:       p.ID,
				Name:     p.Name,
				Category: p.Category,
				Price:    p.SellingPrice.InexactFloat64(),
				Cost:     p.PurchasePrice.InexactFloat64(),
				Stock:    p.StockQuantity,
				LowStock: p.IsLowStock(),
			}
		}
		return map[string]interface{}{"inventory": views}, nil

	case "low_stock":
		products, err := t.Inventory.LowStock(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]map[string]interface{}, len(products))
		for i, p := range products {
			items[i] = map[string]interface{}{"id": p.ID, "name": p.Name, "stock": p.StockQuantity, "min_stock_level": p.MinStockLevel}
		}
		return map[string]interface{}{"low_stock": items}, nil

	case "get_sales_report":
		start, err1 := time.ParseInLocation("2006-01-02", fmt.Sprint(args["start_date"]), time.Local)
		end, err2 := time.ParseInLocation("2006-01-02", fmt.Sprint(args["end_date"]), time.Local)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("dates must be in YYYY-MM-DD format")
		}
		totals, err := t.Reports.Totals(ctx, start, end)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"revenue":     totals.TotalRevenue.InexactFloat64(),
			"udhaar":      totals.TotalCredit.InexactFloat64(),
			"sales_count": totals.TotalCount,
		}, nil

	case "customer_balances":
		debtors, err := t.Customers.Debtors(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]map[string]interface{}, len(debtors))
		for i, c := range debtors {
			items[i] = map[string]interface{}{"id": c.ID, "name": c.Name, "phone": c.Phone, "balance": c.Balance.InexactFloat64()}
		}
		return map[string]interface{}{"customers": items}, nil

	case "update_selling_price":
		id, ok1 := number(args["product_id"])
		price, ok2 := number(args["new_price"])
		if !ok1 || !ok2 || id <= 0 {
			return nil, fmt.Errorf("product_id and new_price are required numbers")
		}
		p, err := t.Inventory.SetSellingPrice(ctx, userID, uint(id), decimal.NewFromFloat(price))
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"status": "Success", "name": p.Name, "new_price": p.SellingPrice.InexactFloat64()}, nil
	}
	return nil, fmt.Errorf("unknown tool %q", name)
}

// number reads a JSON number the way the SDK decodes it (float64), tolerating ints.
func number(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}
