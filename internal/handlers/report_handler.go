package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"shop-pos/internal/reports"

	"github.com/gin-gonic/gin"
)

// --- GET: /api/dashboard ---
func (h *Handler) GetDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.Reports.Dashboard(c.Request.Context()))
}

// --- GET: /api/reports/sales?from=&to= ---
func (h *Handler) GetSalesReport(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	sales, err := h.Reports.Sales(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	totals, err := h.Reports.Totals(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"totals": totals, "sales": sales})
}

// --- GET: /api/reports/daily?date= ---
func (h *Handler) GetDailyReport(c *gin.Context) {
	day, err := dateQuery(c, "date", time.Now())
	if err != nil {
		badRequest(c, "date must be YYYY-MM-DD")
		return
	}
	r, err := h.Reports.DailySummary(c.Request.Context(), day)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// monthQuery reads ?month=YYYY-MM, defaulting to the current month.
func monthQuery(c *gin.Context) (int, time.Month, bool) {
	v := c.Query("month")
	if v == "" {
		now := time.Now()
		return now.Year(), now.Month(), true
	}
	m, err := time.Parse("2006-01", v)
	if err != nil {
		badRequest(c, "month must be YYYY-MM")
		return 0, 0, false
	}
	return m.Year(), m.Month(), true
}

// --- GET: /api/reports/monthly?month= ---
func (h *Handler) GetMonthlyReport(c *gin.Context) {
	year, month, ok := monthQuery(c)
	if !ok {
		return
	}
	days, err := h.Reports.MonthlySummary(c.Request.Context(), year, month)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, days)
}

// --- GET: /api/reports/top-products?from=&to=&limit= ---
func (h *Handler) GetTopProducts(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	rows, err := h.Reports.TopProducts(c.Request.Context(), from, to, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// --- GET: /api/reports/valuation ---
// GetStockValuation calculates the total monetary value of all physical inventory
func (h *Handler) GetStockValuation(c *gin.Context) {
	v, err := h.Reports.StockValuation(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// --- GET: /api/reports/export?kind=sales|monthly|top|valuation ---
func (h *Handler) ExportReport(c *gin.Context) {
	kind := c.DefaultQuery("kind", "sales")
	table, ok := h.reportTable(c, kind)
	if !ok {
		return
	}
	name := fmt.Sprintf("%s_report_%s.xlsx", kind, time.Now().Format("20060102_150405"))
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := reports.ExportExcel(c.Writer, table); err != nil {
		respondError(c, err)
	}
}

func (h *Handler) reportTable(c *gin.Context, kind string) (reports.Table, bool) {
	ctx := c.Request.Context()
	switch kind {
	case "sales", "top":
		from, to, ok := dateRange(c)
		if !ok {
			return reports.Table{}, false
		}
		if kind == "sales" {
			sales, err := h.Reports.Sales(ctx, from, to)
			if err != nil {
				respondError(c, err)
				return reports.Table{}, false
			}
			return reports.SalesTable(sales), true
		}
		rows, err := h.Reports.TopProducts(ctx, from, to, 50)
		if err != nil {
			respondError(c, err)
			return reports.Table{}, false
		}
		return reports.TopProductsTable(rows), true
	case "monthly":
		year, month, ok := monthQuery(c)
		if !ok {
			return reports.Table{}, false
		}
		days, err := h.Reports.MonthlySummary(ctx, year, month)
		if err != nil {
			respondError(c, err)
			return reports.Table{}, false
		}
		return reports.MonthlyTable(days), true
	case "valuation":
		v, err := h.Reports.StockValuation(ctx)
		if err != nil {
			respondError(c, err)
			return reports.Table{}, false
		}
		return reports.ValuationTable(v), true
	}
	badRequest(c, "kind must be sales, monthly, top or valuation")
	return reports.Table{}, false
}
