package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Roles
const (
	RoleAdmin   = "Admin"
	RoleCashier = "Cashier"
)

// Payment methods
const (
	PaymentCash          = "Cash"
	PaymentUdhaar        = "Udhaar"
	PaymentPartialUdhaar = "Partial Udhaar"
)

// WalkInCustomerID is the reserved anonymous cash customer. It never carries a balance.
const WalkInCustomerID uint = 1

// User - cashier or admin operating the till
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:100" json:"name"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email        string    `gorm:"size:100" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"` // Never return this in JSON
	Role         string    `gorm:"size:20;not null" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Product - The Inventory
type Product struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"index;not null" json:"name"`
	Category      string          `gorm:"index" json:"category"`
	Description   string          `json:"description"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"purchase_price"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"selling_price"`
	StockQuantity int             `gorm:"not null;default:0" json:"stock_quantity"`
	MinStockLevel int             `gorm:"not null;default:0" json:"min_stock_level"`
	SupplierID    *uint           `gorm:"index" json:"supplier_id"`
	Supplier      *Supplier       `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	DateAdded     datatypes.Date  `json:"date_added"`
}

// IsLowStock is computed at read time, never stored.
func (p Product) IsLowStock() bool { return p.StockQuantity <= p.MinStockLevel }

// Customer - buyer account; Balance is the outstanding udhaar.
type Customer struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"index;not null" json:"name"`
	Phone     string          `gorm:"size:30" json:"phone"`
	Address   string          `json:"address"`
	Balance   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// Supplier - contact metadata referenced optionally by Product
type Supplier struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"not null" json:"name"`
	ContactPerson string    `json:"contact_person"`
	Phone         string    `gorm:"size:30" json:"phone"`
	Email         string    `json:"email"`
	Address       string    `json:"address"`
	CreatedAt     time.Time `json:"created_at"`
}

// Sale - The Transaction Header. Immutable once written.
type Sale struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CustomerID    uint            `gorm:"index;not null" json:"customer_id"`
	Customer      *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	UserID        uint            `gorm:"index;not null" json:"user_id"` // Who processed it
	User          *User           `gorm:"foreignKey:UserID" json:"cashier,omitempty"`
	SaleDate      time.Time       `gorm:"index;not null" json:"sale_date"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Discount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount"`
	Tax           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"tax"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	PaymentMethod string          `gorm:"size:20;not null" json:"payment_method"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount_paid"` // cash handed over
	ChangeGiven   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"change_given"`
	UdhaarAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"udhaar_amount"`
	Status        string          `gorm:"size:20;not null;default:'completed'" json:"status"`
	Items         []SaleItem      `gorm:"foreignKey:SaleID" json:"items,omitempty"`
}

// SaleItem - one product line; UnitPrice is a snapshot of the price at time of sale
type SaleItem struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	SaleID     uint            `gorm:"index;not null" json:"sale_id"`
	ProductID  uint            `gorm:"index;not null" json:"product_id"`
	Product    *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`
}

// UdhaarPayment - append-only credit repayment
type UdhaarPayment struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CustomerID  uint            `gorm:"index;not null" json:"customer_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaymentDate time.Time       `gorm:"not null" json:"payment_date"`
	RecordedBy  uint            `json:"recorded_by"`
	Notes       string          `json:"notes"`
}

// UserActivity - append-only audit trail. UserID 0 is the system.
type UserActivity struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index" json:"user_id"`
	Action      string    `gorm:"size:50;index" json:"action"`
	Description string    `json:"description"`
	Timestamp   time.Time `gorm:"index" json:"timestamp"`
}

// Setting - shop configuration key/value
type Setting struct {
	Key   string `gorm:"primaryKey;size:100" json:"key"`
	Value string `json:"value"`
}

// All lists every table in creation order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Supplier{},
		&Product{},
		&Customer{},
		&Sale{},
		&SaleItem{},
		&UdhaarPayment{},
		&UserActivity{},
		&Setting{},
	}
}
