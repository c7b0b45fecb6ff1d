package models

import "time"

// The typed entities below mirror the remote wire documents field for
// field. Optional columns are pointers so absent values round-trip as
// JSON null rather than zero values.

type Vehicle struct {
	Meta
	VIN           string     `json:"vin"`
	Make          string     `json:"make"`
	Model         string     `json:"model"`
	Year          int        `json:"year"`
	PurchasePrice float64    `json:"purchase_price"`
	PurchaseDate  time.Time  `json:"purchase_date"`
	Status        string     `json:"status"`
	Notes         *string    `json:"notes,omitempty"`
	SalePrice     *float64   `json:"sale_price,omitempty"`
	SaleDate      *time.Time `json:"sale_date,omitempty"`
	PhotoURL      *string    `json:"photo_url,omitempty"`
	AskingPrice   *float64   `json:"asking_price,omitempty"`
	ReportURL     *string    `json:"report_url,omitempty"`
}

type Expense struct {
	Meta
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	VehicleID   *string   `json:"vehicle_id,omitempty"`
	UserID      *string   `json:"user_id,omitempty"`
	AccountID   *string   `json:"account_id,omitempty"`
}

type Sale struct {
	Meta
	VehicleID     string    `json:"vehicle_id"`
	Amount        float64   `json:"amount"`
	SalePrice     float64   `json:"sale_price"`
	Profit        float64   `json:"profit"`
	Date          time.Time `json:"date"`
	BuyerName     *string   `json:"buyer_name,omitempty"`
	BuyerPhone    *string   `json:"buyer_phone,omitempty"`
	PaymentMethod *string   `json:"payment_method,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
}

type Debt struct {
	Meta
	CounterpartyName  string     `json:"counterparty_name"`
	CounterpartyPhone *string    `json:"counterparty_phone,omitempty"`
	Direction         string     `json:"direction"`
	Amount            float64    `json:"amount"`
	Notes             *string    `json:"notes,omitempty"`
	DueDate           *time.Time `json:"due_date,omitempty"`
}

type DebtPayment struct {
	Meta
	DebtID        string    `json:"debt_id"`
	Amount        float64   `json:"amount"`
	Date          time.Time `json:"date"`
	Note          *string   `json:"note,omitempty"`
	PaymentMethod *string   `json:"payment_method,omitempty"`
	AccountID     *string   `json:"account_id,omitempty"`
}

type Client struct {
	Meta
	Name           string     `json:"name"`
	Phone          *string    `json:"phone,omitempty"`
	Email          *string    `json:"email,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	RequestDetails *string    `json:"request_details,omitempty"`
	PreferredDate  *time.Time `json:"preferred_date,omitempty"`
	Status         string     `json:"status"`
	VehicleID      *string    `json:"vehicle_id,omitempty"`
}

type ClientInteraction struct {
	Meta
	ClientID        string    `json:"client_id"`
	InteractionType string    `json:"interaction_type"`
	Date            time.Time `json:"date"`
	Notes           *string   `json:"notes,omitempty"`
}

type ClientReminder struct {
	Meta
	ClientID  string    `json:"client_id"`
	RemindAt  time.Time `json:"remind_at"`
	Message   string    `json:"message"`
	Completed bool      `json:"completed"`
}

type DealerUser struct {
	Meta
	Name string `json:"name"`
}

type FinancialAccount struct {
	Meta
	AccountType string  `json:"account_type"`
	Balance     float64 `json:"balance"`
}

type AccountTransaction struct {
	Meta
	AccountID       string    `json:"account_id"`
	TransactionType string    `json:"transaction_type"`
	Amount          float64   `json:"amount"`
	Date            time.Time `json:"date"`
	Note            *string   `json:"note,omitempty"`
}

type ExpenseTemplate struct {
	Meta
	Name               string   `json:"name"`
	Category           string   `json:"category"`
	DefaultDescription *string  `json:"default_description,omitempty"`
	DefaultAmount      *float64 `json:"default_amount,omitempty"`
}
