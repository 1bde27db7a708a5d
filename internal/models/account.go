package models

// Address is a buyer's delivery address.
type Address struct {
	Model
	UserID        string `json:"user_id" gorm:"index;type:varchar(36);not null"`
	RecipientName string `json:"recipient_name" validate:"required,max=100"`
	Phone         string `json:"phone" validate:"required,max=32"`
	ZipCode       string `json:"zip_code" validate:"required,max=16"`
	Line1         string `json:"line1" validate:"required,max=255"`
	Line2         string `json:"line2" validate:"omitempty,max=255"`
}

// BankAccount is a seller's payout account. Sales keep a snapshot of it.
type BankAccount struct {
	Model
	UserID        string `json:"user_id" gorm:"index;type:varchar(36);not null"`
	BankName      string `json:"bank_name" validate:"required,max=64"`
	AccountNumber string `json:"account_number" validate:"required,max=64"`
	AccountHolder string `json:"account_holder" validate:"required,max=100"`
}
