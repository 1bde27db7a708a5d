package models

// Roles recognised by the marketplace.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents a buyer and/or seller account.
type User struct {
	Model
	Username string `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	Email    string `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password string `json:"password,omitempty" gorm:"type:varchar(255)" validate:"required,min=6"`
	Role     string `json:"role" gorm:"type:varchar(16);default:USER"`
}
