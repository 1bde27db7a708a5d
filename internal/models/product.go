package models

// Product is a catalog entry, e.g. a sneaker model.
type Product struct {
	Model
	Name        string        `json:"name" gorm:"type:varchar(200)" validate:"required,min=2,max=200"`
	Brand       string        `json:"brand" gorm:"type:varchar(100)" validate:"required,max=100"`
	Description string        `json:"description" validate:"omitempty,max=500"`
	Variants    []ItemVariant `json:"variants,omitempty" gorm:"foreignKey:ProductID" validate:"dive"`
}

// ItemVariant is the tradable unit of a product (one size). Bids target a variant.
type ItemVariant struct {
	Model
	ProductID string `json:"product_id" gorm:"index;type:varchar(36)"`
	Size      string `json:"size" gorm:"type:varchar(32)" validate:"required,max=32"`
}
