package models

import "github.com/shopspring/decimal"

func init() {
	// The backend reads prices as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type MenuItem struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	IsAvailable bool            `json:"is_available"`
}

// MenuItemCreate is the POST /menu/ body.
type MenuItemCreate struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	IsAvailable bool            `json:"is_available"`
}

// MenuItemUpdate is the PATCH /menu/{id} body; nil fields are left unchanged.
type MenuItemUpdate struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	IsAvailable *bool            `json:"is_available,omitempty"`
}

func (u MenuItemUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Price == nil && u.IsAvailable == nil
}
