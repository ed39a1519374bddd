package model

import "time"

// Customer buys, borrows, or sends units in for repair.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Supplier is where a unit was purchased from.
type Supplier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Category groups product models and decides which identifiers a unit needs.
type Category struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	RequiresSerial bool      `json:"requires_serial"`
	RequiresMAC    bool      `json:"requires_mac"`
	CreatedAt      time.Time `json:"created_at"`
}

// ProductModel is a product line (brand + model) with its selling price.
type ProductModel struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Brand        string    `json:"brand,omitempty"`
	CategoryID   int64     `json:"category_id"`
	SellingPrice float64   `json:"selling_price"`
	ImageMime    string    `json:"image_mime,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	CategoryName   string `json:"category_name,omitempty"`
	RequiresSerial bool   `json:"requires_serial"`
	RequiresMAC    bool   `json:"requires_mac"`
}
