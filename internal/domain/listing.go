package domain

import "time"

// Status is the moderation state of a listing or request.
// Rejection is modelled as deletion, so only two states are ever stored.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

// Listing is an item a user offers for sale or exchange.
type Listing struct {
	ID          string    `json:"id" db:"id"`
	OwnerID     string    `json:"ownerId" db:"owner_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Price       float64   `json:"price" db:"price"`
	Condition   string    `json:"condition" db:"condition"`
	ImageKey    *string   `json:"-" db:"image_key"`
	HasImage    bool      `json:"hasImage" db:"-"`
	Status      Status    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type CreateListingRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=4000"`
	Price       float64 `json:"price" validate:"gte=0"`
	Condition   string  `json:"condition" validate:"max=60"`
}
