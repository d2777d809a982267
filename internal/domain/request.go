package domain

import "time"

// Request is something a user is looking for. Urgent requests are
// broadcast to every verified identity once approved.
type Request struct {
	ID          string    `json:"id" db:"id"`
	OwnerID     string    `json:"ownerId" db:"owner_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Budget      *float64  `json:"budget" db:"budget"`
	Urgent      bool      `json:"urgent" db:"urgent"`
	Status      Status    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type CreateRequestRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=4000"`
	Budget      *float64 `json:"budget" validate:"omitempty,gte=0"`
	Urgent      bool     `json:"urgent"`
}
