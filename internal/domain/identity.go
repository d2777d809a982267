package domain

import "time"

// Identity is a registered campus user. Email is stored lower-cased and is
// the key the admin allowlist matches against.
type Identity struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	PhoneNumber  *string   `json:"phoneNumber" db:"phone_number"`
	Department   string    `json:"department" db:"department"`
	AcademicYear string    `json:"academicYear" db:"academic_year"`
	Hostel       string    `json:"hostel" db:"hostel"`
	Verified     bool      `json:"verified" db:"verified"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

type RegisterRequest struct {
	Name         string  `json:"name" validate:"required,max=120"`
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required,min=8,max=72"`
	PhoneNumber  *string `json:"phoneNumber" validate:"omitempty,e164"`
	Department   string  `json:"department" validate:"max=120"`
	AcademicYear string  `json:"academicYear" validate:"max=20"`
	Hostel       string  `json:"hostel" validate:"max=120"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"otp" validate:"required,len=6,numeric"`
}

type ResendCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}
