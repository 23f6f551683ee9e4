package domain

import (
	"errors"
	"time"
)

var (
	ErrPatientNotFound = errors.New("patient not found")
	// ErrPatientExists is returned by the registry store when a concurrent
	// upload created the same patient name first.
	ErrPatientExists = errors.New("patient already exists")
)

// Patient is resolved by name. Demographics are fixed at creation.
type Patient struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	Sex       string    `json:"sex"`
	CreatedAt time.Time `json:"created_at"`
}
