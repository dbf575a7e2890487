package model

import "time"

// Customer is identified by a unique email.
type Customer struct {
	ID        int64
	Name      string
	Email     string
	CreatedAt time.Time
}
