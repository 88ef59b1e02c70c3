package queue

import "github.com/google/uuid"

// NewID returns a random unique identifier for a queue slot.
func NewID() string {
	return uuid.NewString()
}
