package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Customer is a stored user record. PasswordHash and ResetTokenHash are
// credentials and must never leave the storage layer except through the
// auth service.
type Customer struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email" json:"email"`
	Phone          string             `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash   string             `bson:"passwordHash,omitempty" json:"-"`
	ResetTokenHash string             `bson:"resetTokenHash,omitempty" json:"-"`
	IsAdmin        bool               `bson:"isAdmin" json:"is_admin"`
	CreatedAt      time.Time          `bson:"createdAt" json:"created_at"`
}

// Contact is the credential-stripped view of a customer used for
// notifications and dashboard reads.
type Contact struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
	Phone string             `json:"phone,omitempty"`
}

// ContactView strips credential fields from a customer record.
func (c *Customer) ContactView() Contact {
	return Contact{
		ID:    c.ID,
		Name:  c.Name,
		Email: c.Email,
		Phone: c.Phone,
	}
}
