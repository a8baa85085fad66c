package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User model
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName  string             `bson:"fullname" json:"fullname"`
	Email     string             `bson:"email" json:"email"`
	Phone     string             `bson:"phone" json:"phone"`
	HPassword string             `bson:"password" json:"-"`
	// RecipientCodes caches gateway transfer-recipient codes keyed by
	// provider:phone so a payout to the same destination does not recreate
	// the recipient on the provider side.
	RecipientCodes map[string]string `bson:"recipient_codes,omitempty" json:"-"`
	CreatedAt      time.Time         `bson:"created_at" json:"created_at"`
}

// RecipientKey builds the cache key for a (provider, phone) destination.
func RecipientKey(provider, phone string) string {
	return provider + ":" + phone
}
