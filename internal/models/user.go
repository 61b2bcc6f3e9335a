package models

// User is a registered account. The email doubles as the session identity.
type User struct {
	Email        string `bson:"email"`
	PasswordHash string `bson:"password_hash"`
}
