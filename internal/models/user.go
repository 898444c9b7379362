package models

// User, an account that can sign in to the dashboard.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

// Store, the shop owned by a user. Every product and invoice hangs off a store.
type Store struct {
	ID      int64  `json:"id"`
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Contact string `json:"contact"`
}

// LoginForm, the sign-in form.
type LoginForm struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required,min=6"`
}
