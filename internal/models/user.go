package models

// Cached user profile. Display purpose only
type User struct {
	ID        int64  `json:"uId"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Registration payload: user profile with password
type Registration struct {
	User
	Password string `json:"password"`
}

// Login payload
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
