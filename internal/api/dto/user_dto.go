package dto

// RegisterRequest payload for new users.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Team      string `json:"team"`
}

// Credentials are sent with every authenticated request.
type Credentials struct {
	Email    string `json:"email" query:"email"`
	Password string `json:"password" query:"password"`
}

// MessageResponse carries a human readable outcome.
type MessageResponse struct {
	Message string `json:"message"`
}
