// Package api is the outbound REST adapter for the storefront backend.
//
// The backend contract is fixed and external: auth endpoints return an
// opaque bearer token plus a display name, the cart endpoint speaks full
// replacements and per-product patches, and the wishlist endpoint is
// per-action add/remove. All authenticated calls carry
// "Authorization: Bearer <token>".
package api

// credentialsRequest is the body for POST /auth/login.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signupRequest is the body for POST /auth/signup.
type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is the success payload of the login and signup endpoints.
type AuthResponse struct {
	// Token is the opaque bearer token for subsequent calls.
	Token string `json:"token"`

	// Name is the display name of the account.
	Name string `json:"name"`

	// Message is an optional human-readable status from the backend.
	Message string `json:"message,omitempty"`
}

// emailRequest is the body for POST /auth/forgot-password.
type emailRequest struct {
	Email string `json:"email"`
}

// otpRequest is the body for POST /auth/verify-otp.
type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// resetPasswordRequest is the body for POST /auth/reset-password.
type resetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

// statusResponse is the generic success marker returned by the password
// reset endpoints.
type statusResponse struct {
	Message string `json:"message,omitempty"`
}

// CartEntry is one line of the full-replacement body for POST /cart.
type CartEntry struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
}

// ServerCartItem is one entry of the GET /cart response: a nested product
// plus the size and quantity chosen by the user. The server cart has no
// color dimension.
type ServerCartItem struct {
	Product  ServerProduct `json:"product"`
	Size     string        `json:"size"`
	Quantity int           `json:"quantity"`
}

// ServerProduct is the nested product payload inside a server cart entry.
type ServerProduct struct {
	ID                string  `json:"_id"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	Image             string  `json:"image"`
	AvailableQuantity int     `json:"availableQuantity"`
	Weight            float64 `json:"weight"`
}

// cartResponse is the GET /cart payload.
type cartResponse struct {
	Items []ServerCartItem `json:"items"`
}

// replaceCartRequest is the body for POST /cart (full replacement).
type replaceCartRequest struct {
	Items []CartEntry `json:"items"`
}

// quantityPatch is the body for PATCH /cart/:productId.
type quantityPatch struct {
	Quantity int `json:"quantity"`
}

// wishlistRequest is the body for POST /wishlist/add.
type wishlistRequest struct {
	ProductID string `json:"productId"`
}
