package user

// User is the authenticated principal carried by a session token.
type User struct {
	Username string `json:"username"`
	Id       string `json:"id"`
}
