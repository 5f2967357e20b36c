package chessdto

type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

type OnlineUser struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}
