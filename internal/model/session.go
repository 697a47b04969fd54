package model

// Session binds an opaque browser token to a user. It is resolved once
// per request from the session store and passed explicitly into service
// calls; a nil *Session means the caller is unauthenticated.
type Session struct {
	Token  string `json:"-"`
	UserID int64  `json:"user_id"`
	Rol    string `json:"rol"`
	Email  string `json:"email"`
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Rol == RolAdmin
}

func (s *Session) IsMedico() bool {
	return s != nil && s.Rol == RolMedico
}
