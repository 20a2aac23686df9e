package domain

type User struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	PhoneVerified bool   `json:"phoneVerified,omitempty"`
	Role          string `json:"role,omitempty"`
}

type AuthTokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// Session is the state of one browsing context. Cart is never nil-like: a
// guest session still owns an (empty) cart.
type Session struct {
	CurrentUser *User       `json:"currentUser,omitempty"`
	AuthTokens  *AuthTokens `json:"authTokens,omitempty"`
	Cart        Cart        `json:"cartItems"`
}

func NewSession() *Session {
	return &Session{Cart: EmptyCart()}
}

// Authenticated reports whether remote calls can be made on behalf of the session.
func (s *Session) Authenticated() bool {
	return s.AuthTokens != nil && s.AuthTokens.Access != ""
}

func (s *Session) AccessToken() string {
	if s.AuthTokens == nil {
		return ""
	}
	return s.AuthTokens.Access
}

func (s *Session) Clone() *Session {
	out := &Session{Cart: s.Cart.Clone()}
	if s.CurrentUser != nil {
		u := *s.CurrentUser
		out.CurrentUser = &u
	}
	if s.AuthTokens != nil {
		t := *s.AuthTokens
		out.AuthTokens = &t
	}
	return out
}
