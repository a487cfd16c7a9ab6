package model

type Identity struct {
	Username string `json:"username"`
}

// Session is the process-wide authentication state. Identity is nil whenever
// Token is empty.
type Session struct {
	Token    string    `json:"token,omitempty"`
	Identity *Identity `json:"identity,omitempty"`
}

func (s Session) Authenticated() bool {
	return s.Token != ""
}
