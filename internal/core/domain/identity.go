package domain

// IdentityClass distinguishes permanently-identified users from ephemeral ones.
type IdentityClass string

const (
	// ClassAuthenticated identities are keyed by their normalized national
	// identifier (CPF) and always carry an email address.
	ClassAuthenticated IdentityClass = "authenticated"
	// ClassAnonymous identities are keyed by a generated identifier that is
	// never reused and carry no email.
	ClassAnonymous IdentityClass = "anonymous"
)

// Identity is the directory-facing record. It is constructed once from a
// validated request, persisted exactly once, and never updated or deleted
// by this service.
type Identity struct {
	// Key is the primary directory lookup key: the normalized CPF for
	// authenticated identities, a generated UUID for anonymous ones.
	Key         string        `json:"id"`
	DisplayName string        `json:"name"`
	Email       string        `json:"email,omitempty"`
	Class       IdentityClass `json:"type"`
}

// AuthTokens is the session-credential pair issued by the directory on a
// successful authentication.
type AuthTokens struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginUser is the user view returned alongside tokens on login.
type LoginUser struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Class IdentityClass `json:"type"`
}

// LoginResult is the outcome of a successful login of either class.
type LoginResult struct {
	Tokens AuthTokens `json:"tokens"`
	User   LoginUser  `json:"user"`
}
