package jwtutil

// Token is the handle returned by a successful validation. It carries no
// claim accessors; holding one means the credential was verified.
type Token interface {
	isValidated()
}

// ValidatedToken is the concrete Token produced by JWTValidator.
type ValidatedToken struct {
	claims map[string]any
}

func (*ValidatedToken) isValidated() {}

// String never prints claim values.
func (t *ValidatedToken) String() string {
	if t == nil {
		return "ValidatedToken{}"
	}
	return "ValidatedToken{claims: ***REDACTED***}"
}
