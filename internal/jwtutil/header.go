package jwtutil

import (
	"errors"

	"github.com/lestrrat-go/jwx/v2/jws"
)

// TokenHeader is the unverified JOSE header of a compact token.
type TokenHeader struct {
	KeyID     string
	Algorithm string
}

var errNoSignatures = errors.New("token carries no signature")

// DecodeHeader decodes the protected header of a compact JWS without
// verifying anything. JSON serialized tokens are rejected.
func DecodeHeader(token string) (TokenHeader, error) {
	msg, err := jws.Parse([]byte(token), jws.WithCompact())
	if err != nil {
		return TokenHeader{}, err
	}
	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return TokenHeader{}, errNoSignatures
	}

	hdr := sigs[0].ProtectedHeaders()
	return TokenHeader{
		KeyID:     hdr.KeyID(),
		Algorithm: hdr.Algorithm().String(),
	}, nil
}
