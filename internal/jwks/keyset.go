// Package jwks holds the immutable key sets fetched from a JWKS endpoint.
package jwks

import (
	"bytes"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/samber/lo"
	"github.com/simpleg-eu/cp-core/internal/apperr"
)

// Family is the JWK "kty" of a key.
type Family string

const (
	FamilyRSA Family = "RSA"
	FamilyEC  Family = "EC"
	FamilyOKP Family = "OKP"
	FamilyOct Family = "oct"
)

var (
	// ErrUnsupportedFamily is returned when public key material is requested
	// from a key whose family has no decoding key support.
	ErrUnsupportedFamily = errors.New("unsupported key family")
	// ErrMissingKeys is returned when a document has no "keys" array.
	ErrMissingKeys = errors.New("'keys' is missing from key set")
)

// Key is a single published signing key.
type Key struct {
	KeyID     string
	Family    Family
	Algorithm string

	rsaKey *rsa.PublicKey
	err    error
}

// RSAPublicKey returns the decoding key built when the set was constructed.
func (k *Key) RSAPublicKey() (*rsa.PublicKey, error) {
	if k.Family != FamilyRSA {
		return nil, fmt.Errorf("%w '%s'", ErrUnsupportedFamily, k.Family)
	}
	if k.err != nil {
		return nil, k.err
	}
	return k.rsaKey, nil
}

// KeySet is an ordered, read-only collection of keys indexed by key id.
// It is never mutated after NewKeySet returns.
type KeySet struct {
	keys  []*Key
	index map[string]*Key
}

type document struct {
	Keys []json.RawMessage `json:"keys"`
}

type keyFields struct {
	KeyID     string `json:"kid"`
	KeyType   string `json:"kty"`
	Algorithm string `json:"alg"`
}

// NewKeySet parses a JWK Set document. Structural problems with the
// document, including duplicate key ids, reject the whole set. Broken key
// material on an individual key is kept on that key and reported when the
// key is used.
func NewKeySet(data []byte) (*KeySet, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperr.Wrap(apperr.KindKeySetRetrievalFailure, "failed to deserialize key set", err)
	}
	if doc.Keys == nil {
		return nil, apperr.Wrap(apperr.KindKeySetRetrievalFailure, "failed to deserialize key set", ErrMissingKeys)
	}

	set := &KeySet{
		keys:  make([]*Key, 0, len(doc.Keys)),
		index: make(map[string]*Key, len(doc.Keys)),
	}
	for i, raw := range doc.Keys {
		if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
			return nil, apperr.Newf(apperr.KindKeySetRetrievalFailure, "key %d is not a JSON object", i)
		}
		var fields keyFields
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, apperr.Wrap(apperr.KindKeySetRetrievalFailure, fmt.Sprintf("failed to deserialize key %d", i), err)
		}

		key := &Key{
			KeyID:     fields.KeyID,
			Family:    Family(fields.KeyType),
			Algorithm: fields.Algorithm,
		}
		if key.Family == FamilyRSA {
			key.rsaKey, key.err = buildRSAKey(raw)
		}

		if key.KeyID != "" {
			if _, dup := set.index[key.KeyID]; dup {
				return nil, apperr.Newf(apperr.KindKeySetRetrievalFailure, "duplicate 'kid' '%s' within key set", key.KeyID)
			}
			set.index[key.KeyID] = key
		}
		set.keys = append(set.keys, key)
	}

	return set, nil
}

func buildRSAKey(raw []byte) (*rsa.PublicKey, error) {
	parsed, err := jwk.ParseKey(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA key: %w", err)
	}
	pub, err := parsed.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to derive RSA public key: %w", err)
	}

	var rawKey any
	if err := pub.Raw(&rawKey); err != nil {
		return nil, fmt.Errorf("failed to export RSA public key: %w", err)
	}
	rsaKey, ok := rawKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("expected RSA public key, got %T", rawKey)
	}
	if rsaKey.N == nil || rsaKey.N.Sign() <= 0 || rsaKey.E <= 1 {
		return nil, errors.New("RSA key has invalid modulus or exponent")
	}
	return rsaKey, nil
}

// KeySet lets a *KeySet act as its own KeySource.
func (s *KeySet) KeySet() *KeySet {
	return s
}

// Lookup returns the key with the given id.
func (s *KeySet) Lookup(kid string) (*Key, bool) {
	if s == nil || kid == "" {
		return nil, false
	}
	key, ok := s.index[kid]
	return key, ok
}

// Len returns the number of keys in the set, including keys without an id.
func (s *KeySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns the keys in document order. The slice is a copy.
func (s *KeySet) Keys() []*Key {
	if s == nil {
		return nil
	}
	return append([]*Key(nil), s.keys...)
}

// KeyIDs returns the selectable key ids in document order.
func (s *KeySet) KeyIDs() []string {
	return lo.FilterMap(s.Keys(), func(k *Key, _ int) (string, bool) {
		return k.KeyID, k.KeyID != ""
	})
}
