package common

import "github.com/google/uuid"

// Identity is an opaque handle for whoever originated an order. Two identities
// are equal when their tokens are equal, so the struct can be compared with ==
// and used as a map key.
type Identity struct {
	token string
}

func NewIdentity(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrEmptyIdentity
	}
	return Identity{token: token}, nil
}

// MustIdentity is NewIdentity for tokens known to be valid, e.g. in tests.
func MustIdentity(token string) Identity {
	id, err := NewIdentity(token)
	if err != nil {
		panic(err)
	}
	return id
}

// NewRandomIdentity mints an identity from a fresh v4 uuid.
func NewRandomIdentity() Identity {
	return Identity{token: uuid.New().String()}
}

func (id Identity) Equal(other Identity) bool { return id.token == other.token }

func (id Identity) IsZero() bool { return id.token == "" }

func (id Identity) String() string { return id.token }
