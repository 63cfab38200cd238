package btr

import (
	"context"

	"github.com/google/uuid"
)

// OwnerID identifies the execution context holding a reservation. It must
// stay stable for the lifetime of a hold and be unique among concurrent
// holders.
type OwnerID uuid.UUID

// NoOwner is the zero OwnerID.
var NoOwner OwnerID

// NewOwnerID returns a fresh random owner identity.
func NewOwnerID() OwnerID {
	return OwnerID(uuid.New())
}

func (o OwnerID) String() string {
	return uuid.UUID(o).String()
}

// IsZero reports whether o is NoOwner.
func (o OwnerID) IsZero() bool {
	return o == NoOwner
}

type ownerKey struct{}

// WithOwner returns a context carrying the owner identity.
func WithOwner(ctx context.Context, owner OwnerID) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFromContext returns the owner identity carried by ctx.
func OwnerFromContext(ctx context.Context) (OwnerID, bool) {
	if ctx == nil {
		return NoOwner, false
	}
	owner, ok := ctx.Value(ownerKey{}).(OwnerID)
	if !ok || owner.IsZero() {
		return NoOwner, false
	}
	return owner, true
}
