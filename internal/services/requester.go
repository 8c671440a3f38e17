package services

import (
	"context"
	"slices"

	"github.com/librahub/backend/internal/models"
)

type Capability string

const CapabilityStaff Capability = "STAFF"

// Requester is the authenticated caller an operation authorises against.
type Requester struct {
	MemberID     int64        `json:"member_id"`
	Username     string       `json:"username"`
	Capabilities []Capability `json:"capabilities,omitempty"`
}

// NewRequester derives capabilities from member roles.
func NewRequester(memberID int64, username string, roles []string) Requester {
	r := Requester{MemberID: memberID, Username: username}
	if slices.Contains(roles, models.RoleLibrarian) || slices.Contains(roles, models.RoleAdmin) {
		r.Capabilities = append(r.Capabilities, CapabilityStaff)
	}
	return r
}

func (r Requester) Has(c Capability) bool {
	return slices.Contains(r.Capabilities, c)
}

func (r Requester) IsStaff() bool {
	return r.Has(CapabilityStaff)
}

// CanActFor reports whether the requester may operate on memberID's records.
func (r Requester) CanActFor(memberID int64) bool {
	return r.MemberID == memberID || r.IsStaff()
}

type requesterKey struct{}

func WithRequester(ctx context.Context, r Requester) context.Context {
	return context.WithValue(ctx, requesterKey{}, r)
}

func RequesterFromContext(ctx context.Context) (Requester, bool) {
	r, ok := ctx.Value(requesterKey{}).(Requester)
	return r, ok
}
