// Package policy holds the authorization predicates. They are pure
// functions over an already-resolved identity and a target resource; they
// answer yes or no and never touch storage, so callers decide how a "no"
// is reported (usually 403).
package policy

import "github.com/iliyamo/marketplace-api/internal/repository"

// Identity is the authenticated principal resolved from a bearer token by
// the auth middleware. It is passed explicitly into every protected
// operation; there is no ambient current-user lookup.
type Identity struct {
	ID      uint64
	Name    string
	IsSuper bool
}

// CanAccessChat reports whether the identity is one of the chat's two
// participants.
func CanAccessChat(id Identity, chat *repository.Chat) bool {
	if chat == nil {
		return false
	}
	return id.ID == chat.User1ID || id.ID == chat.User2ID
}

// CanModifyProduct reports whether the identity owns the listing or is a
// superuser.
func CanModifyProduct(id Identity, p *repository.Product) bool {
	if p == nil {
		return false
	}
	return id.ID == p.SellerID || id.IsSuper
}

// CanAdminister reports whether the identity may use administrative
// endpoints (ban, role changes, admin listings).
func CanAdminister(id Identity) bool {
	return id.IsSuper
}
