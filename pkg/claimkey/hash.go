// Package claimkey computes the content-identity hash that groups claims
// about the same (entity, attribute, scope) regardless of storage order
// (spec §3 "Claim-key canonicalization").
package claimkey

import (
	"crypto/sha256"
	"fmt"

	"github.com/truthledger/truthledger/pkg/models"
)

// Compute returns the stable 256-bit digest:
// H(entityId || attributeId || canonical(scopeJson)).
//
// The scope is canonicalized first (sorted keys, lowercased text, nulls
// dropped, NaN rejected) so that two scopes differing only in key order
// or textual case produce the same hash.
func Compute(entityID, attributeID string, scope models.Scope) ([]byte, error) {
	canon, err := scope.Canonicalize()
	if err != nil {
		return nil, fmt.Errorf("claimkey: canonicalize scope: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(entityID))
	h.Write([]byte{0})
	h.Write([]byte(attributeID))
	h.Write([]byte{0})
	writeCanonicalScope(h, canon)
	return h.Sum(nil), nil
}

// MustCompute panics on canonicalization failure; used only where the
// scope is already known-valid (e.g. freshly built by this package).
func MustCompute(entityID, attributeID string, scope models.Scope) []byte {
	digest, err := Compute(entityID, attributeID, scope)
	if err != nil {
		panic(err)
	}
	return digest
}

// DomainScope builds the derivation-profile scope used by the Deriver
// (spec §4.5 step 4): {profile: "domain_default_v1", field, derived_from_scope}.
func DomainScope(targetField string, sourceScope models.Scope) models.Scope {
	return models.Scope{
		"profile":           "domain_default_v1",
		"field":             targetField,
		"derived_from_scope": sourceScope,
	}
}
