package claimkey

import (
	"fmt"
	"hash"

	"github.com/truthledger/truthledger/pkg/models"
)

// writeCanonicalScope writes a deterministic byte representation of an
// already-canonicalized scope into h: sorted keys, each entry framed as
// "key=value;" with nested scopes recursing in parentheses. The exact
// framing is an implementation detail — only determinism and the
// entity/attribute/scope→digest mapping are part of the contract.
func writeCanonicalScope(h hash.Hash, s models.Scope) {
	for _, k := range s.SortedKeys() {
		h.Write([]byte(k))
		h.Write([]byte{'='})
		writeCanonicalValue(h, s[k])
		h.Write([]byte{';'})
	}
}

func writeCanonicalValue(h hash.Hash, v any) {
	switch val := v.(type) {
	case models.Scope:
		h.Write([]byte{'('})
		writeCanonicalScope(h, val)
		h.Write([]byte{')'})
	default:
		fmt.Fprintf(h, "%v", val)
	}
}
