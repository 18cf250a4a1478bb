package task

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/mitchellh/hashstructure"
)

// fingerprintParts hashes a task's own discriminating parameters into a
// short hex digest. Every concrete task kind funnels its Fingerprint
// implementation through this helper so the hashing scheme stays
// uniform across kinds.
func fingerprintParts(kind Kind, parts ...string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d", kind)
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// fingerprintStruct hashes a task's own parameters where at least one is
// a nested struct (e.g. ScaleTask's scale.Spec) through
// hashstructure.Hash rather than fmt.Sprintf("%+v", ...): Sprintf's
// output depends on map iteration order and pointer formatting in ways
// hashstructure's field-by-field walk does not, so two structurally
// identical specs are guaranteed the same fingerprint. Falls back to
// Sprintf only for the types hashstructure.Hash rejects (chans, funcs),
// which no task parameter type carries in practice.
func fingerprintStruct(kind Kind, key string, v any) string {
	sum, err := hashstructure.Hash(v, nil)
	if err != nil {
		return fingerprintParts(kind, key, fmt.Sprintf("%+v", v))
	}
	return fingerprintParts(kind, key, strconv.FormatUint(sum, 16))
}

// combineFingerprints folds a task's own fingerprint together with its
// parents' fingerprints into the node's final state_fingerprint (spec
// §4.H), so a change anywhere upstream invalidates every descendant.
func combineFingerprints(own string, parents []string) string {
	h := sha256.New()
	h.Write([]byte(own))
	for _, p := range parents {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}
