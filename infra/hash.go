package infra

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// ComputeMapHash generates a deterministic hash of a snapshot. Any material
// change to the snapshot produces a different hash, so a stored hash detects
// drift between the state a plan was computed from and the state at apply
// time. encoding/json emits map keys in sorted order, which keeps the
// rendering canonical.
func ComputeMapHash(m *Map) (string, error) {
	if m == nil {
		m = NewMap("")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
