package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for fingerprints. The version suffix allows the
// algorithm to change without colliding with older values.
const (
	DomainResult = "buildcfg/result/v1"
	DomainScript = "buildcfg/script/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes the canonical form of a finalized configuration.
// Two evaluations that produce the same tasks, properties, identity,
// repositories and dependencies have the same fingerprint.
func Fingerprint(snapshot Snapshot) (string, error) {
	canonical, err := MarshalCanonical(snapshot.CanonicalMap())
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainResult, canonical), nil
}

// ScriptHash hashes the serializable part of a script: declaration
// kinds and arguments. Effects provided as functions contribute only
// their description.
func ScriptHash(script *Script) (string, error) {
	canonical, err := MarshalCanonical(script.CanonicalList())
	if err != nil {
		return "", fmt.Errorf("ScriptHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainScript, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests.
func MustFingerprint(snapshot Snapshot) string {
	fp, err := Fingerprint(snapshot)
	if err != nil {
		panic(err)
	}
	return fp
}
