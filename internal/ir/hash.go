package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainModel      = "plexsim/model/v1"
	DomainSnapshot   = "plexsim/snapshot/v1"
	DomainTrajectory = "plexsim/trajectory/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ModelHash identifies a compiled model. A snapshot may only be resumed
// against a model with the same hash.
func ModelHash(spec *ModelSpec) (string, error) {
	canonical, err := MarshalCanonical(spec)
	if err != nil {
		return "", fmt.Errorf("ModelHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainModel, canonical), nil
}

// SnapshotDigest identifies the content of a snapshot.
func SnapshotDigest(snap *Snapshot) (string, error) {
	canonical, err := MarshalCanonical(snap)
	if err != nil {
		return "", fmt.Errorf("SnapshotDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// TrajectoryDigest identifies a sampled trajectory. Two runs with the same
// model and seed must produce the same digest.
func TrajectoryDigest(samples []Sample) (string, error) {
	if samples == nil {
		samples = []Sample{}
	}
	canonical, err := MarshalCanonical(samples)
	if err != nil {
		return "", fmt.Errorf("TrajectoryDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTrajectory, canonical), nil
}

// MustModelHash is like ModelHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustModelHash(spec *ModelSpec) string {
	h, err := ModelHash(spec)
	if err != nil {
		panic(err)
	}
	return h
}

// StateDigest is SnapshotDigest without the run identity, so two runs that
// reach the same state compare equal.
func StateDigest(snap *Snapshot) (string, error) {
	anon := *snap
	anon.RunID = ""
	return SnapshotDigest(&anon)
}
