package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint holds every parameter that defines an analysis request.
// Two requests with equal fingerprints may share a cached result.
type Fingerprint struct {
	Prompt   string `json:"prompt"`
	Context  any    `json:"context"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

// Canonical serializes the fingerprint deterministically. Field order is
// fixed by the struct, and encoding/json sorts map keys and formats numbers
// the same way for equal values.
func (f Fingerprint) Canonical() ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("canonical fingerprint: %w", err)
	}
	return data, nil
}

// Key returns the hex SHA-256 of the canonical serialization.
func (f Fingerprint) Key() (string, error) {
	data, err := f.Canonical()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// DeriveKey is shorthand for Fingerprint{...}.Key().
func DeriveKey(prompt string, context any, model, language string) (string, error) {
	return Fingerprint{
		Prompt:   prompt,
		Context:  context,
		Model:    model,
		Language: language,
	}.Key()
}
