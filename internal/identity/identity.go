// Package identity derives one-way pseudonymous patient identifiers from
// caller identifiers and formats them safely for logs and storage backends.
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// Prefix marks production-shaped patient identifiers.
	Prefix = "pt-"
	// TestPrefix marks non-production identifiers that are allowed to appear
	// unmodified in logs.
	TestPrefix = "pt-test-"

	hexLen = 32 // 16 bytes of the HMAC, hex encoded
)

var (
	// ErrEmptyCallerID indicates DeriveID was called with an empty caller identifier.
	ErrEmptyCallerID = errors.New("caller id cannot be empty")

	// ErrUnknownStore indicates RehashForStore was asked for a store with no configured salt.
	ErrUnknownStore = errors.New("no salt configured for store")
)

// Manager derives and re-derives patient identifiers. The process salt keys
// the caller-to-patient mapping; per-store salts key the second hash so that
// one backend's key material cannot correlate records across backends.
type Manager struct {
	salt       []byte
	storeSalts map[string][]byte
}

// NewManager creates a manager with the process-wide salt and a map of
// store name to store salt.
func NewManager(salt string, storeSalts map[string]string) *Manager {
	m := &Manager{
		salt:       []byte(salt),
		storeSalts: make(map[string][]byte, len(storeSalts)),
	}
	for name, s := range storeSalts {
		m.storeSalts[name] = []byte(s)
	}
	return m
}

// DeriveID returns the deterministic patient identifier for callerID.
// The same caller always yields the same identifier; there is no stored
// reverse mapping.
func (m *Manager) DeriveID(callerID string) (string, error) {
	if callerID == "" {
		return "", ErrEmptyCallerID
	}
	return Prefix + hmacHex(m.salt, callerID), nil
}

// RehashForStore applies a second HMAC pass keyed by the named store's salt.
// Backend keys derived this way are not correlatable across stores.
func (m *Manager) RehashForStore(patientID, store string) (string, error) {
	salt, ok := m.storeSalts[store]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownStore, store)
	}
	return Prefix + hmacHex(salt, patientID), nil
}

func hmacHex(key []byte, msg string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msg))
	sum := mac.Sum(nil)
	return hex.EncodeToString(sum[:hexLen/2])
}

// ValidateFormat reports whether id has the production shape: the fixed
// prefix followed by exactly 32 lowercase hex digits. Pure function.
func ValidateFormat(id string) bool {
	if !strings.HasPrefix(id, Prefix) {
		return false
	}
	rest := id[len(Prefix):]
	if len(rest) != hexLen {
		return false
	}
	for _, c := range rest {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// AnonymizeForLog returns a log-safe rendering of a patient identifier:
// the prefix plus the bracketed length. Identifiers with the recognized
// test prefix are returned unmodified.
func AnonymizeForLog(id string) string {
	if strings.HasPrefix(id, TestPrefix) {
		return id
	}
	return Prefix + "[" + strconv.Itoa(len(id)) + "]"
}
