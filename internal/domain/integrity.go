package domain

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// ComputeIntegrityHash derives the tamper-evidence hash stored on a record.
// It covers the fields fixed at dispatch time; mutable lifecycle fields
// (status, retry count, history) are deliberately excluded so legitimate
// transitions do not invalidate the hash.
func ComputeIntegrityHash(e *LogEntry) string {
	canonical := strings.Join([]string{
		e.ID,
		e.AgentID,
		e.Recipient,
		e.Subject,
		e.Content,
		e.Timestamp.UTC().Format("2006-01-02T15:04:05.000000000Z"),
	}, "|")
	sum := blake2b.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// VerifyIntegrity reports whether the stored hash matches the record's
// immutable fields. A record without a stored hash verifies trivially.
func VerifyIntegrity(e *LogEntry) bool {
	if e.IntegrityHash == "" {
		return true
	}
	return e.IntegrityHash == ComputeIntegrityHash(e)
}
