package dedup

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/akolanti/DocVault/internal/domain/commonModels"
)

// Fingerprint returns the hex encoded SHA-256 of content.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

type Candidate struct {
	Name string
	Size int64
	Hash string
}

// IsDuplicate reports whether an existing document has the same name, size
// and hash as the candidate. All three must match.
func IsDuplicate(candidate Candidate, existing []commonModels.Document) (bool, string) {
	for _, doc := range existing {
		if doc.Id == candidate.Name && doc.SizeBytes == candidate.Size && doc.ContentHash == candidate.Hash {
			return true, doc.Id
		}
	}
	return false, ""
}

// FindNameConflict returns the existing document that shares the candidate's
// name but not its content.
func FindNameConflict(candidate Candidate, existing []commonModels.Document) (commonModels.Document, bool) {
	for _, doc := range existing {
		if doc.Id != candidate.Name {
			continue
		}
		if doc.SizeBytes != candidate.Size || doc.ContentHash != candidate.Hash {
			return doc, true
		}
	}
	return commonModels.Document{}, false
}
