package catalog

import "github.com/google/uuid"

// GenerateStableID returns a 122-bit random identifier formatted as a UUID
// v4 (8-4-4-4-12 hex, RFC4122 variant/version bits set). It persists across
// rename/move and is never reused.
func GenerateStableID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", WrapStoreError("", err)
	}
	return id.String(), nil
}
