package storage

import (
	"fmt"
	"strings"
	"sync"
)

// FolderClaims hands out document folder names so that no two documents of
// a run write into the same folder. Names are compared case-insensitively,
// since the output may live on a case-insensitive filesystem.
type FolderClaims struct {
	mu     sync.Mutex
	owners map[string]string
}

// NewFolderClaims creates an empty set of claims
func NewFolderClaims() *FolderClaims {
	return &FolderClaims{owners: make(map[string]string)}
}

// Claim reserves name for documentID and returns the name to use. When
// another document already holds name, "{name} ({documentID})" is tried,
// then that name with a counter. Claiming again for the same document
// returns the name it already holds.
func (c *FolderClaims) Claim(name, documentID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := SanitizeName(documentID)
	candidate := name
	for n := 1; ; n++ {
		key := strings.ToLower(candidate)
		owner, taken := c.owners[key]
		if !taken || owner == documentID {
			c.owners[key] = documentID
			return candidate
		}

		candidate = fmt.Sprintf("%s (%s)", name, id)
		if n > 1 {
			candidate = fmt.Sprintf("%s (%s) %d", name, id, n)
		}
	}
}
