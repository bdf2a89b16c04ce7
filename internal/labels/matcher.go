package labels

import (
	"strconv"
	"strings"
)

// idSeparator splits an image id into its stable primary part and its
// access-hash secondary part.
const idSeparator = "_"

// ImageID builds the canonical identifier for a photo.
func ImageID(photoID, accessHash int64) string {
	return strconv.FormatInt(photoID, 10) + idSeparator + strconv.FormatInt(accessHash, 10)
}

// SplitImageID returns the primary and secondary components of id.
// ok is false when id has no separator.
func SplitImageID(id string) (primary, secondary string, ok bool) {
	return strings.Cut(id, idSeparator)
}

// Matcher resolves image ids against a Store.
type Matcher struct {
	store *Store
}

// NewMatcher returns a matcher reading from store.
func NewMatcher(store *Store) *Matcher {
	return &Matcher{store: store}
}

// Resolve looks imageID up exactly, then falls back to the first stored entry
// (insertion order) whose primary component equals imageID's. The access hash
// of a photo changes between fetches while the photo id does not.
func (m *Matcher) Resolve(imageID string) (string, bool) {
	if label, ok := m.store.Get(imageID); ok {
		return label, true
	}

	primary, _, ok := SplitImageID(imageID)
	if !ok || primary == "" {
		return "", false
	}

	var (
		found string
		hit   bool
	)
	m.store.Each(func(id, label string) bool {
		p, _, ok := SplitImageID(id)
		if ok && p == primary {
			found, hit = label, true
			return false
		}
		return true
	})
	return found, hit
}
