package models

// Collection identifies one top-level replicated dataset.
type Collection string

const (
	CollectionUsers        Collection = "users"
	CollectionPosts        Collection = "posts"
	CollectionPrivateChats Collection = "privateChats"
	CollectionGroups       Collection = "groups"
	CollectionModLog       Collection = "modLog"
	CollectionMuted        Collection = "muted"
)

// AllCollections lists every replicated collection in watch order.
var AllCollections = []Collection{
	CollectionUsers,
	CollectionPosts,
	CollectionPrivateChats,
	CollectionGroups,
	CollectionModLog,
	CollectionMuted,
}

// Path returns the remote store path holding the collection's full tree.
func (c Collection) Path() string {
	if c == CollectionPrivateChats {
		return "chats"
	}
	return string(c)
}

// IsMap reports whether the canonical value is a mapping rather than a sequence.
func (c Collection) IsMap() bool {
	return c == CollectionPrivateChats
}

// Empty returns the canonical empty value.
func (c Collection) Empty() []byte {
	if c.IsMap() {
		return []byte("{}")
	}
	return []byte("[]")
}

// Valid reports whether c is one of the known collections.
func (c Collection) Valid() bool {
	for _, known := range AllCollections {
		if c == known {
			return true
		}
	}
	return false
}

// CollectionFromPath maps a remote path back to its collection.
func CollectionFromPath(path string) (Collection, bool) {
	for _, c := range AllCollections {
		if c.Path() == path {
			return c, true
		}
	}
	return "", false
}
