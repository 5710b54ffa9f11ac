package cache

import "strconv"

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// CanonicalID reports whether id is the exact decimal form of a user id.
// Only canonical ids are looked up in cache, so every cached entry has a
// single key that updates and deletes can invalidate.
func CanonicalID(id string) bool {
	n, err := strconv.ParseInt(id, 10, 64)
	return err == nil && n > 0 && formatID(n) == id
}
