package badger

import "fmt"

// Key prefixes for different data types
const (
	indexSnapshotKey = "idx:snapshot"
	factPrefix       = "fact"
)

// makeFactKey generates a key for the facts of a filename.
func makeFactKey(filename string) []byte {
	return []byte(fmt.Sprintf("%s:%s", factPrefix, filename))
}
