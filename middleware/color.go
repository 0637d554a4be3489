package middleware

import (
	"fmt"
	"hash/fnv"
)

var (
	adjectives = []string{
		"Amber", "Brave", "Calm", "Dusty", "Eager", "Fuzzy", "Gentle", "Hasty",
		"Inky", "Jolly", "Keen", "Lucky", "Mellow", "Nimble", "Odd", "Plucky",
	}
	animals = []string{
		"Otter", "Heron", "Badger", "Lynx", "Gecko", "Puffin", "Marten", "Ibis",
		"Koala", "Newt", "Stoat", "Wren", "Yak", "Bison", "Crane", "Mole",
	}
)

func hashID(userID string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return h.Sum32()
}

// GuestName derives a stable display name for a participant that did not
// pick one.
func GuestName(userID string) string {
	hash := hashID(userID)
	adj := adjectives[hash%uint32(len(adjectives))]
	animal := animals[(hash/uint32(len(adjectives)))%uint32(len(animals))]
	return fmt.Sprintf("%s %s %d", adj, animal, hash%100)
}

// ColorFromUserID gives each participant a stable presence color.
func ColorFromUserID(userID string) string {
	hue := int(hashID(userID) % 360)
	return fmt.Sprintf("hsl(%d, 70%%, 55%%)", hue)
}
