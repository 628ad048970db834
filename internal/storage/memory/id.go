package memory

import "github.com/google/uuid"

func newID() string {
	return uuid.NewString()
}

// page applies offset/limit pagination; a non-positive limit returns the rest.
func page[T any](list []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset > len(list) {
		return []T{}
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return list[offset:end]
}
