package store

import (
	"sort"
	"strings"
)

// SortUsernames orders names case-insensitively, breaking ties by byte order.
func SortUsernames(names []string) {
	sort.Slice(names, func(i, j int) bool {
		li, lj := strings.ToLower(names[i]), strings.ToLower(names[j])
		if li != lj {
			return li < lj
		}
		return names[i] < names[j]
	})
}
