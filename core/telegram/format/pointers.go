package format

import "strings"

// Deref returns *p, or def when p is nil. Optional JSON fields decode to
// pointers so absent and zero values stay distinguishable.
func Deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// Text returns the trimmed string behind p, empty when p is nil.
func Text(p *string) string {
	return strings.TrimSpace(Deref(p, ""))
}
