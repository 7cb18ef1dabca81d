package app

// toggleSetMember flips a named member of a set-valued relationship.
// The membership snapshot comes from the caller's already-loaded view
// of the set, so the decision and the write are two separate steps; the
// add/remove primitives behind it are idempotent server-side, which is
// what keeps concurrent toggles from corrupting the set (a duplicate
// add collapses, a second remove is a no-op).
func toggleSetMember(isMember bool, add, remove func() error) error {
	if isMember {
		return remove()
	}
	return add()
}
