package acl

// Owned is anything created by a single user: posts and comments.
type Owned interface {
	OwnerID() string
}

// CanMutate reports whether requesterID may change or delete the entity.
// Anonymous requesters never can.
func CanMutate(entity Owned, requesterID string) bool {
	if entity == nil || requesterID == "" {
		return false
	}
	return entity.OwnerID() == requesterID
}
