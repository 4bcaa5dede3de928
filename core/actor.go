package core

// Actor is the account performing an operation.
type Actor struct {
	AccountID string
	Email     string
	Name      string
	IsAdmin   bool
}

// CanAccess reports whether the actor may see or change a record owned by ownerID.
func (a Actor) CanAccess(ownerID string) bool {
	return a.IsAdmin || (a.AccountID != "" && a.AccountID == ownerID)
}

// OwnerFilter returns the account id to scope queries on ("" for admins).
func (a Actor) OwnerFilter() string {
	if a.IsAdmin {
		return ""
	}
	return a.AccountID
}
