package model

import "encoding/json"

// UncategorizedName is the global fallback category that receives the
// expenses of a deleted category.
const UncategorizedName = "Uncategorized"

// DefaultGlobalCategories are reconciled into the store at startup.
var DefaultGlobalCategories = []string{UncategorizedName, "Food", "Transport", "Utilities"}

// Owner says who a category belongs to. It is either Global() (visible to
// every user, never mutable by them) or OwnedBy(userID). The zero value is
// Global.
type Owner struct {
	userID string
}

// Global returns the owner of system-wide categories.
func Global() Owner { return Owner{} }

// OwnedBy returns the owner for a category private to userID.
func OwnedBy(userID string) Owner { return Owner{userID: userID} }

func (o Owner) IsGlobal() bool { return o.userID == "" }

// UserID returns the owning user's id; ok is false for global categories.
func (o Owner) UserID() (id string, ok bool) {
	return o.userID, o.userID != ""
}

// IsOwnedBy reports whether the category is private to userID.
func (o Owner) IsOwnedBy(userID string) bool {
	return o.userID != "" && o.userID == userID
}

// VisibleTo reports whether userID may read a category with this owner.
func (o Owner) VisibleTo(userID string) bool {
	return o.IsGlobal() || o.IsOwnedBy(userID)
}

// MarshalJSON renders the owner as the owning user id, or null when global.
func (o Owner) MarshalJSON() ([]byte, error) {
	if o.IsGlobal() {
		return []byte("null"), nil
	}
	return json.Marshal(o.userID)
}

// Category groups expenses. Names are unique per owner scope, compared
// case-insensitively.
type Category struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"isActive"`
	Owner  Owner  `json:"userId"`
}
