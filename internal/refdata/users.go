package refdata

import (
	"fmt"

	"main/internal/schema"
)

// User describes a participant eligible to create RFQs or quote on them.
type User struct {
	ID   schema.UserID
	Name string
}

// Users stores user reference data in a compact form. Read-only during
// command application; populated once from replicated configuration.
type Users struct {
	users []User
	byID  map[schema.UserID]int
}

// NewUsers creates an empty user store.
func NewUsers() *Users {
	return &Users{byID: make(map[schema.UserID]int)}
}

// Add registers a new user.
func (u *Users) Add(user User) error {
	if user.ID == 0 {
		return fmt.Errorf("user id is invalid")
	}
	if _, ok := u.byID[user.ID]; ok {
		return fmt.Errorf("user already exists: %d", user.ID)
	}
	u.byID[user.ID] = len(u.users)
	u.users = append(u.users, user)
	return nil
}

// IsValidUser reports whether the user id is known.
func (u *Users) IsValidUser(id schema.UserID) bool {
	_, ok := u.byID[id]
	return ok
}

// User returns the user by ID.
func (u *Users) User(id schema.UserID) (User, bool) {
	idx, ok := u.byID[id]
	if !ok {
		return User{}, false
	}
	return u.users[idx], true
}

// Count returns the number of users in the store.
func (u *Users) Count() int {
	return len(u.users)
}

// At returns the user by zero-based insertion index.
func (u *Users) At(index int) (User, bool) {
	if index < 0 || index >= len(u.users) {
		return User{}, false
	}
	return u.users[index], true
}
