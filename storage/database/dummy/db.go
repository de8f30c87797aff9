// Package dummydb provides an in-memory user store for tests and local
// hacking; it honors the same Repository contract as the sqlx store.
package dummydb

import (
	"sync"

	"github.com/elimusoft/elimu/core/user"
)

type DB struct {
	user *userTable
}

type userTable struct {
	sync.RWMutex
	table map[string]*user.User
}

func Open() (*DB, error) {
	return &DB{
		user: &userTable{table: make(map[string]*user.User)},
	}, nil
}
