package main

import (
	"context"

	"github.com/elimusoft/elimu/core"
	"github.com/elimusoft/elimu/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(email, firstName, lastName, pwd string, isAdmin bool) error {
	var usr user.User
	var err error
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	if usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email}); err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{Email: email}
	}
	if firstName != "" {
		usr.FirstName = core.CleanString(firstName)
	}
	if lastName != "" {
		usr.LastName = core.CleanString(lastName)
	}
	if isAdmin {
		usr.Roles = user.AllRoles
	} else if usr.Roles == nil {
		usr.Roles = user.RolesForType(user.TypeStudent)
	}
	usr.SetActive(true)
	usr.IsEmailVerified = true // operator-created accounts skip verification
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
