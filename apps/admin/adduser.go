package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/enrollment/core"
	"github.com/trezcool/enrollment/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, first, last, roleName, pwd string) error {
	role, err := user.ParseRole(roleName)
	if err != nil {
		return err
	}
	uname = core.CleanString(uname)
	first = core.CleanString(first)
	last = core.CleanString(last)

	return cli.tx.WithinTx(context.Background(), func(ctx context.Context) error {
		usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: uname})
		exists := err == nil
		if err != nil {
			if !errors.Is(err, user.ErrNotFound) {
				return err
			}
			usr = user.User{Username: uname}
		}
		usr.Role = role
		if first != "" {
			usr.FirstName = first
		}
		if last != "" {
			usr.LastName = last
		}
		if err := usr.SetPassword(pwd); err != nil {
			return err
		}

		if exists {
			_, err = cli.usrRepo.UpdateUser(ctx, usr)
		} else {
			_, err = cli.usrRepo.CreateUser(ctx, usr)
		}
		return err
	})
}
