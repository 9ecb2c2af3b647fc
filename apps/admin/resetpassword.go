package main

import (
	"context"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	t, err := cli.tchrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if _, err := cli.tchrSvc.SetPassword(ctx, t, pwd); err != nil {
		return err
	}
	return nil
}
