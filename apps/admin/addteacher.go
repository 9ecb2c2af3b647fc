package main

import (
	"context"
	"fmt"

	"github.com/pulseed/pulseed/core/teacher"
)

// addTeacher creates a teacher account and prints the generated class code.
func (cli *commandLine) addTeacher(name, email, pwd string) error {
	data := teacher.NewTeacher{
		Name:            name,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if err := data.Validate(cli.tchrSvc); err != nil {
		return err
	}

	t, err := cli.tchrSvc.Signup(context.Background(), data)
	if err != nil {
		return err
	}
	fmt.Printf("teacher %s created; class code: %s\n", t.Email, t.Code)
	return nil
}
