package main

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/quizdesk/apps/api/echo"
)

var errUnknownRole = errors.New("role must be one of teacher, student or admin")

func (cli *commandLine) token(id, role, name, email string) error {
	ident := echoapi.Identity{ID: id, Name: name, Email: email}
	switch role {
	case "teacher":
		ident.IsTeacher = true
	case "student":
		ident.IsStudent = true
	case "admin":
		ident.IsAdmin = true
	default:
		return errUnknownRole
	}

	token, err := echoapi.GenerateToken(cli.conf, echoapi.NewClaims(cli.conf, ident))
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
