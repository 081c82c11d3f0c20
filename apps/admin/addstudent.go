package main

import (
	"context"
	"fmt"

	"github.com/trezcool/quizdesk/core/classroom"
)

func (cli *commandLine) addStudent(ns classroom.NewStudent) error {
	if err := ns.Validate(cli.validate); err != nil {
		return err
	}
	stu, err := cli.classroomSvc.AddStudent(context.Background(), ns)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "added %s <%s> to %s: %s\n", stu.Name, stu.Email, stu.ClassName, stu.ID)
	return nil
}
