package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/quizdesk/core"
	"github.com/trezcool/quizdesk/core/catalog"
	"github.com/trezcool/quizdesk/core/classroom"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf         *core.Config
	out          io.Writer
	db           *sql.DB             // migrate
	catalog      *catalog.Catalog    // banks
	classroomSvc classroom.Service   // addstudent
	validate     *validator.Validate // addstudent
}

// needsDB reports whether the command in args talks to the database.
func needsDB(args []string) bool {
	if len(args) < 2 {
		return false
	}
	switch args[1] {
	case "migrate", "addstudent":
		return true
	}
	return false
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                    - run a goose command: up, down, status, redo, version, up-to N, ...")
	fmt.Fprintln(cli.out, "  token -id ID -role teacher|student|admin  - print a signed API token")
	fmt.Fprintln(cli.out, "  banks list [-subject S] [-grade N]        - list the quiz banks")
	fmt.Fprintln(cli.out, "  banks lint                                - report content problems of the quiz banks")
	fmt.Fprintln(cli.out, "  addstudent -name N -email E -class C -grade G -teacher ID - enrol a student")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "token":
		tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
		tokenCmd.SetOutput(cli.out)
		id := tokenCmd.String("id", "", "The subject of the token: a teacher, student or admin ID.")
		role := tokenCmd.String("role", "teacher", "One of teacher, student or admin.")
		name := tokenCmd.String("name", "", "Display name.")
		email := tokenCmd.String("email", "", "Email address.")
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *id == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*id, *role, *name, *email)

	case "banks":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		switch args[2] {
		case "list":
			listCmd := flag.NewFlagSet("banks list", flag.ContinueOnError)
			listCmd.SetOutput(cli.out)
			subject := listCmd.String("subject", "", "Only banks of this subject.")
			grade := listCmd.Int("grade", 0, "Only banks of this grade.")
			if err := listCmd.Parse(args[3:]); err != nil {
				return errHelp
			}
			return cli.listBanks(catalog.Filter{Subject: catalog.Subject(*subject), Grade: *grade})
		case "lint":
			return cli.lintBanks()
		}
		cli.printUsage()
		return errHelp

	case "addstudent":
		addCmd := flag.NewFlagSet("addstudent", flag.ContinueOnError)
		addCmd.SetOutput(cli.out)
		name := addCmd.String("name", "", "The student's full name.")
		email := addCmd.String("email", "", "The student's email, unique.")
		class := addCmd.String("class", "", "The student's class, e.g. 8A.")
		grade := addCmd.Int("grade", 0, fmt.Sprintf("The student's grade level, %d to %d.", catalog.MinGrade, catalog.MaxGrade))
		teacher := addCmd.String("teacher", "", "The ID of the student's teacher.")
		if err := addCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *name == "" || *email == "" || *teacher == "" {
			addCmd.Usage()
			return errHelp
		}
		return cli.addStudent(classroom.NewStudent{
			Name:       *name,
			Email:      *email,
			ClassName:  *class,
			GradeLevel: *grade,
			TeacherID:  *teacher,
		})

	default:
		cli.printUsage()
		return errHelp
	}
}
