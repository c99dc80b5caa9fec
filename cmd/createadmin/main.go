package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/bookstore/internal/db"
	"github.com/nkiryanov/bookstore/internal/models"
	"github.com/nkiryanov/bookstore/internal/repository/postgres"
	"github.com/nkiryanov/bookstore/internal/service/user"
)

// Create first administrator so the admin API can be used at all
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Getenv, os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "can't create admin: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	DatabaseDSN string
	Username    string
	Email       string
	FirstName   string
	LastName    string
	Password    string
}

func parseOptions(getenv func(string) string, args []string) (options, error) {
	// .env is optional here
	_ = godotenv.Load()

	o := options{
		DatabaseDSN: getenv("DATABASE_URI"),
		Password:    getenv("ADMIN_PASSWORD"),
	}

	fs := pflag.NewFlagSet("createadmin", pflag.ContinueOnError)
	fs.StringVarP(&o.DatabaseDSN, "database", "d", o.DatabaseDSN, "Database connection string")
	fs.StringVarP(&o.Username, "username", "u", "admin", "Administrator username")
	fs.StringVar(&o.Email, "email", "", "Administrator email")
	fs.StringVar(&o.FirstName, "first-name", "", "Administrator first name")
	fs.StringVar(&o.LastName, "last-name", "", "Administrator last name")
	fs.StringVarP(&o.Password, "password", "p", o.Password, "Administrator password (ADMIN_PASSWORD env is safer)")

	if err := fs.Parse(args); err != nil {
		return o, err
	}

	switch {
	case o.DatabaseDSN == "":
		return o, errors.New("database DSN is required")
	case o.Email == "":
		return o, errors.New("email is required")
	case len(o.Password) < 8:
		return o, errors.New("password must have at least 8 characters")
	}

	return o, nil
}

func run(ctx context.Context, getenv func(string) string, out io.Writer, args []string) error {
	o, err := parseOptions(getenv, args)
	if err != nil {
		return err
	}

	pool, err := db.ConnectAndMigrate(ctx, o.DatabaseDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	users := user.NewService(nil, postgres.NewStorage(pool))
	admin, err := users.CreateUser(ctx, user.NewUser{
		Username:  o.Username,
		Email:     o.Email,
		FirstName: o.FirstName,
		LastName:  o.LastName,
		Role:      models.RoleAdmin.String(),
		Password:  o.Password,
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "Administrator %q created with id %d\n", admin.Username, admin.ID)
	return err
}
