// Command adminkit-setup applies the database schema and creates the first
// super admin account.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Adrijan-Petek/miniapp-admin-kit/internal/logging"
	"github.com/Adrijan-Petek/miniapp-admin-kit/internal/store"
	"github.com/Adrijan-Petek/miniapp-admin-kit/password"
	"github.com/Adrijan-Petek/miniapp-admin-kit/permission"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "adminkit-setup: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("adminkit-setup", pflag.ContinueOnError)
	databaseURL := flags.String("database-url", "", "PostgreSQL URL (default $DATABASE_URL)")
	username := flags.String("username", "superadmin", "username of the account to create")
	email := flags.String("email", "admin@example.com", "email of the account to create")
	pass := flags.String("password", "", "password (default $ADMIN_PASSWORD, else read from stdin)")
	role := flags.String("role", string(permission.RoleSuperAdmin), "role of the account to create")
	envFile := flags.String("env-file", ".env", "optional dotenv file")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", *envFile, err)
	}
	if *databaseURL == "" {
		*databaseURL = os.Getenv("DATABASE_URL")
	}
	if *databaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if *pass == "" {
		*pass = os.Getenv("ADMIN_PASSWORD")
	}
	if *pass == "" {
		read, err := readPassword()
		if err != nil {
			return err
		}
		*pass = read
	}

	r, ok := permission.ParseRole(*role)
	if !ok {
		return fmt.Errorf("unknown role %q", *role)
	}
	if err := password.ValidatePolicy(*pass); err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: "info"})
	if err != nil {
		return err
	}
	log := logger.WithField("component", "adminkit-setup")

	if err := store.RunMigrations(*databaseURL); err != nil {
		return err
	}
	log.Info("migrations applied")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.Open(ctx, *databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	users := store.NewUserRepo(db)
	exists, err := users.ExistsByUsername(ctx, *username)
	if err != nil {
		return err
	}
	if exists {
		log.WithField("username", *username).Info("user already exists, nothing to do")
		return nil
	}

	hasher, err := password.NewHasher(password.DefaultParams())
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(*pass)
	if err != nil {
		return err
	}

	id, err := users.Create(ctx, store.NewUser{
		Username:     *username,
		Email:        *email,
		PasswordHash: hash,
		Role:         r,
	})
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"id": id, "username": *username, "role": r}).Info("admin user created")
	return nil
}

func readPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
