package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"qrbook.backend/internal/bootstrap"
	"qrbook.backend/internal/config"
	"qrbook.backend/internal/domain/entities"
	"qrbook.backend/internal/usecases"
	"qrbook.backend/pkg/jwt"
)

// PasswordEnv supplies the password when -password is omitted.
const PasswordEnv = "ADMIN_PASSWORD"

type adminCreator interface {
	CreateAdmin(ctx context.Context, input *entities.RegisterInput) (*entities.User, error)
}

type createAdminDeps struct {
	loadEnv func() error
	loadCfg func() *config.Config
	prepare func(ctx context.Context, cfg *config.Config) (adminCreator, io.Closer, error)
	getenv  func(string) string
	out     io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func defaultCreateAdminDeps() createAdminDeps {
	return createAdminDeps{
		loadEnv: func() error { return godotenv.Load() },
		loadCfg: config.Load,
		prepare: func(ctx context.Context, cfg *config.Config) (adminCreator, io.Closer, error) {
			stores, err := bootstrap.OpenStores(ctx, cfg, bootstrap.DefaultDialers())
			if err != nil {
				return nil, nil, err
			}
			jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry)
			uc := usecases.NewUserUsecase(stores.Users, stores.UoW, jwtService, bootstrap.NewMailer(cfg.Mail), nil)
			return uc, stores, nil
		},
		getenv: os.Getenv,
		out:    os.Stdout,
	}
}

func runCreateAdmin(args []string, deps createAdminDeps) error {
	def := defaultCreateAdminDeps()
	if deps.loadEnv == nil {
		deps.loadEnv = def.loadEnv
	}
	if deps.loadCfg == nil {
		deps.loadCfg = def.loadCfg
	}
	if deps.prepare == nil {
		deps.prepare = def.prepare
	}
	if deps.getenv == nil {
		deps.getenv = def.getenv
	}
	if deps.out == nil {
		deps.out = def.out
	}

	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	nameFlag := fs.String("name", "", "full name (required)")
	emailFlag := fs.String("email", "", "login email (required)")
	mobileFlag := fs.String("mobile", "", "mobile number (required)")
	passwordFlag := fs.String("password", "", "password, falls back to $"+PasswordEnv)
	if err := fs.Parse(args); err != nil {
		return err
	}

	input := &entities.RegisterInput{
		FullName: strings.TrimSpace(*nameFlag),
		Email:    strings.TrimSpace(*emailFlag),
		MobileNo: strings.TrimSpace(*mobileFlag),
		Password: *passwordFlag,
	}
	if input.Password == "" {
		input.Password = deps.getenv(PasswordEnv)
	}
	if input.FullName == "" || input.Email == "" || input.MobileNo == "" {
		return errors.New("--name, --email and --mobile are required")
	}
	if input.Password == "" {
		return fmt.Errorf("--password or $%s is required", PasswordEnv)
	}

	if err := deps.loadEnv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx := context.Background()
	creator, closer, err := deps.prepare(ctx, deps.loadCfg())
	if err != nil {
		return err
	}
	if closer == nil {
		closer = nopCloser{}
	}
	defer closer.Close()

	admin, err := creator.CreateAdmin(ctx, input)
	if err != nil {
		return fmt.Errorf("failed creating admin: %w", err)
	}

	_, _ = fmt.Fprintln(deps.out, "Created ADMIN account")
	_, _ = fmt.Fprintf(deps.out, "user_id=%s\n", admin.UserID)
	_, _ = fmt.Fprintf(deps.out, "email=%s\n", admin.Email)
	return nil
}

func main() {
	if err := runCreateAdmin(os.Args[1:], defaultCreateAdminDeps()); err != nil {
		log.Fatal(err)
	}
}
