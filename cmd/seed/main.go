// Command seed provisions staff accounts (admin, hod, dean) from a YAML
// roster. Mentees and mentors self-register, so only staff need seeding.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/internal/repository"
	"github.com/noah-isme/mentorship-api/internal/service"
	"github.com/noah-isme/mentorship-api/pkg/config"
	"github.com/noah-isme/mentorship-api/pkg/database"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
	"github.com/noah-isme/mentorship-api/pkg/logger"
)

type seedUser struct {
	Email    string          `yaml:"email"`
	Password string          `yaml:"password"`
	FullName string          `yaml:"full_name"`
	Role     models.UserRole `yaml:"role"`
}

type seedFile struct {
	Users []seedUser `yaml:"users"`
}

type userCreator interface {
	Create(ctx context.Context, payload dto.CreateUserPayload, actorID string, meta models.AuditMeta) (*models.User, error)
}

func main() {
	path := flag.String("file", "seed.yaml", "path to the YAML staff roster")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	roster, err := readSeedFile(*path)
	if err != nil {
		logr.Fatal("read seed file", zap.String("file", *path), zap.Error(err))
	}

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, logr); err != nil {
		logr.Fatal("migrate", zap.Error(err))
	}

	users := service.NewUserService(repository.NewUserRepository(db), repository.NewMentorshipRepository(db), nil, validator.New(), logr)
	created, skipped, err := seed(ctx, users, roster, logr)
	if err != nil {
		logr.Fatal("seed failed", zap.Error(err))
	}
	logr.Info("seed complete", zap.Int("created", created), zap.Int("skipped", skipped))
}

func readSeedFile(path string) (*seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var roster seedFile
	if err := yaml.Unmarshal(raw, &roster); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &roster, nil
}

// seed creates every listed user. Existing emails are skipped so the command
// can be re-run.
func seed(ctx context.Context, users userCreator, roster *seedFile, logr *zap.Logger) (created, skipped int, err error) {
	for _, u := range roster.Users {
		if !u.Role.IsStaff() {
			return created, skipped, fmt.Errorf("seed user %s: role %q is not a staff role", u.Email, u.Role)
		}
		_, createErr := users.Create(ctx, dto.CreateUserPayload{
			Email:    u.Email,
			Password: u.Password,
			FullName: u.FullName,
			Role:     u.Role,
		}, "", models.AuditMeta{UserAgent: "seed"})
		if createErr != nil {
			if appErrors.Is(createErr, appErrors.ErrConflict) {
				logr.Info("user exists, skipping", zap.String("email", u.Email))
				skipped++
				continue
			}
			return created, skipped, fmt.Errorf("seed user %s: %w", u.Email, createErr)
		}
		created++
	}
	return created, skipped, nil
}
