// Command fieldcrypt-demo boots the encryption policy from configuration and
// walks the patient write/lookup cycle against a local sqlite database,
// printing what actually lands in the protected columns.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"

	"github.com/helioscare/fieldcrypt"
	"github.com/helioscare/fieldcrypt/clinic"
	"github.com/helioscare/fieldcrypt/providers/secretsource/awssm"
	"github.com/helioscare/fieldcrypt/providers/secretsource/env"
	"github.com/helioscare/fieldcrypt/providers/secretsource/vaultkv"
)

func main() {
	configPath := flag.String("config", "fieldcrypt.yaml", "path to the YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(context.Background(), *configPath, logger); err != nil {
		logger.Error("demo failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, logger *slog.Logger) error {
	_ = godotenv.Load()

	cfg, err := loadDemoConfig(configPath)
	if err != nil {
		return err
	}

	source, err := buildKeySource(ctx, cfg)
	if err != nil {
		return err
	}

	cryptoCfg, err := fieldcrypt.LoadConfigFromSource(ctx, source, cfg.Keys.EncryptionKey, cfg.Keys.HMACKey)
	if err != nil {
		return err
	}

	policy, err := fieldcrypt.NewPolicy(cryptoCfg, fieldcrypt.WithLogger(logger))
	if err != nil {
		return err
	}
	codec := fieldcrypt.NewCodec(policy, fieldcrypt.DefaultRegistry())

	db, err := sql.Open("sqlite3", cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := clinic.Migrate(ctx, db); err != nil {
		return err
	}

	patients := clinic.NewPatientRepository(db, codec)

	patient := &clinic.Patient{
		ClinicID: "demo-clinic",
		FullName: "Maria Souza",
		Phone:    "(11) 99999-0000",
		Email:    "Maria.Souza@Example.com",
		Allergies: []string{
			"dipyrone",
			"penicillin",
		},
	}
	if err := patients.Create(ctx, patient); err != nil {
		return err
	}
	logger.Info("patient created", "id", patient.ID)

	// What did the database actually store?
	var storedPhone, storedPhoneIdx string
	err = db.QueryRowContext(ctx,
		`SELECT phone, phone_idx FROM patients WHERE id = ?`, patient.ID).
		Scan(&storedPhone, &storedPhoneIdx)
	if err != nil {
		return err
	}
	fmt.Printf("stored phone column:       %s\n", storedPhone)
	fmt.Printf("stored phone blind index:  %s\n", storedPhoneIdx)

	// Equality lookup by a differently formatted surface form.
	found, err := patients.FindByPhone(ctx, "11 99999 0000")
	if err != nil {
		return err
	}
	fmt.Printf("lookup by \"11 99999 0000\": %s (phone reads back %q)\n",
		found.FullName, found.Phone)
	return nil
}

func buildKeySource(ctx context.Context, cfg *demoConfig) (fieldcrypt.KeySource, error) {
	switch cfg.Keys.Source {
	case "env":
		return env.New(), nil
	case "awssm":
		return awssm.New(ctx, awssm.Config{Region: cfg.AWS.Region})
	case "vaultkv":
		return vaultkv.New()
	default:
		return nil, fmt.Errorf("unknown key source %q", cfg.Keys.Source)
	}
}
