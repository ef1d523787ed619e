package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"hishab/internal/domain/featureflag"
	"hishab/internal/domain/notification"
	"hishab/internal/domain/recurring"
	"hishab/internal/domain/user"
	"hishab/internal/infrastructure/firebase"
	"hishab/internal/infrastructure/postgres"
	"hishab/internal/shared/config"
)

const usage = `Hishab Admin CLI - Management commands for the Hishab API

Usage:
  admin <command> [options]

Commands:
  flag-list        List all feature flags
  flag-set         Create or update a feature flag
  flag-delete      Delete a feature flag
  reminder-sweep   Send due recurring-payment reminders now
  broadcast-sweep  Deliver scheduled broadcasts whose send time has passed

Examples:
  # Enable a flag for 25% of users
  admin flag-set --key=new-settlement-ui --enabled --rollout=25

  # Disable a flag without deleting it
  admin flag-set --key=new-settlement-ui

  # Run the reminder sweep with more workers
  admin reminder-sweep --workers=8 --timeout=10m
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "flag-list":
		runFlagList(os.Args[2:])
	case "flag-set":
		runFlagSet(os.Args[2:])
	case "flag-delete":
		runFlagDelete(os.Args[2:])
	case "reminder-sweep":
		runReminderSweep(os.Args[2:])
	case "broadcast-sweep":
		runBroadcastSweep(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage)
		os.Exit(1)
	}
}

// connect loads config and opens the database. Callers own db.Close.
func connect() (*config.Config, *postgres.DB) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")
	return cfg, db
}

func parseTimeout(s string) time.Duration {
	timeout, err := time.ParseDuration(s)
	if err != nil {
		log.Fatalf("Invalid timeout format: %v", err)
	}
	return timeout
}

func runFlagList(args []string) {
	fs := flag.NewFlagSet("flag-list", flag.ExitOnError)
	timeoutStr := fs.String("timeout", "1m", "Timeout for the operation (e.g., 30s, 5m)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	_, db := connect()
	defer db.Close()

	flags := featureflag.NewService(postgres.NewFeatureFlagRepository(db))

	ctx, cancel := context.WithTimeout(context.Background(), parseTimeout(*timeoutStr))
	defer cancel()

	all, err := flags.List(ctx)
	if err != nil {
		log.Fatalf("Failed to list feature flags: %v", err)
	}
	if len(all) == 0 {
		fmt.Println("No feature flags defined")
		return
	}

	fmt.Printf("%-30s %-8s %-8s %s\n", "KEY", "ENABLED", "ROLLOUT", "DESCRIPTION")
	for _, f := range all {
		fmt.Printf("%-30s %-8t %-8d %s\n", f.Key, f.Enabled, f.RolloutPercentage, f.Description)
	}
}

func runFlagSet(args []string) {
	fs := flag.NewFlagSet("flag-set", flag.ExitOnError)

	key := fs.String("key", "", "Flag key (required)")
	enabled := fs.Bool("enabled", false, "Whether the flag is enabled")
	rollout := fs.Int("rollout", 100, "Rollout percentage (0-100)")
	description := fs.String("description", "", "Flag description")
	timeoutStr := fs.String("timeout", "1m", "Timeout for the operation (e.g., 30s, 5m)")

	fs.Usage = func() {
		fmt.Println("Usage: admin flag-set [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Println("  admin flag-set --key=new-settlement-ui --enabled --rollout=25")
		fmt.Println("  admin flag-set --key=new-settlement-ui --enabled --rollout=100")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *key == "" {
		fmt.Println("Error: must specify --key")
		fs.Usage()
		os.Exit(1)
	}

	_, db := connect()
	defer db.Close()

	flags := featureflag.NewService(postgres.NewFeatureFlagRepository(db))

	ctx, cancel := context.WithTimeout(context.Background(), parseTimeout(*timeoutStr))
	defer cancel()

	params := featureflag.UpsertFlagParams{
		Key:               *key,
		Enabled:           enabled,
		RolloutPercentage: rollout,
	}
	if *description != "" {
		params.Description = description
	}

	f, err := flags.Upsert(ctx, params)
	if err != nil {
		log.Fatalf("Failed to upsert feature flag: %v", err)
	}
	fmt.Printf("Flag %q: enabled=%t rollout=%d%%\n", f.Key, f.Enabled, f.RolloutPercentage)
}

func runFlagDelete(args []string) {
	fs := flag.NewFlagSet("flag-delete", flag.ExitOnError)

	key := fs.String("key", "", "Flag key (required)")
	timeoutStr := fs.String("timeout", "1m", "Timeout for the operation (e.g., 30s, 5m)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *key == "" {
		fmt.Println("Error: must specify --key")
		os.Exit(1)
	}

	_, db := connect()
	defer db.Close()

	flags := featureflag.NewService(postgres.NewFeatureFlagRepository(db))

	ctx, cancel := context.WithTimeout(context.Background(), parseTimeout(*timeoutStr))
	defer cancel()

	if err := flags.Delete(ctx, *key); err != nil {
		log.Fatalf("Failed to delete feature flag: %v", err)
	}
	fmt.Printf("Flag %q deleted\n", *key)
}

func runReminderSweep(args []string) {
	fs := flag.NewFlagSet("reminder-sweep", flag.ExitOnError)

	workers := fs.Int("workers", recurring.DefaultWorkerCount, "Number of concurrent workers")
	timeoutStr := fs.String("timeout", "30m", "Timeout for the operation (e.g., 5m, 1h)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, db := connect()
	defer db.Close()

	notifications := buildNotificationService(cfg, db)
	recurringService := recurring.NewServiceWithWorkers(postgres.NewRecurringRepository(db), notifications, *workers)

	ctx, cancel := context.WithTimeout(context.Background(), parseTimeout(*timeoutStr))
	defer cancel()

	log.Printf("Starting reminder sweep with %d workers", *workers)
	startTime := time.Now()

	result, err := recurringService.ProcessReminders(ctx, time.Now())
	if err != nil {
		log.Fatalf("Reminder sweep failed: %v", err)
	}

	fmt.Printf("\n=== Reminder Sweep ===\n")
	fmt.Printf("  Subscriptions checked: %d\n", result.Checked)
	fmt.Printf("  Reminders sent:        %d\n", result.Sent)
	if len(result.Errors) > 0 {
		fmt.Printf("  Errors:                %d\n", len(result.Errors))
		for i, e := range result.Errors {
			if i >= 5 {
				fmt.Printf("    ... and %d more errors\n", len(result.Errors)-5)
				break
			}
			fmt.Printf("    - %s\n", e)
		}
	}

	log.Printf("Reminder sweep completed in %v", time.Since(startTime))
}

func runBroadcastSweep(args []string) {
	fs := flag.NewFlagSet("broadcast-sweep", flag.ExitOnError)
	timeoutStr := fs.String("timeout", "30m", "Timeout for the operation (e.g., 5m, 1h)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, db := connect()
	defer db.Close()

	notifications := buildNotificationService(cfg, db)

	ctx, cancel := context.WithTimeout(context.Background(), parseTimeout(*timeoutStr))
	defer cancel()

	log.Println("Starting broadcast sweep")
	startTime := time.Now()

	result, err := notifications.ProcessDueBroadcasts(ctx, time.Now())
	if err != nil {
		log.Fatalf("Broadcast sweep failed: %v", err)
	}

	fmt.Printf("\n=== Broadcast Sweep ===\n")
	fmt.Printf("  Broadcasts processed: %d\n", result.Processed)
	fmt.Printf("  Recipients delivered: %d\n", result.Delivered)
	fmt.Printf("  Errors:               %d\n", result.Errors)

	log.Printf("Broadcast sweep completed in %v", time.Since(startTime))
}

func buildNotificationService(cfg *config.Config, db *postgres.DB) *notification.Service {
	notificationRepo := postgres.NewNotificationRepository(db)
	userService := user.NewService(postgres.NewUserRepository(db))
	transactionRepo := postgres.NewTransactionRepository(db)

	var messenger notification.Messenger
	if cfg.Firebase.CredentialsFile != "" {
		client, err := firebase.NewClient(context.Background(), cfg.Firebase.CredentialsFile, notificationRepo.DeactivateToken)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase client: %v", err)
		}
		messenger = client
	} else {
		log.Println("FIREBASE_CREDENTIALS_FILE not set, push delivery disabled")
	}

	return notification.NewService(notificationRepo, messenger, userService, transactionRepo)
}
