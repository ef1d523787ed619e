package main

import (
	"context"
	"log"

	"hishab/internal/domain/featureflag"
	"hishab/internal/domain/group"
	"hishab/internal/domain/notification"
	"hishab/internal/domain/recurring"
	"hishab/internal/domain/transaction"
	"hishab/internal/domain/user"
	"hishab/internal/infrastructure/firebase"
	"hishab/internal/infrastructure/postgres"
	httphandlers "hishab/internal/interfaces/http"
	"hishab/internal/shared/auth"
	"hishab/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	AuthHandler         *httphandlers.AuthHandler
	UserHandler         *httphandlers.UserHandler
	GroupHandler        *httphandlers.GroupHandler
	TransactionHandler  *httphandlers.TransactionHandler
	RecurringHandler    *httphandlers.RecurringHandler
	FeatureFlagHandler  *httphandlers.FeatureFlagHandler
	NotificationHandler *httphandlers.NotificationHandler

	// Auth
	JWT *auth.JWT

	// Services the scheduler sweeps drive
	RecurringService    *recurring.Service
	NotificationService *notification.Service
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	// Connect to database
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	groupRepo := postgres.NewGroupRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	recurringRepo := postgres.NewRecurringRepository(db)
	flagRepo := postgres.NewFeatureFlagRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	// FCM client. Without credentials pushes are skipped but the API
	// stays fully functional.
	var messenger notification.Messenger
	if cfg.Firebase.CredentialsFile != "" {
		fcmClient, err := firebase.NewClient(ctx, cfg.Firebase.CredentialsFile, notificationRepo.DeactivateToken)
		if err != nil {
			db.Close()
			return nil, err
		}
		messenger = fcmClient
	} else {
		log.Println("FIREBASE_CREDENTIALS_FILE not set, push delivery disabled")
	}

	// Initialize domain services
	userService := user.NewService(userRepo)
	notificationService := notification.NewService(notificationRepo, messenger, userService, transactionRepo)
	events := notification.NewEvents(notificationService, groupRepo, userService)
	transactionService := transaction.NewService(transactionRepo, events, groupRepo)
	groupService := group.NewService(groupRepo, transaction.NewLedgerSource(transactionRepo), userService, events)
	recurringService := recurring.NewServiceWithWorkers(recurringRepo, notificationService, cfg.Scheduler.WorkerCount)
	flagService := featureflag.NewService(flagRepo)

	// Initialize auth components
	jwt := auth.NewJWT(cfg.JWT.Secret)

	return &Dependencies{
		DB:                  db,
		AuthHandler:         httphandlers.NewAuthHandler(userService, jwt),
		UserHandler:         httphandlers.NewUserHandler(userService),
		GroupHandler:        httphandlers.NewGroupHandler(groupService, transactionService),
		TransactionHandler:  httphandlers.NewTransactionHandler(transactionService),
		RecurringHandler:    httphandlers.NewRecurringHandler(recurringService),
		FeatureFlagHandler:  httphandlers.NewFeatureFlagHandler(flagService, userService),
		NotificationHandler: httphandlers.NewNotificationHandler(notificationService, userService),
		JWT:                 jwt,
		RecurringService:    recurringService,
		NotificationService: notificationService,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
