package main

import (
	"context"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"furnimarket/internal/adapter/api"
	"furnimarket/internal/adapter/api/handler"
	apimiddleware "furnimarket/internal/adapter/api/middleware"
	"furnimarket/internal/adapter/api/router"
	"furnimarket/internal/adapter/repository"
	"furnimarket/internal/infrastructure/firebase"
	"furnimarket/internal/infrastructure/ratelimit"
	"furnimarket/internal/infrastructure/websocket"
	"furnimarket/internal/reconciler"
	"furnimarket/internal/usecase"
	"furnimarket/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opts []option.ClientOption

	// Service account from env var (production) or file path (local dev);
	// with neither, application default credentials apply.
	if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(serviceAccountJSON)))
	} else if serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"); serviceAccountPath != "" {
		if _, err := os.Stat(serviceAccountPath); os.IsNotExist(err) {
			log.Fatalf("Service account file does not exist: %s", serviceAccountPath)
		}
		opts = append(opts, option.WithCredentialsFile(serviceAccountPath))
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	userRepo := repository.NewFirestoreUserRepository(firestoreClient)
	chatRepo := repository.NewFirestoreChatRepository(firestoreClient)
	orderRepo := repository.NewFirestoreOrderRepository(firestoreClient)
	bidRepo := repository.NewFirestoreBidRepository(firestoreClient)
	walletRepo := repository.NewFirestoreWalletRepository(firestoreClient)
	reviewRepo := repository.NewFirestoreReviewRepository(firestoreClient)

	firebaseAuthClient := firebase.NewFirebaseAuthClient(authClient, cfg.FirebaseApiKey)

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	limiter := ratelimit.NewRateLimiter()
	limiter.StartCleanupRoutine()

	chatUseCase := usecase.NewChatUseCase(chatRepo, orderRepo, userRepo, wsManager, limiter)
	orderUseCase := usecase.NewOrderUseCase(orderRepo, bidRepo, reviewRepo, userRepo, chatUseCase, limiter, cfg.PlatformFeeRate)
	walletUseCase := usecase.NewWalletUseCase(walletRepo)

	// Inbound mark_read frames on the websocket go through the same path
	// as the HTTP endpoint.
	wsManager.SetMarkReadHandler(chatUseCase.MarkChatRead)

	badgeHub := reconciler.NewHub(reconciler.NewUseCaseStore(chatUseCase), wsManager,
		reconciler.WithRefreshInterval(cfg.PullInterval))
	defer badgeHub.Shutdown()

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(authClient)

	chatHandler := handler.NewChatHandler(chatUseCase)
	orderHandler := handler.NewOrderHandler(orderUseCase)
	walletHandler := handler.NewWalletHandler(walletUseCase)
	wsHandler := handler.NewWebSocketHandler(wsManager, authMiddleware, badgeHub)
	devTokenHandler := handler.NewDevTokenHandler(firebaseAuthClient, userRepo)

	e.GET("/health", handler.HealthCheck)

	router.SetupOrderRouter(e, orderHandler, authMiddleware)
	router.SetupChatRouter(e, chatHandler, authMiddleware)
	router.SetupWalletRouter(e, walletHandler, authMiddleware)
	router.SetupWebSocketRouter(e, wsHandler)
	router.SetupDevRouter(e, devTokenHandler, cfg.Environment)

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
