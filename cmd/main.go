package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/PrinceDelali/kraloan-gobackend/internal/handlers"
	"github.com/PrinceDelali/kraloan-gobackend/internal/middleware"
	"github.com/PrinceDelali/kraloan-gobackend/internal/notify"
	"github.com/PrinceDelali/kraloan-gobackend/internal/paystack"
	"github.com/PrinceDelali/kraloan-gobackend/internal/services"
	"github.com/PrinceDelali/kraloan-gobackend/internal/storage/mongodb"
	"github.com/PrinceDelali/kraloan-gobackend/pkg/logging"
)

func main() {
	// Load .env
	if err := godotenv.Load(".env"); err != nil {
		slog.Warn("no .env file loaded", "error", err)
	}
	logging.Setup()

	uri := os.Getenv("MONGOURI")
	if uri == "" {
		slog.Error("MONGOURI environment variable not set")
		os.Exit(1)
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		slog.Error("JWT_SECRET environment variable not set")
		os.Exit(1)
	}
	paystackSecret := os.Getenv("PAYSTACK_SECRET_KEY")
	if paystackSecret == "" {
		slog.Error("PAYSTACK_SECRET_KEY environment variable not set")
		os.Exit(1)
	}
	webhookSecret := os.Getenv("PAYSTACK_WEBHOOK_SECRET")
	if webhookSecret == "" {
		webhookSecret = paystackSecret
	}

	store, err := mongodb.New(context.Background(), uri, "kraloandb")
	if err != nil {
		slog.Error("failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			slog.Error("error disconnecting from MongoDB", "error", err)
		}
	}()
	slog.Info("connected to MongoDB")

	gateway := paystack.New(paystackSecret, os.Getenv("PAYSTACK_BASE_URL"))
	notifier := notify.LogNotifier{}

	userService := services.NewUserService(store)
	groupService := services.NewGroupService(store, notifier)
	contributionService := services.NewContributionService(store, gateway, notifier)
	loanService := services.NewLoanService(store, notifier)
	payoutService := services.NewPayoutService(store, gateway, notifier)

	userHandler := handlers.NewUserHandler(userService, groupService, []byte(jwtSecret))
	groupHandler := handlers.NewGroupHandler(groupService)
	contributionHandler := handlers.NewContributionHandler(contributionService)
	loanHandler := handlers.NewLoanHandler(loanService)
	payoutHandler := handlers.NewPayoutHandler(payoutService)
	webhookHandler := handlers.NewWebhookHandler(contributionService, []byte(webhookSecret))

	router := mux.NewRouter()
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "HEAD")

	// Public endpoints.
	router.HandleFunc("/api/user", userHandler.Register).Methods("POST")
	router.HandleFunc("/api/login", userHandler.Login).Methods("POST")
	router.HandleFunc("/api/payment/webhook", webhookHandler.Handle).Methods("POST")

	// Authenticated endpoints.
	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth([]byte(jwtSecret)))
	api.HandleFunc("/users", userHandler.GetUsers).Methods("GET")
	api.HandleFunc("/user/transactions", userHandler.Transactions).Methods("GET")

	api.HandleFunc("/group", groupHandler.CreateGroup).Methods("POST")
	api.HandleFunc("/groups", groupHandler.ListGroups).Methods("GET")
	api.HandleFunc("/group/join/{token}", groupHandler.JoinByInvite).Methods("POST")
	api.HandleFunc("/group/{groupID}", groupHandler.GetGroup).Methods("GET")
	api.HandleFunc("/group/{groupID}", groupHandler.UpdateSettings).Methods("PATCH")
	api.HandleFunc("/group/{groupID}", groupHandler.DeleteGroup).Methods("DELETE")
	api.HandleFunc("/group/{groupID}/request", groupHandler.RequestToJoin).Methods("POST")
	api.HandleFunc("/group/{groupID}/request/{userID}/approve", groupHandler.ApproveRequest).Methods("POST")
	api.HandleFunc("/group/{groupID}/request/{userID}/decline", groupHandler.DeclineRequest).Methods("POST")
	api.HandleFunc("/group/{groupID}/member/{userID}", groupHandler.RemoveMember).Methods("DELETE")
	api.HandleFunc("/group/{groupID}/leave", groupHandler.LeaveGroup).Methods("POST")
	api.HandleFunc("/group/{groupID}/transactions", groupHandler.Transactions).Methods("GET")

	api.HandleFunc("/group/{groupID}/contribution", contributionHandler.Contribute).Methods("POST")
	api.HandleFunc("/group/{groupID}/contributions/sync", contributionHandler.Sync).Methods("POST")

	api.HandleFunc("/group/{groupID}/loans", loanHandler.ListLoans).Methods("GET")
	api.HandleFunc("/group/{groupID}/loan", loanHandler.RequestLoan).Methods("POST")
	api.HandleFunc("/group/{groupID}/loan/{loanID}/approve", loanHandler.ApproveLoan).Methods("POST")
	api.HandleFunc("/group/{groupID}/loan/{loanID}/decline", loanHandler.DeclineLoan).Methods("POST")
	api.HandleFunc("/group/{groupID}/loan/{loanID}/repay", loanHandler.RepayLoan).Methods("POST")

	api.HandleFunc("/group/{groupID}/payout", payoutHandler.Initiate).Methods("POST")
	api.HandleFunc("/group/{groupID}/payout/{payoutID}/verify", payoutHandler.Verify).Methods("POST")

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:         "0.0.0.0:" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	slog.Info("server running", "port", port)
	if err := server.ListenAndServe(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
