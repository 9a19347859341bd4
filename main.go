package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campaignForgeAPI/handlers"
	"campaignForgeAPI/middleware"
	"campaignForgeAPI/services"
	"campaignForgeAPI/store"

	_ "net/http/pprof"
)

var (
	dbPool             *pgxpool.Pool
	dataStore          *store.Store
	userService        *services.UserService
	campaignService    *services.CampaignService
	unlockService      *services.UnlockService
	submissionService  *services.SubmissionService
	leaderboardService *services.LeaderboardService
	teamService        *services.TeamService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to Postgres")

	dataStore = store.New(dbPool)
	if err := dataStore.CreateSchema(ctx); err != nil {
		log.Fatal("Failed to create schema:", err)
	}

	userService = services.NewUserService(dataStore)
	campaignService = services.NewCampaignService(dataStore)
	unlockService = services.NewUnlockService(dataStore)
	submissionService = services.NewSubmissionService(dataStore)
	leaderboardService = services.NewLeaderboardService(dataStore)
	teamService = services.NewTeamService(dataStore)

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	userHandler := handlers.NewUserHandler(userService)
	campaignHandler := handlers.NewCampaignHandler(campaignService, unlockService)
	submissionHandler := handlers.NewSubmissionHandler(submissionService)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)
	teamHandler := handlers.NewTeamHandler(teamService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "campaignForge-api"}`))
	}).Methods("GET")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER (all routes require auth)
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api/v1").Subrouter()

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user", userHandler.Bootstrap).Methods("POST")

	protected.HandleFunc("/campaigns", campaignHandler.Instantiate).Methods("POST")
	protected.HandleFunc("/campaigns/{campaignID}", campaignHandler.GetCampaign).Methods("GET")
	protected.HandleFunc("/campaigns/{campaignID}/join", campaignHandler.JoinCampaign).Methods("POST")
	protected.HandleFunc("/campaigns/{campaignID}/progress", campaignHandler.GetProgress).Methods("GET")
	protected.HandleFunc("/campaigns/{campaignID}/tasks", campaignHandler.GetCampaignTasks).Methods("GET")
	protected.HandleFunc("/campaigns/{campaignID}/tasks/unlocked", campaignHandler.ListUnlockedTasks).Methods("GET")
	protected.HandleFunc("/campaigns/{campaignID}/tasks/{taskID}/unlocked", campaignHandler.IsUnlocked).Methods("GET")

	protected.HandleFunc("/templates/{templateID}/duplicate", campaignHandler.DuplicateTemplate).Methods("POST")

	protected.HandleFunc("/submissions", submissionHandler.CreateOrResubmit).Methods("POST")
	protected.HandleFunc("/submissions/bulk-review", submissionHandler.BulkReview).Methods("POST")
	protected.HandleFunc("/submissions/{submissionID}", submissionHandler.GetSubmission).Methods("GET")
	protected.HandleFunc("/submissions/{submissionID}/proofs", submissionHandler.AttachProof).Methods("POST")
	protected.HandleFunc("/proofs/{proofID}/validate", submissionHandler.ValidateProof).Methods("POST")
	protected.HandleFunc("/submissions/{submissionID}/review", submissionHandler.Review).Methods("POST")

	protected.HandleFunc("/leaderboard", leaderboardHandler.Rank).Methods("GET")
	protected.HandleFunc("/leaderboard/top", leaderboardHandler.TopPerformers).Methods("GET")
	protected.HandleFunc("/leaderboard/me", leaderboardHandler.UserRank).Methods("GET")
	protected.HandleFunc("/leaderboard/teams/{teamID}", leaderboardHandler.TeamRank).Methods("GET")

	protected.HandleFunc("/teams", teamHandler.CreateTeam).Methods("POST")
	protected.HandleFunc("/teams/{teamID}", teamHandler.GetTeam).Methods("GET")
	protected.HandleFunc("/teams/{teamID}/join", teamHandler.JoinTeam).Methods("POST")
	protected.HandleFunc("/teams/{teamID}/leave", teamHandler.LeaveTeam).Methods("POST")
	protected.HandleFunc("/teams/{teamID}/transfer-captain", teamHandler.TransferCaptain).Methods("POST")
	protected.HandleFunc("/teams/{teamID}/campaigns/{campaignID}/join", teamHandler.JoinCampaign).Methods("POST")

	// CORS configuration
	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorillaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
