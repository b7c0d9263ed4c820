package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	"github.com/jonboulle/clockwork"

	config "github.com/friendsofpifa/pifa-services/configs"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/auth"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/broker"
	apidb "github.com/friendsofpifa/pifa-services/internal/apisvc/db"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/engine"
	handlers "github.com/friendsofpifa/pifa-services/internal/apisvc/handlers"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/service"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/store"
	"github.com/friendsofpifa/pifa-services/internal/db"
	nats "github.com/friendsofpifa/pifa-services/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "api"

var instanceId string

func init() {
	instanceId = "001"
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	ctx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// pg connection
	dbpool, err := apidb.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer apidb.ClosePool()
	log.Printf("pg connection established successfully")

	// mongo holds magic-link tokens only
	mongoDB, cancelMongo, err := db.ConnectToDB()
	if err != nil {
		log.Fatalf("Failed to connect to mongo: %v", err)
	}
	defer cancelMongo()
	db.CreateTTLIndexForCollection(mongoDB, "magic_link_tokens")

	userStore := store.NewUserStore(dbpool)
	sportStore := store.NewSportStore(dbpool)
	assetStore := store.NewAssetStore(dbpool)
	leagueStore := store.NewLeagueStore(dbpool)
	participantStore := store.NewParticipantStore(dbpool)
	auctionStore := store.NewAuctionStore(dbpool)
	bidStore := store.NewBidStore(dbpool)
	scoringStore := store.NewScoringStore(dbpool)
	fixtureStore := store.NewFixtureStore(dbpool)

	// Connect to NATS
	n, err := nats.Connect()
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(0)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	b := broker.NewBroker(n.Conn)

	jwt := auth.NewJWT()
	tokenStore := auth.NewTokenStore(mongoDB)

	userService := service.NewUserService(userStore)
	authService := service.NewAuthService(userService, tokenStore, jwt)
	sportService := service.NewSportService(sportStore, assetStore)
	leagueService := service.NewLeagueService(leagueStore, participantStore,
		sportStore, assetStore, auctionStore, scoringStore)
	scoringService := service.NewScoringService(scoringStore, leagueStore, sportStore)
	fixtureService := service.NewFixtureService(fixtureStore, leagueStore)

	hub := engine.NewHub()
	defer hub.Close()
	auctionService := service.NewAuctionService(ctx, auctionStore, bidStore,
		leagueStore, participantStore, assetStore, hub, b, clockwork.NewRealClock())

	b.LeagueService = leagueService
	b.AuctionService = auctionService

	// respawn actors for auctions that were live before the restart
	if err := auctionService.RestoreOpenAuctions(ctx); err != nil {
		log.Fatalf("Failed to restore open auctions: %v", err)
	}

	// subscribe to socket service snapshot requests
	sub, err := b.SubscribeSocketService()
	if err != nil {
		log.Errorf("Error: unable to subscribe to queue %v", err)
		os.Exit(0)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	rateLimitStr := os.Getenv("RATE_LIMIT")
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		log.Fatalf("Invalid RATE_LIMIT value: %v", err)
	}
	r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(jwt, b, userService, authService, leagueService,
		auctionService, sportService, scoringService, fixtureService)
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + os.Getenv("API_SERVICE_PORT"),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	sub.Unsubscribe()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
