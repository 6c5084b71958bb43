package main // Entry point package

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/pzklab/dietetics-api/internal/access"
	"github.com/pzklab/dietetics-api/internal/config"
	"github.com/pzklab/dietetics-api/internal/database"
	"github.com/pzklab/dietetics-api/internal/handler"
	"github.com/pzklab/dietetics-api/internal/middleware"
	"github.com/pzklab/dietetics-api/internal/payment"
	"github.com/pzklab/dietetics-api/internal/queue"
	"github.com/pzklab/dietetics-api/internal/ratelimit"
	"github.com/pzklab/dietetics-api/internal/repository"
	"github.com/pzklab/dietetics-api/internal/router"
	queue_publisher "github.com/pzklab/dietetics-api/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	cfg := config.Load()

	db, err := database.Open(database.Config{
		User: cfg.DBUser, Pass: cfg.DBPass,
		Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	// Redis backs the rate limiter and the reviews cache.  Both degrade
	// gracefully when it is unreachable: the limiter falls back to the
	// in-process implementation and the cache middleware becomes a no-op.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; using in-memory rate limiter, response cache disabled")
	}

	rlCfg := config.LoadRateLimitConfig()
	params := ratelimit.Params{
		Capacity:       rlCfg.Capacity,
		RefillTokens:   rlCfg.RefillTokens,
		RefillInterval: rlCfg.RefillInterval,
		TTL:            rlCfg.TTL,
	}
	var limiter ratelimit.Limiter
	if rlCfg.Backend == "redis" && rdb != nil {
		limiter = ratelimit.NewRedisLimiter(rdb, params)
	} else {
		limiter = ratelimit.NewMemoryLimiter(params)
	}
	rl := middleware.RateLimit(rlCfg, limiter)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	grants := repository.NewGrantRepo(db)
	purchases := repository.NewPurchaseRepo(db, grants)
	materials := repository.NewMaterialRepo(db)
	notes := repository.NewNoteRepo(db)
	reviews := repository.NewReviewRepo(db)
	weights := repository.NewWeightRepo(db)

	evaluator := access.NewEvaluator(grants)
	gateway := payment.Gateway{
		MerchantID:   cfg.TpayMerchantID,
		SecurityCode: cfg.TpaySecurityCode,
		BaseURL:      cfg.TpayGatewayURL,
		ReturnURL:    cfg.TpayReturnURL,
	}
	entitlement := time.Duration(cfg.EntitlementDays) * 24 * time.Hour
	orchestrator := payment.NewOrchestrator(purchases, evaluator, gateway, entitlement,
		queue_publisher.NewPurchaseNotifier(users))

	e := echo.New()
	e.Use(echomw.Logger(), echomw.Recover())
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret, rl)
	router.RegisterPublic(e, handler.NewReviewHandler(reviews), handler.NewWebhookHandler(orchestrator), rl, cache)
	router.RegisterPatient(e, router.PatientHandlers{
		Purchases: handler.NewPurchaseHandler(orchestrator, users, purchases, cfg.CatalogURL),
		Materials: handler.NewMaterialHandler(materials, evaluator),
		Notes:     handler.NewNoteHandler(notes, materials, evaluator),
		Reviews:   handler.NewReviewHandler(reviews),
		Weights:   handler.NewWeightHandler(weights, users),
	}, cfg.JWTSecret, rl)
	router.RegisterDietitian(e, handler.NewPatientHandler(users, weights),
		handler.NewWeightHandler(weights, users), cfg.JWTSecret, rl)

	// The mail consumer runs inside the API process; it reconnects on
	// broker failures and never brings the server down.
	go func() {
		if err := queue.StartPurchaseConsumer(); err != nil {
			log.Printf("purchase consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
