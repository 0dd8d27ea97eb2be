package router

import (
	"net/http"

	"diasporan-backend/internal/application/availability"
	booksvc "diasporan-backend/internal/application/bookings"
	healthsvc "diasporan-backend/internal/application/health"
	lesvc "diasporan-backend/internal/application/listingevents"
	listsvc "diasporan-backend/internal/application/listings"
	"diasporan-backend/internal/application/notifications"
	profilesvc "diasporan-backend/internal/application/profile"
	reviewsvc "diasporan-backend/internal/application/reviews"
	savedsvc "diasporan-backend/internal/application/saved"
	uploadsvc "diasporan-backend/internal/application/uploads"
	"diasporan-backend/internal/config"
	"diasporan-backend/internal/constants"
	"diasporan-backend/internal/infrastructure/database"
	adminhandler "diasporan-backend/internal/interfaces/handlers/admin"
	bookhandler "diasporan-backend/internal/interfaces/handlers/bookings"
	healthhandler "diasporan-backend/internal/interfaces/handlers/health"
	listhandler "diasporan-backend/internal/interfaces/handlers/listings"
	profilehandler "diasporan-backend/internal/interfaces/handlers/profile"
	reviewhandler "diasporan-backend/internal/interfaces/handlers/reviews"
	savedhandler "diasporan-backend/internal/interfaces/handlers/saved"
	uploadhandler "diasporan-backend/internal/interfaces/handlers/uploads"
	"diasporan-backend/internal/middleware"
	"diasporan-backend/internal/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps lets tests supply an already-open store and Redis client. Nil fields are
// opened from the config.
type Deps struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// CreateApp builds the Fiber app with all global middleware and route registration.
// It returns the store and Redis client so the caller can ping them at startup and
// run background workers on them.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	return CreateAppWith(cfg, Deps{})
}

func CreateAppWith(cfg *config.Config, deps Deps) (*fiber.App, *gorm.DB, *redis.Client, error) {
	db := deps.DB
	if db == nil {
		var err error
		if db, err = database.Open(cfg.DatabaseURL); err != nil {
			return nil, nil, nil, err
		}
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, nil, nil, err
	}

	rdb := deps.Redis
	if rdb == nil && cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rdb = redis.NewClient(opts)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Timeout(cfg.RequestTimeout))
	app.Use(middleware.Authenticate(jwt.New(cfg.SupabaseJWTSecret)))

	// Health
	collector := &healthsvc.Collector{Redis: rdb}
	if sqlDB, err := db.DB(); err == nil {
		collector.DB = sqlDB
	}
	if cfg.SupabaseURL != "" {
		collector.Externals = map[string]string{"supabase": cfg.SupabaseURL}
	}
	hh := &healthhandler.Handlers{Rdb: rdb, Collector: collector, HealthAdminKey: cfg.HealthAdminKey}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	// Services. Bookings subscribe to listing deletion so the cascade shares its transaction.
	var notifier notifications.Sender
	if cfg.BrevoAPIKey != "" {
		notifier = &notifications.BrevoClient{APIKey: cfg.BrevoAPIKey, MailFrom: cfg.MailFrom}
	}
	bookings := &booksvc.Service{DB: db, Notifier: notifier}
	listings := &listsvc.Service{DB: db}
	listings.Subscribe(bookings)
	reviews := &reviewsvc.Service{DB: db}

	api := app.Group("/api/v1")

	// Public catalogue
	lh := &listhandler.Handlers{Service: listings, Checker: &availability.Checker{DB: db}, Reviews: reviews}
	api.Get("/listings/:type", lh.ListListings)
	api.Get("/listings/:type/:id", lh.GetListing)
	api.Get("/listings/:type/:id/availability", lh.CheckAvailability)
	api.Get("/listings/:type/:id/reviews", lh.ListReviews)

	auth := middleware.RequireAuth()
	idempotent := middleware.Idempotency(rdb, cfg.IdempotencyTTL)

	// Bookings
	bh := &bookhandler.Handlers{Service: bookings}
	bg := api.Group("/bookings", auth)
	bg.Post("/", idempotent, bh.CreateBooking)
	bg.Get("/", bh.ListBookings)
	bg.Get("/:id", bh.GetBooking)
	bg.Patch("/:id", bh.UpdateBooking)
	bg.Delete("/:id", bh.CancelBooking)

	// Reviews
	rh := &reviewhandler.Handlers{Service: reviews}
	rg := api.Group("/reviews", auth)
	rg.Get("/eligibility/:booking_id", rh.CanReview)
	rg.Post("/", idempotent, rh.CreateReview)
	rg.Patch("/:id", rh.UpdateReview)
	rg.Delete("/:id", rh.DeleteReview)

	// Saved items
	sh := &savedhandler.Handlers{Service: &savedsvc.Service{DB: db}}
	sg := api.Group("/saved", auth)
	sg.Get("/", sh.ListSaved)
	sg.Post("/", sh.SaveItem)
	sg.Patch("/:id", sh.UpdateNotes)
	sg.Delete("/:id", sh.RemoveSaved)

	// Profile
	ph := &profilehandler.Handlers{Service: &profilesvc.Service{DB: db}}
	api.Get("/profile", auth, ph.GetProfile)
	api.Put("/profile", auth, ph.UpdateProfile)

	// Uploads sign against SUPABASE_URL storage with the service_role key.
	uph := &uploadhandler.Handlers{Service: &uploadsvc.Service{
		Storage:     &uploadsvc.SupabaseStorage{BaseURL: cfg.SupabaseURL, SecretKey: cfg.SupabaseSecretKey},
		SupabaseURL: cfg.SupabaseURL,
	}}
	upg := api.Group("/uploads", auth)
	upg.Post("/review-image", uph.UploadReviewImage)
	upg.Post("/avatar", uph.UploadAvatar)

	// Admin
	ah := &adminhandler.Handlers{Listings: listings, Events: &lesvc.Service{DB: db}}
	manage := middleware.AuthorizePermission(constants.ManageListings)
	ag := api.Group("/admin")
	ag.Post("/listings", manage, ah.CreateListing)
	ag.Get("/listings/:type", middleware.AuthorizePermission(constants.ViewDeleted), ah.ListListings)
	ag.Get("/listing/:id", middleware.AuthorizePermission(constants.ViewDeleted), ah.GetListing)
	ag.Patch("/listing/:id", manage, ah.PatchListing)
	ag.Delete("/listing/:id", manage, ah.DeleteListing)
	ag.Get("/listing/:id/events", middleware.AuthorizePermission(constants.ViewListingEvents), ah.ListingEvents)
	ag.Patch("/bookings/:id/status", middleware.AuthorizePermission(constants.ManageBookings), bh.TransitionBooking)

	return app, db, rdb, nil
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
