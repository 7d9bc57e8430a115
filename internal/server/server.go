package server

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mansoorceksport/learnify/internal/config"
	"github.com/mansoorceksport/learnify/internal/domain"
	"github.com/mansoorceksport/learnify/internal/handler"
	"github.com/mansoorceksport/learnify/internal/middleware"
	"github.com/mansoorceksport/learnify/internal/repository"
	"github.com/mansoorceksport/learnify/internal/service"
	"github.com/mansoorceksport/learnify/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// idempotencyTTL is how long a replayable response is kept
const idempotencyTTL = 24 * time.Hour

// AppDependencies holds the dependencies required to start the application
type AppDependencies struct {
	Config      *config.Config
	MongoDB     *mongo.Database
	RedisClient *redis.Client
	// Publisher receives a change event after every committed user or course mutation
	Publisher domain.ChangePublisher
	Gateway   service.PaymentGateway
	Files     domain.FileRepository
	Mailer    service.Mailer
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) *fiber.App {
	cfg := deps.Config

	// Initialize repositories
	userRepo := repository.NewNotifyingUserRepository(repository.NewMongoUserRepository(deps.MongoDB), deps.Publisher)
	courseRepo := repository.NewNotifyingCourseRepository(repository.NewMongoCourseRepository(deps.MongoDB), deps.Publisher)
	paymentRepo := repository.NewMongoPaymentRepository(deps.MongoDB)
	statsRepo := repository.NewMongoStatsRepository(deps.MongoDB)

	// Initialize services
	tokenService := service.NewTokenService(cfg.JWT)
	authService := service.NewAuthService(userRepo, deps.Files, tokenService, deps.Mailer, cfg.Server.FrontendURL)
	userService := service.NewUserService(userRepo, courseRepo, deps.Files)
	courseService := service.NewCourseService(courseRepo, deps.Files)
	contactService := service.NewContactService(deps.Mailer, cfg.SMTP.Mailbox)
	dashboardService := service.NewDashboardService(statsRepo)
	subscriptionService := service.NewSubscriptionService(userRepo, paymentRepo, deps.Gateway, service.SubscriptionConfig{
		PlanID:       cfg.Razorpay.PlanID,
		TotalCount:   cfg.Razorpay.TotalCount,
		KeyID:        cfg.Razorpay.KeyID,
		KeySecret:    cfg.Razorpay.KeySecret,
		FrontendURL:  cfg.Server.FrontendURL,
		RefundWindow: cfg.Billing.RefundWindow(),
	})

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, tokenService, cfg.Server.MaxUploadSizeMB)
	userHandler := handler.NewUserHandler(userService, tokenService, cfg.Server.MaxUploadSizeMB)
	courseHandler := handler.NewCourseHandler(courseService, cfg.Server.MaxUploadSizeMB)
	paymentHandler := handler.NewPaymentHandler(subscriptionService)
	statsHandler := handler.NewStatsHandler(dashboardService)
	contactHandler := handler.NewContactHandler(contactService)

	app := fiber.New(fiber.Config{
		AppName:      "Learnify API",
		BodyLimit:    int(cfg.Server.MaxUploadSizeMB * 1024 * 1024),
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.FrontendURL,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))
	app.Use(telemetry.FiberMiddleware("/health"))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "learnify-api",
		})
	})

	authenticated := middleware.Authenticate(tokenService, userRepo)
	idempotent := middleware.IdempotencyMiddleware(deps.RedisClient, idempotencyTTL)
	adminOnly := middleware.AuthorizeRole(domain.RoleAdmin)

	v1 := app.Group("/api/v1")

	// ===========================================
	// PUBLIC
	// ===========================================
	v1.Post("/register", authHandler.Register)
	v1.Post("/login", authHandler.Login)
	v1.Get("/logout", authHandler.Logout)
	v1.Post("/forgetpassword", authHandler.ForgetPassword)
	v1.Put("/resetpassword/:token", authHandler.ResetPassword)
	v1.Get("/courses", courseHandler.ListCourses)
	v1.Get("/razorpaykey", paymentHandler.GetRazorpayKey)
	v1.Post("/contact", contactHandler.Contact)
	v1.Post("/courserequest", contactHandler.RequestCourse)

	// ===========================================
	// ACCOUNT (any logged in user)
	// ===========================================
	v1.Get("/me", authenticated, userHandler.GetMe)
	v1.Delete("/me", authenticated, idempotent, userHandler.DeleteMe)
	v1.Put("/changepassword", authenticated, idempotent, authHandler.ChangePassword)
	v1.Put("/updateprofile", authenticated, idempotent, userHandler.UpdateProfile)
	v1.Put("/updateprofilepicture", authenticated, idempotent, userHandler.UpdateProfilePicture)
	v1.Post("/addtoplaylist", authenticated, idempotent, userHandler.AddToPlaylist)
	v1.Delete("/removefromplaylist", authenticated, idempotent, userHandler.RemoveFromPlaylist)

	// ===========================================
	// SUBSCRIPTION
	// ===========================================
	v1.Get("/subscribe", authenticated, paymentHandler.Subscribe)
	v1.Post("/paymentverification", authenticated, paymentHandler.PaymentVerification)
	v1.Delete("/subscribe/cancel", authenticated, idempotent, paymentHandler.CancelSubscription)

	// ===========================================
	// COURSES
	// ===========================================
	v1.Post("/createcourse", authenticated, adminOnly, idempotent, courseHandler.CreateCourse)
	v1.Get("/course/:id", authenticated, middleware.AuthorizeSubscribers(), courseHandler.GetCourseLectures)
	v1.Post("/course/:id", authenticated, adminOnly, idempotent, courseHandler.AddLecture)
	v1.Delete("/course/:id", authenticated, adminOnly, idempotent, courseHandler.DeleteCourse)
	v1.Delete("/lecture", authenticated, adminOnly, idempotent, courseHandler.DeleteLecture)

	// ===========================================
	// ADMIN
	// ===========================================
	admin := v1.Group("/admin", authenticated, adminOnly)
	admin.Get("/users", userHandler.ListUsers)
	admin.Put("/user/:id", idempotent, userHandler.UpdateUserRole)
	admin.Delete("/user/:id", idempotent, userHandler.DeleteUser)
	admin.Get("/stats", statsHandler.GetDashboardStats)

	return app
}

// customErrorHandler maps domain errors to HTTP status codes
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		log.Printf("[HTTP] %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}

func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrGateway):
		return fiber.StatusBadGateway
	case errors.Is(err, domain.ErrStatsNotBootstrapped):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
