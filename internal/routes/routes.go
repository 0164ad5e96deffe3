package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/fahad-m/CarRentBack/internal/changefeed"
	"github.com/fahad-m/CarRentBack/internal/config"
	"github.com/fahad-m/CarRentBack/internal/handlers"
	"github.com/fahad-m/CarRentBack/internal/middleware"
	"github.com/fahad-m/CarRentBack/internal/repository"
	"github.com/fahad-m/CarRentBack/internal/services"
	chatws "github.com/fahad-m/CarRentBack/internal/websocket"
)

func RegisterRoutes(
	app *fiber.App,
	cfg *config.Config,
	db *pgxpool.Pool,
	feed *changefeed.Broker,
	log logrus.FieldLogger,
) error {
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	carRepo := repository.NewCarRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	authHandler := handlers.NewAuthHandler(db, userRepo, profileRepo, cfg.JWTSecret)

	chatHub := chatws.NewHub(log)
	go chatHub.Run()

	chatService := services.NewChatService(
		conversationRepo,
		messageRepo,
		profileRepo,
		carRepo,
		userRepo,
		feed,
		log,
	)
	chatHandler := handlers.NewChatHandler(chatService, chatHub, feed, cfg.JWTSecret, log)

	unreadService := services.NewUnreadService(messageRepo, conversationRepo, log)
	if err := unreadService.Watch(feed, func(userID string, count int) {
		chatHub.SendFrame(userID, chatws.Frame{
			Type:  "unread",
			Count: count,
			Badge: unreadService.Badge(count),
		})
	}); err != nil {
		return err
	}
	mailboxHandler := handlers.NewMailboxHandler(unreadService)

	bookingService := services.NewBookingService(bookingRepo, notificationRepo, carRepo, log)
	bookingHandler := handlers.NewBookingHandler(bookingService)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	conversations := authProtected.Group("/conversations")
	conversations.Get("", chatHandler.ListConversations)
	conversations.Post("", chatHandler.StartConversation)
	conversations.Get("/:id/messages", chatHandler.GetMessages)

	mailbox := authProtected.Group("/mailbox")
	mailbox.Get("/unread", mailboxHandler.GetUnread)

	bookings := authProtected.Group("/bookings")
	bookings.Post("", bookingHandler.CreateBooking)
	bookings.Get("/pending", bookingHandler.ListPending)
	bookings.Put("/:id/status", bookingHandler.UpdateStatus)

	notifications := authProtected.Group("/notifications")
	notifications.Get("", bookingHandler.ListNotifications)
	notifications.Post("/:id/read", bookingHandler.MarkNotificationRead)

	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))

	return nil
}
