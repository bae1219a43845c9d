package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/lostfound-api/internal/application/auth"
	"github.com/lostfound-api/internal/application/claim"
	"github.com/lostfound-api/internal/application/item"
	"github.com/lostfound-api/internal/application/location"
	"github.com/lostfound-api/internal/application/message"
	"github.com/lostfound-api/internal/application/notification"
	"github.com/lostfound-api/internal/application/user"
	"github.com/lostfound-api/internal/config"
	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/transport/http/handler"
	appmiddleware "github.com/lostfound-api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	required := appmiddleware.RequireIdentity(deps.Identity)
	optional := appmiddleware.OptionalIdentity(deps.Identity)
	admin := appmiddleware.RequireRole(domain.RoleAdmin)

	throttle := func(next http.Handler) http.Handler { return next }
	if deps.AuthLimiter != nil {
		throttle = deps.AuthLimiter.Limit
	}

	notifSvc := notification.NewService(notification.ServiceDeps{Store: deps.Notifications, Dispatcher: deps.Dispatcher})
	authDeps := auth.ServiceDeps{Users: deps.Users, Signer: deps.Signer}
	if deps.Google != nil {
		authDeps.Google = deps.Google
	}
	itemDeps := item.ServiceDeps{
		Items:     deps.Items,
		Claims:    deps.Claims,
		Locations: deps.Locations,
		Images:    deps.Images,
		Notifier:  notifSvc,
	}
	if deps.Categories != nil {
		itemDeps.Cache = deps.Categories
	}
	authSvc := auth.NewService(authDeps)
	userSvc := user.NewService(user.ServiceDeps{Users: deps.Users, Items: deps.Items, Claims: deps.Claims})
	itemSvc := item.NewService(itemDeps)
	claimSvc := claim.NewService(claim.ServiceDeps{Claims: deps.Claims, Items: deps.Items, Users: deps.Users, Notifier: notifSvc})
	locSvc := location.NewService(location.ServiceDeps{Locations: deps.Locations, Items: deps.Items})
	msgSvc := message.NewService(message.ServiceDeps{Messages: deps.Messages, Items: deps.Items, Users: deps.Users, Notifier: notifSvc})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc)
	itemH := handler.NewItemHandler(itemSvc)
	claimH := handler.NewClaimHandler(claimSvc)
	locH := handler.NewLocationHandler(locSvc)
	notifH := handler.NewNotificationHandler(notifSvc)
	msgH := handler.NewMessageHandler(msgSvc)
	userH := handler.NewUserHandler(userSvc)

	if deps.UploadDir != "" {
		prefix := "/" + strings.Trim(deps.UploadURLPrefix, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(deps.UploadDir))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthH.Health)

		r.Route("/auth", func(r chi.Router) {
			r.With(throttle).Post("/register", authH.Register)
			r.With(throttle).Post("/login", authH.Login)
			r.With(throttle).Post("/google", authH.Google)
			r.With(required).Get("/me", authH.Me)
			r.With(required).Put("/change-password", authH.ChangePassword)
		})

		r.Route("/items", func(r chi.Router) {
			r.Get("/categories", itemH.Categories)
			r.With(optional).Get("/", itemH.List)
			r.With(optional).Get("/{id}", itemH.Get)
			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Post("/", itemH.Create)
				r.Put("/{id}", itemH.Update)
				r.Delete("/{id}", itemH.Delete)
			})
		})

		r.Route("/claims", func(r chi.Router) {
			r.Use(required)
			r.Get("/", claimH.List)
			r.Post("/", claimH.Submit)
			r.Get("/{id}", claimH.Get)
			r.Put("/{id}", claimH.Update)
			r.Delete("/{id}", claimH.Delete)
		})

		r.Route("/locations", func(r chi.Router) {
			r.Get("/", locH.List)
			r.Get("/nearest", locH.Nearest)
			r.Get("/{id}", locH.Get)
			r.Group(func(r chi.Router) {
				r.Use(required, admin)
				r.Post("/", locH.Create)
				r.Put("/{id}", locH.Update)
				r.Delete("/{id}", locH.Delete)
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(required)
			r.Get("/", notifH.List)
			r.With(admin).Post("/", notifH.Create)
			r.Put("/mark-all-read", notifH.MarkAllRead)
			r.Get("/{id}", notifH.Get)
			r.Put("/{id}/mark-read", notifH.MarkRead)
			r.Delete("/{id}", notifH.Delete)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Use(required)
			r.Get("/conversations", msgH.Conversations)
			r.Get("/conversations/{userId}", msgH.Thread)
			r.Post("/send", msgH.Send)
			r.Post("/{id}/read", msgH.MarkRead)
			r.Get("/unread-count", msgH.UnreadCount)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(required)
			r.With(admin).Get("/", userH.List)
			r.Get("/items", userH.MyItems)
			r.Get("/claims", userH.MyClaims)
			r.Get("/{id}", userH.Get)
			r.Put("/{id}", userH.Update)
			r.With(admin).Delete("/{id}", userH.Delete)
			r.Get("/{id}/items/found", userH.FoundItems)
			r.Get("/{id}/items/claimed", userH.ClaimedItems)
			r.Get("/{id}/claims", userH.Claims)
		})
	})

	return r
}
