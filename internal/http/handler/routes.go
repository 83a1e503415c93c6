package handler

import (
	"github.com/gofiber/fiber/v2"

	"blogapi/internal/http/middleware"
	"blogapi/internal/repository"
	"blogapi/internal/service"
)

// Dependencies are the collaborators the HTTP layer needs.
type Dependencies struct {
	DB     Pinger
	Tokens middleware.TokenVerifier
	Users  repository.UserRepository

	AuthService service.AuthService
	UserService service.UserService
	PostService service.PostService
}

// RegisterRoutes attaches the API routes to app.
func RegisterRoutes(app *fiber.App, d Dependencies) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())

	v1 := app.Group("/v1")

	authRoutes := v1.Group("/auth")
	authRoutes.Post("/register", Register(d.AuthService))
	authRoutes.Post("/login", Login(d.AuthService))
	authRoutes.Post("/refresh", Refresh(d.AuthService))

	authenticate := middleware.Authenticate(d.Tokens, d.Users)

	v1.Get("/users/profile", authenticate, Profile(d.UserService))

	posts := v1.Group("/posts", authenticate)
	posts.Post("/", CreatePost(d.PostService))
	posts.Get("/", ListPosts(d.PostService))
	posts.Get("/authors", ListAuthors(d.PostService))
	posts.Get("/:postId", GetPost(d.PostService))
	posts.Patch("/:postId", UpdatePost(d.PostService))
	posts.Delete("/:postId", DeletePost(d.PostService))
	posts.Get("/:postId/cover", GetPostCover(d.PostService))
}
