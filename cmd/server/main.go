// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/pietjesbak/puppies/internal/auth"
	"github.com/pietjesbak/puppies/internal/cache"
	"github.com/pietjesbak/puppies/internal/database"
	"github.com/pietjesbak/puppies/internal/handlers"
	"github.com/pietjesbak/puppies/internal/middleware"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if err := auth.Init(); err != nil {
		log.Fatalf("auth init: %v", err)
	}
	if err := database.ConnectDB(); err != nil {
		logger.Warnf("postgres unavailable, accounts and game history disabled: %v", err)
	}
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, announcement history disabled: %v", err)
	}

	mux := http.NewServeMux()

	// user endpoints
	mux.HandleFunc("/user/create", handlers.CreateUserHandler)
	mux.HandleFunc("/user/login", handlers.LoginHandler)
	mux.HandleFunc("/user/claim", handlers.ClaimEphemeralHandler)

	gs := handlers.NewGameServer(logger)

	// game endpoints
	mux.Handle("/game/create", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.CreateGameHandler(gs),
	)))
	mux.Handle("/game/list", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.ListGamesHandler(gs),
	)))
	mux.Handle("/game/start", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.StartGameHandler(gs),
	)))
	mux.Handle("/game/bot", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.AddBotHandler(gs),
	)))

	// game websocket
	mux.Handle("/game/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.GameWSHandler(logger, gs),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
