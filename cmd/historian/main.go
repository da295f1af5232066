// cmd/historian/main.go runs the announcement historian: it pops announcement
// records from the Redis queue and persists them to Postgres.
package main

import (
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/pietjesbak/puppies/internal/historian"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	svc := historian.NewService(logger)
	go svc.Run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	svc.Stop()
	logger.Info("historian shutdown complete")
}
