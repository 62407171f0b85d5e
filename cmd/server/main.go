package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/ntkiet1912/cifastar-booking-engine/internal/booking"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/config"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/database"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/handler"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/notify"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/queue"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/repository"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	cfg := config.Load()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Env == "prod" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	log := logrus.WithField("app", "booking-engine")

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting and response cache disabled")
	}

	// Repositories.
	screeningRepo := repository.NewScreeningRepo(db)
	seatRepo := repository.NewSeatRepo(db)
	screeningSeatRepo := repository.NewScreeningSeatRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	ticketRepo := repository.NewTicketRepo(db)
	priceRepo := repository.NewPriceConfigRepo(db)
	comboRepo := repository.NewComboRepo(db)
	customerRepo := repository.NewCustomerRepo(db)

	// Engine.
	holdTTL := time.Duration(cfg.HoldTTLMin) * time.Minute
	locks := booking.NewLockManager(screeningSeatRepo, screeningRepo, holdTTL)
	pricing := booking.NewPricingEngine(priceRepo, comboRepo, seatRepo, customerRepo,
		float64(cfg.LoyaltyMaxRedeemPct)/100)
	issuer := booking.NewTicketIssuer(ticketRepo, booking.NewQRSigner(cfg.QRSigningSecret), cfg.TicketCodeRetries)
	publisher := notify.NewPublisher(log.WithField("component", "publisher"))
	service := booking.NewService(locks, pricing, issuer, bookingRepo, screeningSeatRepo,
		seatRepo, screeningRepo, customerRepo, publisher, log.WithField("component", "service"))

	// Background workers.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reconciler := booking.NewReconciler(service, screeningSeatRepo, bookingRepo,
		time.Duration(cfg.ReconcileIntervalSec)*time.Second,
		log.WithField("component", "reconciler"))
	go reconciler.Run(ctx)

	consumerLog := log.WithField("component", "consumer")
	go queue.StartNotificationConsumer(queue.BookingConfirmedQueue, consumerLog)
	go queue.StartNotificationConsumer(queue.BookingExpiredQueue, consumerLog)

	// HTTP.
	e := echo.New()
	e.HideBanner = true
	screeningHandler := handler.NewScreeningHandler(screeningRepo, seatRepo, screeningSeatRepo)
	bookingHandler := handler.NewBookingHandler(service, bookingRepo, screeningSeatRepo)
	ticketHandler := handler.NewTicketHandler(service, ticketRepo)
	router.Register(e, screeningHandler, bookingHandler, ticketHandler, cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port
	log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("server starting")
	if err := e.Start(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
