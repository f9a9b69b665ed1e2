package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"workchat/client/internal/broker"
	"workchat/client/internal/config"
	"workchat/client/pkg/logger"
)

func setupDependencies(cfg config.BrokerConfig) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		logger.Fatal("failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&broker.ChatRoom{},
		&broker.Participant{},
		&broker.ChatHistory{},
	)
	if err != nil {
		logger.Fatal("failed to run migrations: %v", err)
	}

	logger.Info("database and Redis connections established, migrations complete")
	return db, rdb
}

func main() {
	logger.Info("starting workchat broker...")

	cfg := config.Load()
	db, rdb := setupDependencies(cfg.Broker)
	storage := broker.NewService(db, rdb)

	hub := broker.NewHub(storage)
	go hub.Run()

	r := gin.Default()
	h := broker.NewHandler(hub, storage, cfg.Broker.JWTSecret)
	h.Register(r)

	server := &http.Server{
		Addr:           cfg.Broker.Port,
		Handler:        r,
		ReadTimeout:    cfg.Broker.ReadTimeout,
		WriteTimeout:   cfg.Broker.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
	logger.Fatal("%v", server.ListenAndServe())
}
