package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go-pointage/internal/calendar"
	"go-pointage/internal/config"
	"go-pointage/internal/events"
	"go-pointage/internal/hourbank"
	"go-pointage/internal/messaging/kafka/consumer"
	"go-pointage/internal/shared/connection"
	"go-pointage/internal/shared/keylock"
	"go-pointage/internal/timesheet"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// RunConsumer opens the current month's timesheet for each created employee.
func RunConsumer(cfg *config.Config) error {
	logger := zap.L().Named("app.consumer")

	gormDB, err := connection.ConnectGORMWithRetry(cfg.Database)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if cfg.Kafka.Broker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	timesheetRepo := timesheet.NewRepository(gormDB)
	hourBankRepo := hourbank.NewRepository(gormDB)
	calc := calendar.NewCalculator(calendar.Config{WorkingDays: cfg.Pointage.WorkingDays})
	loader := timesheet.NewLoader(timesheetRepo, hourbank.NewBalanceReader(hourBankRepo), calc)
	timesheetService := timesheet.NewService(sqlDB, timesheetRepo, loader, keylock.New(), timesheet.Options{
		MaxDailyHours: cfg.Pointage.MaxDailyHours,
	}, logger)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        []string{cfg.Kafka.Broker},
		Topic:          events.EmployeeLifecycleTopic,
		GroupID:        cfg.Kafka.ConsumerGroup,
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go consumer.ConsumeEmployeeLifecycle(ctx, reader, timesheetService, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("consumer shutting down")
	cancel()

	return nil
}
