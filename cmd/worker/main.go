package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dw-outreach/outreach/backend/internal/config"
	"github.com/dw-outreach/outreach/backend/internal/queue"
	"github.com/dw-outreach/outreach/backend/internal/storage"
	"github.com/dw-outreach/outreach/backend/internal/util"
	"github.com/dw-outreach/outreach/backend/pkg/logger"
	"github.com/dw-outreach/outreach/backend/pkg/logger/console"
	"github.com/dw-outreach/outreach/backend/pkg/store"
	"github.com/dw-outreach/outreach/backend/pkg/store/connect"

	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		JSON:   util.GetEnv("LOG_FORMAT") == "json",
		Prefix: "worker",
	})
	logger.Init(consoleLogger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}

	// Init s3 client
	objects, err := storage.NewS3Client(ctx, storage.NewParamsFromEnv())
	if err != nil {
		logger.Fatal("Could not create S3 client", "err", err)
	}

	// the database may still be starting alongside the worker
	dbCfg := store.DatabaseConfigFromEnv()
	networkStore, err := util.RetryWithContext(ctx, 5, 2*time.Second, func(ctx context.Context) (store.NetworkStore, error) {
		return connect.Open(ctx, dbCfg)
	})
	if err != nil {
		logger.Fatal("Unable to open network store", "err", err)
	}
	defer networkStore.Close()

	// Init rabbitmq
	conn, err := queue.Init()
	if err != nil {
		logger.Fatal("Unable to reach broker", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	// prefetch=1: only one snapshot renders at a time
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	deps := queue.SnapshotDeps{
		Store:   networkStore,
		Objects: objects,
		Layout:  cfg.Layout,
		Lease:   time.Duration(util.GetEnvNumeric("SNAPSHOT_LEASE_SECONDS", 300)) * time.Second,
	}

	type queuedMessage struct {
		msg       amqp.Delivery
		queueName string
	}

	messageChan := make(chan queuedMessage)

	for _, queueName := range queue.Queues {
		go func(qName string) {
			msgs, err := consumerCh.Consume(
				qName,
				fmt.Sprintf("%s_consumer", qName),
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if err != nil {
				logger.Fatal("Failed to start consuming", "queue", qName, "err", err)
			}

			for {
				select {
				case <-ctx.Done():
					logger.Info("Stopping consumer", "queue", qName)
					return
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("Message channel closed", "queue", qName)
						return
					}
					messageChan <- queuedMessage{msg: msg, queueName: qName}
				}
			}
		}(queueName)
	}

	logger.Info("Listening for messages", "queues", queue.Queues)

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case qm := <-messageChan:
				startTime := time.Now()
				logger.Info("Received message", "queue", qm.queueName)

				var processingErr error
				switch qm.queueName {
				case queue.SnapshotQueue:
					processingErr = queue.ProcessSnapshotMessage(ctx, deps, qm.msg.Body)
				default:
					processingErr = fmt.Errorf("no handler for queue %s", qm.queueName)
				}

				if processingErr != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", processingErr)
					dead := queue.HandleProcessingError(ctx, ch, qm.msg, qm.queueName, qm.msg.Body, qm.msg.Headers)
					if dead && qm.queueName == queue.SnapshotQueue {
						queue.FailSnapshotMessage(ctx, networkStore, qm.msg.Body, processingErr)
					}
				} else {
					if err := qm.msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", qm.queueName)
				}

				logger.Info("Processing time", "duration", time.Since(startTime).Round(time.Millisecond))
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}
