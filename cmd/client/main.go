package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"consult-gateway/internal/client"
	"consult-gateway/internal/config"
	"consult-gateway/internal/infra/kafka"
	"consult-gateway/internal/infra/mq"
	"consult-gateway/internal/infra/rabbitmq"
	"consult-gateway/internal/logging"
	"consult-gateway/internal/metrics"
	"consult-gateway/internal/protocol/consult"
	"consult-gateway/internal/usecase"
	monitor "consult-gateway/internal/usecase/consult"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	// 1. 配置加载
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.Log)
	defer logger.Sync()

	// 2. 寄存器表与采集参数
	cat, err := consult.NewDefaultCatalog()
	if err != nil {
		logger.Fatal("Invalid register catalog", zap.Error(err))
	}
	ids, err := selectParameters(cat, cfg.Stream.Parameters)
	if err != nil {
		logger.Fatal("Invalid stream parameters", zap.Error(err))
	}
	if err := cat.Select(ids); err != nil {
		logger.Fatal("Failed to enable parameters", zap.Error(err))
	}

	// 3. 指标
	m := metrics.New()
	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Listen, m, logger)
	}

	// 4. 消息队列与分发器
	producer := newProducer(cfg.MessageQueue, logger)
	defer producer.Close()

	dispatcher := usecase.NewDataDispatcher(producer, cfg.Dispatcher.Workers, cfg.Dispatcher.Buffer, cfg.MessageQueue.Kafka.Topic, logger)
	dispatcher.SetDropCounter(m.Dropped)
	dispatcher.Start()
	defer dispatcher.Stop()

	// 5. ECU 链路
	link, source, err := client.Open(cfg.Link, logger)
	if err != nil {
		logger.Fatal("Failed to open ECU link", zap.Error(err))
	}
	defer link.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mon := monitor.NewMonitor(cat, link, dispatcher, m, logger, monitor.MonitorConfig{
		Source:           source,
		HandshakeTimeout: cfg.Link.HandshakeTimeout,
		StopAckTimeout:   cfg.Link.StopAckTimeout,
	})
	if err := mon.Run(ctx); err != nil {
		logger.Error("Monitor failed", zap.Error(err))
		return
	}
	logger.Info("Shutting down...")
}

// selectParameters 将配置中的参数 key 解析为参数标识
func selectParameters(cat *consult.Catalog, keys []string) ([]consult.ParamID, error) {
	if len(keys) == 0 {
		return nil, monitor.ErrEmptySelection
	}
	ids := make([]consult.ParamID, 0, len(keys))
	for _, key := range keys {
		id, ok := cat.ParseKey(key)
		if !ok {
			return nil, errors.New("unknown parameter key: " + key)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func newProducer(cfg config.MessageQueueConfig, logger *zap.Logger) mq.Producer {
	if !cfg.Enabled {
		return mq.NewLogProducer(logger)
	}
	switch cfg.Type {
	case config.QueueKafka:
		p, err := kafka.NewKafkaProducer(cfg.Kafka, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Kafka producer", zap.Error(err))
		}
		return p
	case config.QueueRabbitMQ:
		p, err := rabbitmq.NewRabbitMQProducer(cfg.RabbitMQ, logger)
		if err != nil {
			logger.Fatal("Failed to initialize RabbitMQ producer", zap.Error(err))
		}
		return p
	default:
		logger.Fatal("Unsupported message queue type", zap.String("type", cfg.Type))
		return nil
	}
}

func serveMetrics(addr string, m *metrics.Metrics, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	logger.Info("Serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server stopped", zap.Error(err))
	}
}
