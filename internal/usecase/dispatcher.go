package usecase

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const DefaultTopic = "consult_samples"

type DataDispatcher struct {
	dataChan    chan interface{}
	producer    DataProducer
	logger      *zap.Logger
	topic       string
	workerCount int
	dropped     prometheus.Counter
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewDataDispatcher 创建一个新的数据分发器。
// workerCount 为 1 时按投递顺序发送; 大于 1 时不保证顺序。
func NewDataDispatcher(producer DataProducer, workerCount, buffer int, topic string, logger *zap.Logger) *DataDispatcher {
	if workerCount <= 0 {
		workerCount = 1
	}
	if buffer <= 0 {
		buffer = 10000
	}
	if topic == "" {
		topic = DefaultTopic
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &DataDispatcher{
		dataChan:    make(chan interface{}, buffer), // 带缓冲 Channel，防止阻塞读帧循环
		producer:    producer,
		topic:       topic,
		workerCount: workerCount,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetDropCounter 设置丢弃计数指标, 需在 Start 之前调用
func (d *DataDispatcher) SetDropCounter(c prometheus.Counter) {
	d.dropped = c
}

// Start 启动 worker 协程池
func (d *DataDispatcher) Start() {
	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.logger.Info("DataDispatcher started", zap.Int("workers", d.workerCount), zap.String("topic", d.topic))
}

// Stop 停止分发器并等待所有 worker 退出, 缓冲中尚未发送的数据被丢弃
func (d *DataDispatcher) Stop() {
	d.cancel() // 通知 worker 退出
	d.wg.Wait()
	d.logger.Info("DataDispatcher stopped", zap.Int("discarded", len(d.dataChan)))
}

// Dispatch 将数据投递到缓冲通道 (非阻塞，如果满则丢弃并记录)
func (d *DataDispatcher) Dispatch(data interface{}) bool {
	select {
	case d.dataChan <- data:
		return true
	default:
		if d.dropped != nil {
			d.dropped.Inc()
		}
		d.logger.Warn("DataDispatcher channel full, dropping data")
		return false
	}
}

func (d *DataDispatcher) worker(id int) {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case data := <-d.dataChan:
			d.process(id, data)
		}
	}
}

func (d *DataDispatcher) process(id int, data interface{}) {
	key := ""
	if p, ok := data.(MQPayload); ok {
		key = p.Source
	}
	if err := d.producer.Produce(d.ctx, d.topic, key, data); err != nil {
		d.logger.Error("DataDispatcher failed to send data", zap.Int("worker", id), zap.Error(err))
	}
}
