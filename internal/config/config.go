package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Link         LinkConfig         `mapstructure:"link"`
	Stream       StreamConfig       `mapstructure:"stream"`
	Log          LogConfig          `mapstructure:"log"`
	MessageQueue MessageQueueConfig `mapstructure:"message_queue"`
	Dispatcher   DispatcherConfig   `mapstructure:"dispatcher"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

// ServerConfig 模拟 ECU 监听配置
type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	Host          string        `mapstructure:"host"`
	Multicore     bool          `mapstructure:"multicore"`
	FrameInterval time.Duration `mapstructure:"frame_interval"`
}

// LinkConfig ECU 链路配置。type 为 serial 时使用 device 和 baud_rate,
// 为 tcp 时连接 address (串口服务器或模拟 ECU)。
type LinkConfig struct {
	Type             string        `mapstructure:"type"`
	Device           string        `mapstructure:"device"`
	BaudRate         int           `mapstructure:"baud_rate"`
	Address          string        `mapstructure:"address"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	StopAckTimeout   time.Duration `mapstructure:"stop_ack_timeout"`
}

// StreamConfig 需要采集的参数, 使用参数 key (如 engine_speed_hr)
type StreamConfig struct {
	Parameters []string `mapstructure:"parameters"`
}

type MessageQueueConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Type     string         `mapstructure:"type"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

type RabbitMQConfig struct {
	URL         string `mapstructure:"url"`
	VirtualHost string `mapstructure:"virtual_host"`
	Exchange    string `mapstructure:"exchange"`
	RoutingKey  string `mapstructure:"routing_key"`
	QueueName   string `mapstructure:"queue_name"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

type DispatcherConfig struct {
	Workers int `mapstructure:"workers"`
	Buffer  int `mapstructure:"buffer"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

const (
	LinkSerial = "serial"
	LinkTCP    = "tcp"

	QueueKafka    = "kafka"
	QueueRabbitMQ = "rabbitmq"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 9600)
	v.SetDefault("server.multicore", false)
	v.SetDefault("server.frame_interval", "100ms")

	v.SetDefault("link.type", LinkSerial)
	v.SetDefault("link.device", "/dev/ttyUSB0")
	v.SetDefault("link.baud_rate", 9600)
	v.SetDefault("link.handshake_timeout", "3s")
	v.SetDefault("link.read_timeout", "2s")
	v.SetDefault("link.stop_ack_timeout", "1s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)

	v.SetDefault("message_queue.enabled", false)
	v.SetDefault("message_queue.kafka.topic", "consult_samples")
	v.SetDefault("message_queue.rabbitmq.exchange", "consult")
	v.SetDefault("message_queue.rabbitmq.routing_key", "consult.samples")

	// 单 worker 保证样本按帧顺序发布
	v.SetDefault("dispatcher.workers", 1)
	v.SetDefault("dispatcher.buffer", 10000)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", ":9101")
}

// LoadConfig 读取配置文件, 环境变量可覆盖同名配置 (LINK_DEVICE 覆盖 link.device)
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 检查互相依赖的配置项
func (c *Config) Validate() error {
	switch c.Link.Type {
	case LinkSerial:
		if c.Link.Device == "" {
			return fmt.Errorf("link.device 不能为空")
		}
	case LinkTCP:
		if c.Link.Address == "" {
			return fmt.Errorf("link.address 不能为空")
		}
	default:
		return fmt.Errorf("不支持的链路类型: %q", c.Link.Type)
	}

	if c.MessageQueue.Enabled {
		switch c.MessageQueue.Type {
		case QueueKafka:
			if len(c.MessageQueue.Kafka.Brokers) == 0 {
				return fmt.Errorf("message_queue.kafka.brokers 不能为空")
			}
		case QueueRabbitMQ:
			if c.MessageQueue.RabbitMQ.URL == "" {
				return fmt.Errorf("message_queue.rabbitmq.url 不能为空")
			}
		default:
			return fmt.Errorf("不支持的消息队列类型: %q", c.MessageQueue.Type)
		}
	}

	if c.Dispatcher.Workers <= 0 {
		return fmt.Errorf("dispatcher.workers 必须大于 0")
	}
	return nil
}
