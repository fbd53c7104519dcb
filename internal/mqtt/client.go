package mqtt

import (
	"log/slog"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/algoscene/internal/logging"
)

const (
	defaultBroker = "tcp://localhost:1883"
	tokenTimeout  = 10 * time.Second
	qos           = 1
)

// Publisher sends one message to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Subscriber registers a handler for a topic.
type Subscriber interface {
	Subscribe(topic string, handler paho.MessageHandler) error
}

// Client wraps the Paho MQTT client.
type Client struct {
	client paho.Client
	broker string
	logger *slog.Logger
	mu     sync.Mutex
}

// BrokerURL returns broker when set, then MQTT_URL, then the local default.
func BrokerURL(broker string) string {
	if broker != "" {
		return broker
	}
	if url := os.Getenv("MQTT_URL"); url != "" {
		return url
	}
	return defaultBroker
}

// NewClient creates a new MQTT client but does not connect.
func NewClient(broker, clientID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	broker = BrokerURL(broker)
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)

	return &Client{
		client: paho.NewClient(opts),
		broker: broker,
		logger: logging.NewComponentLogger(logger, "mqtt"),
	}
}

// Broker returns the broker URL the client dials.
func (c *Client) Broker() string { return c.broker }

// Connect attempts to connect to the broker without blocking indefinitely.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Connect()
	if !token.WaitTimeout(tokenTimeout) {
		return &ConnectTimeoutError{Broker: c.broker}
	}
	if err := token.Error(); err != nil {
		return err
	}
	c.logger.Info("connected", slog.String("broker", c.broker))
	return nil
}

// Subscribe subscribes to a topic with the given handler.
func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Subscribe(topic, qos, handler)
	if !token.WaitTimeout(tokenTimeout) {
		return &TimeoutError{Op: "subscribe", Topic: topic}
	}
	if err := token.Error(); err != nil {
		return err
	}
	c.logger.Debug("subscribed", slog.String("topic", topic))
	return nil
}

// Publish sends payload to topic and waits for the broker acknowledgement.
func (c *Client) Publish(topic string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(tokenTimeout) {
		return &TimeoutError{Op: "publish", Topic: topic}
	}
	return token.Error()
}

// Disconnect cleanly disconnects from the broker.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.client.Disconnect(1000)
	c.logger.Info("disconnected", slog.String("broker", c.broker))
}

// IsConnected returns true if the client is connected.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// ConnectTimeoutError indicates connection timed out.
type ConnectTimeoutError struct {
	Broker string
}

func (e *ConnectTimeoutError) Error() string {
	return "mqtt connect timeout: " + e.Broker
}

// TimeoutError indicates a subscribe or publish was not acknowledged in time.
type TimeoutError struct {
	Op    string
	Topic string
}

func (e *TimeoutError) Error() string {
	return "mqtt " + e.Op + " timeout: " + e.Topic
}
