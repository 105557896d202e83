package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/irrigation-controller/internal/logic"
)

// bufferCapacity is the number of state messages kept while disconnected.
const bufferCapacity = 256

// Options configures the broker connection.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// RealClient publishes to and receives commands from an actual MQTT broker.
// Commands are delivered on the channel passed to NewRealClient so that all
// state changes happen on the control loop.
type RealClient struct {
	client   paho.Client
	commands chan<- logic.Command

	done      chan struct{}
	closeOnce sync.Once

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealClient creates a client for the given broker. The connection is
// retried in the background, so an unreachable broker is not an error: the
// controller keeps irrigating and resyncs once the broker is back.
func NewRealClient(opts Options, commands chan<- logic.Command) (*RealClient, error) {
	c := &RealClient{
		commands: commands,
		done:     make(chan struct{}),
		buf:      newRingBuffer(bufferCapacity),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     EventOffline,
		Reason:    "LWT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	po := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})
	if opts.Username != "" {
		po.SetUsername(opts.Username).SetPassword(opts.Password)
	}

	c.client = paho.NewClient(po)
	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, retrying in background", opts.Broker)
		return c, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return c, nil
}

// onConnect runs on every (re)connection: it tells the control loop to
// resync, resubscribes so retained commands are replayed, and flushes state
// messages buffered while offline.
func (c *RealClient) onConnect(client paho.Client) {
	log.Printf("mqtt: connected")
	c.deliver(logic.Command{Kind: logic.CommandConnected})

	filters := make(map[string]byte, len(commandTopics))
	for _, topic := range CommandTopics() {
		filters[topic] = 1
	}
	token := client.SubscribeMultiple(filters, c.onMessage)
	if !token.WaitTimeout(5 * time.Second) {
		log.Printf("mqtt: subscribe timeout")
	} else if err := token.Error(); err != nil {
		log.Printf("mqtt: subscribe: %v", err)
	}

	c.mu.Lock()
	pending := c.buf.drainAll()
	c.mu.Unlock()
	for _, msg := range pending {
		t := client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		c.watch(t, msg.topic)
	}
	if len(pending) > 0 {
		log.Printf("mqtt: replayed %d buffered messages", len(pending))
	}
}

func (c *RealClient) onMessage(_ paho.Client, msg paho.Message) {
	if msg.Retained() && !Replayable(msg.Topic()) {
		log.Printf("mqtt: ignoring retained %s", msg.Topic())
		return
	}
	cmd, err := ParseCommand(msg.Topic(), msg.Payload())
	if err != nil {
		log.Printf("mqtt: ignoring message: %v", err)
		return
	}
	c.deliver(cmd)
}

func (c *RealClient) deliver(cmd logic.Command) {
	select {
	case c.commands <- cmd:
	case <-c.done:
	}
}

// watch logs the outcome of a publish without blocking the caller.
func (c *RealClient) watch(token paho.Token, topic string) {
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: publish %s timeout", topic)
			return
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: publish %s: %v", topic, err)
		}
	}()
}

// Publish sends a controller output to the broker without waiting for
// delivery. While disconnected, state messages are buffered and gauges are
// dropped.
func (c *RealClient) Publish(out logic.Output) error {
	r, ok := routes[out.Kind]
	if !ok {
		return nil
	}
	payload, err := FormatPayload(out)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	if !c.client.IsConnectionOpen() {
		if r.buffered {
			c.mu.Lock()
			c.buf.push(bufferedMsg{topic: r.topic, payload: payload, qos: r.qos, retained: r.retained})
			c.mu.Unlock()
		}
		return nil
	}

	c.watch(c.client.Publish(r.topic, r.qos, r.retained, payload), r.topic)
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
// Retained events (startup, shutdown) wait for delivery; others do not.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) - lifecycle events should be delivered
	token := c.client.Publish(TopicSystem, 1, event.Retained, payload)
	if !event.Retained {
		c.watch(token, TopicSystem)
		return nil
	}
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}

	return nil
}

// IsConnected reports whether the broker connection is currently up.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Close stops command delivery and disconnects from the broker.
func (c *RealClient) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}
