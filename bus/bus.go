package bus

import (
	stderrors "errors"
	"strings"
	"time"

	"github.com/irtaza129/datashare/config"
	"github.com/irtaza129/datashare/errors"
)

// Common errors.
var (
	ErrClosed         = stderrors.New("bus closed")
	ErrInvalidQueueID = stderrors.New("invalid queue id")
)

// Message is one payload received from a channel.
type Message struct {
	// Queue is the logical queue the message arrived on.
	Queue string

	// Data is the message payload.
	Data []byte
}

// Subscription is a live consumer feed.
type Subscription interface {
	// Messages returns the delivery channel. It is closed on Unsubscribe
	// or when the bus shuts down.
	Messages() <-chan *Message

	// Unsubscribe cancels the subscription.
	Unsubscribe() error
}

// ConsumerChannel wraps a subscription handed to one consumer. The caller
// owns its lifecycle and must Close it; the bus does not track consumer
// channels after handing them out.
type ConsumerChannel struct {
	queueID    string
	number     int
	sub        Subscription
	deadLetter func(*Message) error
}

// Messages returns the delivery channel.
func (c *ConsumerChannel) Messages() <-chan *Message {
	return c.sub.Messages()
}

// Queue returns the logical queue this channel consumes.
func (c *ConsumerChannel) Queue() string {
	return c.queueID
}

// Number returns the locally unique consumer number, used for diagnostics
// and log correlation only.
func (c *ConsumerChannel) Number() int {
	return c.number
}

// DeadLetter forwards a message this consumer cannot process to the
// configured dead-letter target, breaking redelivery loops.
func (c *ConsumerChannel) DeadLetter(m *Message) error {
	if c.deadLetter == nil {
		return nil
	}
	return c.deadLetter(m)
}

// Close releases the consumer channel.
func (c *ConsumerChannel) Close() error {
	return c.sub.Unsubscribe()
}

// Bus manages one broker connection and the channels derived from it.
//
// Publish channels are opened explicitly per logical queue and tracked in
// a table; publishing on a queue with no open channel is a programming
// contract violation reported as an UNKNOWN_CHANNEL error, never silently
// swallowed. Consumer channels are created on demand and owned by their
// consumers.
type Bus interface {
	// OpenPublishChannel declares the topology for a logical queue and
	// registers a publish channel for it. Repeated calls replace the
	// table entry; topology declaration is idempotent.
	OpenPublishChannel(queueID string) error

	// OpenConsumeChannel creates a fresh consumer channel for a queue,
	// with a locally unique sequential consumer number and the configured
	// dead-letter/in-flight limits applied.
	OpenConsumeChannel(queueID string) (*ConsumerChannel, error)

	// Publish sends a payload on a previously opened publish channel.
	Publish(queueID string, data []byte) error

	// Close closes every tracked publish channel, then the connection.
	// Idempotent and safe on already-closed channels.
	Close() error
}

// Options configures a bus backend.
type Options struct {
	// URL locates the broker.
	URL string

	// Name identifies this client on the broker.
	Name string

	// User and Password for basic auth.
	User     string
	Password string

	// VirtualHost namespaces all queue subjects, so several deployments
	// can share one broker.
	VirtualHost string

	// Heartbeat is the connection liveness interval.
	Heartbeat time.Duration

	// RecoveryInterval is the wait between automatic reconnect attempts.
	RecoveryInterval time.Duration

	// ConnectTimeout bounds the initial connection attempt.
	ConnectTimeout time.Duration

	// DeadLetter is the queue id receiving unprocessable messages.
	DeadLetter string

	// MaxInFlight caps buffered, unprocessed messages per consumer.
	MaxInFlight int
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		URL:              "nats://localhost:4222",
		VirtualHost:      "/",
		Heartbeat:        60 * time.Second,
		RecoveryInterval: 5 * time.Second,
		ConnectTimeout:   5 * time.Second,
		DeadLetter:       "dead-letter",
		MaxInFlight:      10,
	}
}

// OptionsFromConfig maps the loaded configuration onto bus options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		URL:              cfg.BrokerURL(),
		User:             cfg.Broker.User,
		Password:         cfg.Broker.Password,
		VirtualHost:      cfg.Broker.VirtualHost,
		Heartbeat:        cfg.Heartbeat(),
		RecoveryInterval: cfg.RecoveryInterval(),
		ConnectTimeout:   cfg.ConnectTimeout(),
		DeadLetter:       cfg.Channels.DeadLetter,
		MaxInFlight:      cfg.Channels.MaxInFlight,
	}
}

// ValidateQueueID checks a logical queue identity.
func ValidateQueueID(queueID string) error {
	if queueID == "" || strings.ContainsAny(queueID, " \t\r\n") {
		return ErrInvalidQueueID
	}
	return nil
}

// subjectFor renders the broker subject for a queue under a virtual host.
func subjectFor(virtualHost, queueID string) string {
	vh := strings.Trim(virtualHost, "/")
	subject := strings.ReplaceAll(queueID, ":", ".")
	if vh == "" {
		return subject
	}
	return vh + "." + subject
}

// unknownChannel builds the contract-violation error for a queue.
func unknownChannel(queueID string) error {
	return errors.UnknownChannel(queueID)
}
