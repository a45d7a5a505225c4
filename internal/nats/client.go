package nats

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"outfitter-service/internal/models"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Event types
const (
	EventContractSent          = "contract.sent"
	EventContractClientSigned  = "contract.client_signed"
	EventContractFullyExecuted = "contract.fully_executed"
	EventContractCancelled     = "contract.cancelled"
	EventPaymentItemCreated    = "payment_item.created"
	EventHuntProjected         = "hunt.projected"
)

// ContractEvent is published on contract lifecycle transitions
type ContractEvent struct {
	EventType   string    `json:"event_type"`
	ContractID  string    `json:"contract_id"`
	OutfitterID string    `json:"outfitter_id"`
	HuntID      string    `json:"hunt_id,omitempty"`
	ClientEmail string    `json:"client_email"`
	Status      string    `json:"status"`
	EnvelopeID  string    `json:"envelope_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// PaymentItemCreatedEvent is published when the settlement trigger creates a
// payment item
type PaymentItemCreatedEvent struct {
	EventType     string    `json:"event_type"`
	PaymentItemID string    `json:"payment_item_id"`
	OutfitterID   string    `json:"outfitter_id"`
	ContractID    string    `json:"contract_id,omitempty"`
	ClientEmail   string    `json:"client_email"`
	ItemType      string    `json:"item_type"`
	TotalCents    int64     `json:"total_cents"`
	Timestamp     time.Time `json:"timestamp"`
}

// HuntProjectedEvent is published when a hunt is created or updated from an
// executed contract
type HuntProjectedEvent struct {
	EventType   string    `json:"event_type"`
	HuntID      string    `json:"hunt_id"`
	OutfitterID string    `json:"outfitter_id"`
	ContractID  string    `json:"contract_id"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

// Client wraps the NATS connection
type Client struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// Config holds NATS connection configuration
type Config struct {
	URL string
}

// DefaultConfig returns the default NATS configuration
func DefaultConfig() *Config {
	url := os.Getenv("NATS_URL")
	if url == "" {
		url = nats.DefaultURL
	}
	return &Config{URL: url}
}

// NewClient creates a new NATS client
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	log.Printf("[NATS] Connecting to %s", cfg.URL)

	opts := []nats.Option{
		nats.Name("outfitter-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("[NATS] Disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[NATS] Reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Printf("[NATS] Connection closed")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	// Ensure the outfitter events stream exists. LimitsPolicy allows multiple
	// consumers (billing, notification, analytics).
	_, err = js.AddStream(&nats.StreamConfig{
		Name:        "OUTFITTER_EVENTS",
		Description: "Stream for contract, payment and hunt lifecycle events",
		Subjects:    []string{"contract.>", "payment_item.>", "hunt.>"},
		Storage:     nats.FileStorage,
		Retention:   nats.LimitsPolicy,
		MaxAge:      24 * time.Hour * 7,
		MaxMsgs:     100000,
		Discard:     nats.DiscardOld,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		log.Printf("[NATS] Warning: Could not create stream (may already exist): %v", err)
	}

	log.Printf("[NATS] Connected successfully to %s", cfg.URL)

	return &Client{conn: conn, js: js}, nil
}

// Close drains and closes the connection
func (c *Client) Close() {
	if c == nil || c.conn == nil {
		return
	}
	c.conn.Close()
}

// IsConnected reports connection health for readiness checks
func (c *Client) IsConnected() bool {
	return c != nil && c.conn != nil && c.conn.IsConnected()
}

// publish marshals and publishes an event on its subject
func (c *Client) publish(subject string, event interface{}) error {
	if c == nil || c.js == nil {
		return fmt.Errorf("NATS client not initialized")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := c.js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

// PublishContractEvent publishes a contract lifecycle event
func (c *Client) PublishContractEvent(eventType string, contract *models.HuntContract) error {
	event := &ContractEvent{
		EventType:   eventType,
		ContractID:  contract.ID.String(),
		OutfitterID: contract.OutfitterID.String(),
		ClientEmail: contract.ClientEmail,
		Status:      string(contract.Status),
		EnvelopeID:  contract.EnvelopeID,
		Timestamp:   time.Now().UTC(),
	}
	if contract.HuntID != nil {
		event.HuntID = contract.HuntID.String()
	}
	return c.publish(eventType, event)
}

// PublishPaymentItemCreated publishes a payment item created event
func (c *Client) PublishPaymentItemCreated(item *models.PaymentItem) error {
	event := &PaymentItemCreatedEvent{
		EventType:     EventPaymentItemCreated,
		PaymentItemID: item.ID.String(),
		OutfitterID:   item.OutfitterID.String(),
		ClientEmail:   item.ClientEmail,
		ItemType:      item.ItemType,
		TotalCents:    item.TotalCents,
		Timestamp:     time.Now().UTC(),
	}
	if item.ContractID != nil {
		event.ContractID = item.ContractID.String()
	}
	return c.publish(EventPaymentItemCreated, event)
}

// PublishHuntProjected publishes a hunt projected event
func (c *Client) PublishHuntProjected(hunt *models.Hunt, contractID uuid.UUID) error {
	event := &HuntProjectedEvent{
		EventType:   EventHuntProjected,
		HuntID:      hunt.ID.String(),
		OutfitterID: hunt.OutfitterID.String(),
		ContractID:  contractID.String(),
		Status:      hunt.Status,
		Timestamp:   time.Now().UTC(),
	}
	return c.publish(EventHuntProjected, event)
}
