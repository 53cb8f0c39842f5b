// Package events publishes store lifecycle notifications over MQTT so that
// downstream consumers (search caches, dashboards) can react to admin changes.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/store-locator/internal/geo"
	"github.com/ukydev/store-locator/internal/models"
)

// Event types.
const (
	StoreCreated = "created"
	StoreDeleted = "deleted"
)

const publishTimeout = 5 * time.Second

// StoreEvent is the JSON payload published for every store mutation.
type StoreEvent struct {
	Type       string          `json:"type"`
	StoreID    string          `json:"store_id"`
	Name       string          `json:"name,omitempty"`
	Location   *geo.Coordinate `json:"location,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewStoreCreated builds the event for a freshly inserted store.
func NewStoreCreated(store models.Store) StoreEvent {
	loc := store.Location
	return StoreEvent{Type: StoreCreated, StoreID: store.ID, Name: store.Name, Location: &loc, OccurredAt: time.Now().UTC()}
}

// NewStoreDeleted builds the event for a removed store.
func NewStoreDeleted(id string) StoreEvent {
	return StoreEvent{Type: StoreDeleted, StoreID: id, OccurredAt: time.Now().UTC()}
}

// Publisher delivers store events.
type Publisher interface {
	Publish(ctx context.Context, event StoreEvent) error
	Close()
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, StoreEvent) error { return nil }
func (NoopPublisher) Close()                                    {}

// mqttClient is the subset of mqtt.Client the publisher needs.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes events to <prefix>/stores/<type> with QoS 1.
type MQTTPublisher struct {
	client mqttClient
	prefix string
}

// NewMQTTPublisher connects to broker and returns a ready publisher.
func NewMQTTPublisher(broker, clientID, prefix string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}

	log.WithFields(log.Fields{"broker": broker, "client_id": clientID}).Info("Connected to MQTT broker")
	return newMQTTPublisher(client, prefix), nil
}

func newMQTTPublisher(client mqttClient, prefix string) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix}
}

// Topic returns the topic an event of the given type is published on.
func (p *MQTTPublisher) Topic(eventType string) string {
	return p.prefix + "/stores/" + eventType
}

// Publish sends event and waits for the broker acknowledgement, bounded by
// ctx and a fixed timeout.
func (p *MQTTPublisher) Publish(ctx context.Context, event StoreEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal store event: %w", err)
	}

	token := p.client.Publish(p.Topic(event.Type), 1, false, payload)

	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", p.Topic(event.Type), err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.New("publish " + p.Topic(event.Type) + ": timed out")
	}
}

// Close disconnects from the broker, allowing in-flight work 250ms to finish.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
