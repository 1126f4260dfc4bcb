// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package mqttlink wraps a broker connection shared by the sensor
// subscriber and the boiler publisher.
package mqttlink

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"radvalve/v2/pkg/logger"
)

// Handler receives one message.
type Handler func(topic string, payload []byte)

// Client is the broker surface used by the services.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, h Handler) error
	IsConnected() bool
	Close() error
}

// Paho is a Client on a real broker. Subscriptions are restored after a
// reconnect.
type Paho struct {
	client paho.Client
	log    *logger.Logger

	mu   sync.Mutex
	subs map[string]Handler
}

const (
	connectTimeout = 10 * time.Second
	opTimeout      = 5 * time.Second
)

// Dial connects to broker. The status topic, if set, carries a retained
// "online" and a last-will "offline".
func Dial(broker, clientID, statusTopic string) (*Paho, error) {
	p := &Paho{
		log:  logger.New("MQTT"),
		subs: map[string]Handler{},
	}
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.log.Error("connection lost: %v", err)
		})
	if statusTopic != "" {
		opts.SetWill(statusTopic, "offline", 1, true)
	}

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	if statusTopic != "" {
		if err := p.Publish(statusTopic, 1, true, []byte("online")); err != nil {
			p.log.Error("status: %v", err)
		}
	}
	return p, nil
}

func (p *Paho) onConnect(c paho.Client) {
	p.log.Info("connected")
	p.mu.Lock()
	defer p.mu.Unlock()
	for topic, h := range p.subs {
		p.subscribe(c, topic, h)
	}
}

func (p *Paho) subscribe(c paho.Client, topic string, h Handler) {
	token := c.Subscribe(topic, 0, func(_ paho.Client, m paho.Message) {
		h(m.Topic(), m.Payload())
	})
	if !token.WaitTimeout(opTimeout) {
		p.log.Error("subscribe %s: timeout", topic)
		return
	}
	if err := token.Error(); err != nil {
		p.log.Error("subscribe %s: %v", topic, err)
	}
}

func (p *Paho) Subscribe(topic string, h Handler) error {
	p.mu.Lock()
	p.subs[topic] = h
	p.mu.Unlock()

	token := p.client.Subscribe(topic, 0, func(_ paho.Client, m paho.Message) {
		h(m.Topic(), m.Payload())
	})
	if !token.WaitTimeout(opTimeout) {
		return fmt.Errorf("subscribe %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

func (p *Paho) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(opTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *Paho) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

func (p *Paho) Close() error {
	p.client.Disconnect(1000)
	return nil
}
