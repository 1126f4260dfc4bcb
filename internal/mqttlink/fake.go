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

package mqttlink

import (
	"strings"
	"sync"
)

// Message is one recorded publish.
type Message struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// Fake records publishes and delivers injected messages to subscribers.
type Fake struct {
	mu           sync.Mutex
	Published    []Message
	PublishError error
	Disconnected bool
	Closed       bool
	subs         map[string]Handler
}

func NewFake() *Fake {
	return &Fake{subs: map[string]Handler{}}
}

func (f *Fake) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Published = append(f.Published, Message{topic, qos, retained, append([]byte(nil), payload...)})
	return nil
}

func (f *Fake) Subscribe(topic string, h Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[topic] = h
	return nil
}

func (f *Fake) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.Disconnected
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Messages returns a copy of everything published so far.
func (f *Fake) Messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.Published...)
}

// Deliver hands payload to every subscription whose filter matches topic.
// It reports whether any subscriber got it.
func (f *Fake) Deliver(topic string, payload []byte) bool {
	f.mu.Lock()
	var hs []Handler
	for filter, h := range f.subs {
		if Match(filter, topic) {
			hs = append(hs, h)
		}
	}
	f.mu.Unlock()
	for _, h := range hs {
		h(topic, payload)
	}
	return len(hs) > 0
}

// Match reports whether an MQTT topic filter with + and # wildcards
// matches topic.
func Match(filter, topic string) bool {
	fs := strings.Split(filter, "/")
	ts := strings.Split(topic, "/")
	for i, f := range fs {
		if f == "#" {
			return true
		}
		if i >= len(ts) {
			return false
		}
		if f != "+" && f != ts[i] {
			return false
		}
	}
	return len(fs) == len(ts)
}
