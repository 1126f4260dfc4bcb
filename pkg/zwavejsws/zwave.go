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

package zwavejsws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"radvalve/v2/pkg/logger"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// SEE: https://github.com/zwave-js/zwave-js-server#api

// Command class ids used by room sensors.
const (
	CCBinarySensor     = 48
	CCMultilevelSensor = 49
	CCNotification     = 113
)

// Response from zwave-js
type Response struct {
	Type string `json:"type"`

	// result type
	MessageId string          `json:"messageId,omitempty"`
	Success   bool            `json:"success,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`

	// event type
	Event json.RawMessage `json:"event,omitempty"`
}

// Result from a "start_listening" command
type Result struct {
	State State `json:"state"`
}

type State struct {
	Controller struct {
		HomeID uint32 `json:"homeId"`
	} `json:"controller"`
	Nodes json.RawMessage `json:"nodes"`
}

// Node represents a zwave-js node
type Node struct {
	Name     string          `json:"name"`
	Location string          `json:"location"`
	NodeID   int             `json:"nodeId"`
	Values   json.RawMessage `json:"values"`

	CommandClasses []struct {
		Name string `json:"name"`
		ID   int    `json:"id"`
	} `json:"commandClasses"`
}

// HasCommandClass reports whether the node advertises cc.
func (n Node) HasCommandClass(cc int) bool {
	for _, c := range n.CommandClasses {
		if c.ID == cc {
			return true
		}
	}
	return false
}

// Value is one value of a node as listed in the initial state.
type Value struct {
	CommandClass    int      `json:"commandClass"`
	Endpoint        int      `json:"endpoint"`
	Metadata        Metadata `json:"metadata"`
	Property        any      `json:"property"`
	PropertyName    string   `json:"propertyName"`
	PropertyKey     any      `json:"propertyKey,omitempty"`
	PropertyKeyName string   `json:"propertyKeyName,omitempty"`
	Value           any      `json:"value"`
}

type Metadata struct {
	Label string `json:"label,omitempty"`
	Type  string `json:"type,omitempty"`
	Unit  string `json:"unit,omitempty"`
}

// Event represents a parsed zwave-js event
type Event struct {
	Type   string          `json:"event"`
	NodeID int             `json:"nodeId,omitempty"`
	Source string          `json:"source,omitempty"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// UpdatedValue are the Event Args for "value updated" events
type UpdatedValue struct {
	CommandClass    int    `json:"commandClass"`
	Endpoint        int    `json:"endpoint"`
	NewValue        any    `json:"newValue"`
	PrevValue       any    `json:"prevValue"`
	Property        any    `json:"property"`
	PropertyName    string `json:"propertyName"`
	PropertyKey     any    `json:"propertyKey,omitempty"`
	PropertyKeyName string `json:"propertyKeyName,omitempty"`
}

type UpdatedMetadata struct {
	CommandClass int      `json:"commandClass"`
	Endpoint     int      `json:"endpoint"`
	Property     any      `json:"property"`
	PropertyName string   `json:"propertyName"`
	Metadata     Metadata `json:"metadata"`
}

var ErrNotConnected = errors.New("zwave-js: not connected")

// Client keeps a listening session open to a zwave-js server. Callbacks
// run on the goroutine calling Run.
type Client struct {
	url       string
	conn      *websocket.Conn
	mu        sync.Mutex
	onState   func(State)
	onEvent   func(Event)
	retryWait time.Duration
	log       *logger.Logger
}

func NewClient(url string) *Client {
	return &Client{
		url:       url,
		retryWait: 5 * time.Second,
		log:       logger.New("ZWaveJS"),
	}
}

// OnState sets the callback when current state is received
func (c *Client) OnState(fn func(State)) {
	c.onState = fn
}

// OnEvent sets the callback when an event is received
func (c *Client) OnEvent(fn func(Event)) {
	c.onEvent = fn
}

// Connect dials the server and starts listening. It is a no-op when
// already connected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("zwave-js connect %s: %w", c.url, err)
	}

	for _, cmd := range []map[string]any{
		{"messageId": "initialize", "command": "initialize", "schemaVersion": 1},
		{"messageId": "start_listening", "command": "start_listening"},
	} {
		if err := conn.WriteJSON(cmd); err != nil {
			conn.Close()
			return fmt.Errorf("zwave-js %s: %w", cmd["command"], err)
		}
	}

	c.conn = conn
	c.log.Info("Connected")
	return nil
}

// Close drops the connection; Run will reconnect unless its context is done.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		tmpConn := c.conn
		c.conn = nil
		tmpConn.Close()
		c.log.Info("Closed")
	}
}

// Run connects, dispatches messages to the callbacks and reconnects after
// failures until ctx is done.
func (c *Client) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, c.Close)
	defer stop()
	defer c.Close()

	for ctx.Err() == nil {
		if err := c.Connect(ctx); err != nil {
			c.log.Error("%v, retrying in %s", err, c.retryWait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryWait):
			}
			continue
		}
		if err := c.ListenNext(); err != nil {
			if ctx.Err() == nil {
				c.log.Error("%v", err)
			}
			c.Close()
		}
	}
}

// ListenNext reads and dispatches one message.
func (c *Client) ListenNext() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("zwave-js read: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		c.log.Error("Unmarshal of zwave-js message: %v", err)
		return nil
	}

	switch resp.Type {
	case "result":
		return c.handleResponse(resp)
	case "event":
		c.handleEvent(resp)
	case "version":
		// server greeting
	default:
		c.log.Debug("unhandled zwave-js message type: %s", resp.Type)
	}
	return nil
}

// handleResponse processes "result" type messages
func (c *Client) handleResponse(resp Response) error {
	if resp.MessageId == "start_listening" {
		if !resp.Success {
			return errors.New("zwave-js start_listening failed")
		}
		var result Result
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			return fmt.Errorf("zwave-js start_listening result: %w", err)
		}
		if c.onState != nil {
			c.onState(result.State)
		}
		return nil
	}

	if !resp.Success {
		c.log.Error("messageId '%s' failed", resp.MessageId)
	}
	return nil
}

// handleEvent processes "event" type messages
func (c *Client) handleEvent(resp Response) {
	if c.onEvent == nil {
		return
	}
	var event Event
	if err := json.Unmarshal(resp.Event, &event); err != nil {
		c.log.Error("Unmarshal of zwave-js Event: %v", err)
		return
	}
	c.onEvent(event)
}
