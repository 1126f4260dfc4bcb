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

package modbus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"radvalve/v2/pkg/logger"
	"strings"
	"sync"
	"time"

	wrapper "github.com/grid-x/modbus"
)

const maxBackoff = 30 * time.Second

// Transport is the part of a modbus client used here.
type Transport interface {
	ReadHoldingRegisters(ctx context.Context, address, quantity uint16) ([]byte, error)
	WriteMultipleRegisters(ctx context.Context, address, quantity uint16, value []byte) ([]byte, error)
}

// Dialer (re)connects a Transport.
type Dialer func(ctx context.Context) (Transport, func() error, error)

type Client struct {
	mu     sync.Mutex
	dial   Dialer
	conn   Transport
	close  func() error
	config *Config
	log    *logger.Logger
}

// NewClient connects to the device in config, retrying with backoff
// until it succeeds or ctx ends.
func NewClient(ctx context.Context, config *Config) (*Client, error) {
	return NewClientWithDialer(ctx, config, tcpDialer(config))
}

// NewClientWithDialer is NewClient over a custom connection.
func NewClientWithDialer(ctx context.Context, config *Config, dial Dialer) (*Client, error) {
	c := &Client{
		dial:   dial,
		config: config,
		log:    logger.New("ModbusConn"),
	}
	if err := c.connectWithRetry(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func tcpDialer(config *Config) Dialer {
	return func(ctx context.Context) (Transport, func() error, error) {
		url := fmt.Sprintf("%s:%d", config.Modbus.Host, config.Modbus.Port)
		handler := wrapper.NewTCPClientHandler(url)
		handler.SlaveID = config.Modbus.SlaveID
		handler.Timeout = time.Second * time.Duration(config.Modbus.Timeout)
		handler.ProtocolRecoveryTimeout = 250 * time.Millisecond
		handler.LinkRecoveryTimeout = 5 * time.Second

		if err := handler.Connect(ctx); err != nil {
			return nil, nil, fmt.Errorf("modbus connect %s: %w", url, err)
		}
		return wrapper.NewClient(handler), handler.Close, nil
	}
}

// connectWithRetry tries to connect until success or ctx is done.
func (c *Client) connectWithRetry(ctx context.Context) error {
	backoff := time.Second
	for {
		err := c.connect(ctx)
		if err == nil {
			return nil
		}
		c.log.Error("Modbus connect failed: %v (retrying in %v)", err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// connect safely (re)connects the Modbus client once.
func (c *Client) connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.close != nil {
		_ = c.close()
		c.conn, c.close = nil, nil
	}
	conn, closeFn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.conn, c.close = conn, closeFn
	c.log.Info("Connected to %s:%d", c.config.Modbus.Host, c.config.Modbus.Port)
	return nil
}

// retry runs op, reconnecting once on a connection error.
func (c *Client) retry(ctx context.Context, op func(Transport) error) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			err = errors.New("not connected")
		} else if err = op(conn); err == nil {
			return nil
		}
		if conn != nil && !isConnError(err) {
			c.log.Debug("retry after err: %+v", err)
			continue
		}
		c.log.Error("connection error: %v, reconnecting", err)
		if cerr := c.connect(ctx); cerr != nil {
			return fmt.Errorf("%w (reconnect: %v)", err, cerr)
		}
	}
	return err
}

// WriteRegisters writes quantity holding registers from raw.
func (c *Client) WriteRegisters(ctx context.Context, addr, quantity uint16, raw []byte) error {
	return c.retry(ctx, func(t Transport) error {
		_, err := t.WriteMultipleRegisters(ctx, addr, quantity, raw)
		return err
	})
}

// ReadRegisters reads holding registers, retrying if needed.
func (c *Client) ReadRegisters(ctx context.Context, addr, quantity uint16) ([]byte, error) {
	var data []byte
	err := c.retry(ctx, func(t Transport) error {
		var rerr error
		data, rerr = t.ReadHoldingRegisters(ctx, addr, quantity)
		return rerr
	})
	return data, err
}

// Close closes the underlying connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.close != nil {
		_ = c.close()
		c.conn, c.close = nil, nil
	}
}

// --- helpers ---

func isConnError(err error) bool {
	if err == nil {
		return false
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "closed by the remote host") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "connection refused")
}
