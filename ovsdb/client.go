// Copyright 2017 DigitalOcean.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ovsdb

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ovslicer/ovslicer/ovsdb/internal/jsonrpc"
)

// A Client is an OVSDB client. A Client owns a background goroutine that
// reads responses off the wire and dispatches them to the RPC that sent
// the matching request, so concurrent calls from multiple goroutines are
// safe.
type Client struct {
	c  *jsonrpc.Conn
	ll *log.Logger

	echoInterval time.Duration

	nextID int64

	echoSuccess int64
	echoFailure int64

	mu        sync.Mutex
	callbacks map[string]chan *jsonrpc.Response

	closeOnce sync.Once
	done      chan struct{}
}

// An OptionFunc is a function which can configure a Client.
type OptionFunc func(c *Client) error

// Debug enables debug logging for a Client.
func Debug(ll *log.Logger) OptionFunc {
	return func(c *Client) error {
		c.ll = ll
		return nil
	}
}

// EchoInterval configures a Client to send a periodic "echo" RPC at the
// given interval, keeping idle connections to ovsdb-server alive.
func EchoInterval(d time.Duration) OptionFunc {
	return func(c *Client) error {
		c.echoInterval = d
		return nil
	}
}

// Dial dials a connection to an OVSDB server and returns a Client.
func Dial(network, addr string, options ...OptionFunc) (*Client, error) {
	conn, err := net.Dial(network, addr)
	if err != nil {
		return nil, err
	}

	return New(conn, options...)
}

// New wraps an existing connection to an OVSDB server and returns a Client.
func New(conn net.Conn, options ...OptionFunc) (*Client, error) {
	client := &Client{
		callbacks: make(map[string]chan *jsonrpc.Response),
		done:      make(chan struct{}),
	}
	for _, o := range options {
		if err := o(client); err != nil {
			return nil, err
		}
	}

	client.c = jsonrpc.NewConn(conn, client.ll)

	go client.loop()
	if client.echoInterval > 0 {
		go client.echoLoop()
	}

	return client, nil
}

// Close closes a Client's connection and stops its background goroutines.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.c.Close()
}

// ClientStats reports internal Client bookkeeping, useful for detecting
// leaked RPC callbacks in tests.
type ClientStats struct {
	Callbacks CallbackStats
	EchoLoop  EchoLoopStats
}

// CallbackStats reports the number of RPC calls currently awaiting a
// response.
type CallbackStats struct {
	Current int
}

// EchoLoopStats reports the outcome of keepalive "echo" RPCs, whether sent
// on a timer via EchoInterval or in reply to a server-initiated echo
// request.
type EchoLoopStats struct {
	Success int
	Failure int
}

// Stats returns a snapshot of the Client's internal bookkeeping.
func (c *Client) Stats() ClientStats {
	c.mu.Lock()
	n := len(c.callbacks)
	c.mu.Unlock()

	return ClientStats{
		Callbacks: CallbackStats{Current: n},
		EchoLoop: EchoLoopStats{
			Success: int(atomic.LoadInt64(&c.echoSuccess)),
			Failure: int(atomic.LoadInt64(&c.echoFailure)),
		},
	}
}

// loop continuously reads responses and notifications off the wire,
// dispatching responses to the callback registered for their ID. Responses
// with no registered callback (already timed out, or an unsolicited
// notification) are dropped.
func (c *Client) loop() {
	for {
		res, err := c.c.Receive()
		if err != nil {
			return
		}

		if res.Method != "" {
			// A request notification pushed by the server. ovsdb-server
			// periodically pings clients this way; reply in kind so it
			// knows the connection is still alive.
			if res.Method == "echo" {
				go c.echoOnce()
			}
			continue
		}

		if res.ID == nil {
			continue
		}

		c.mu.Lock()
		ch, ok := c.callbacks[*res.ID]
		c.mu.Unlock()

		if !ok {
			continue
		}

		select {
		case ch <- res:
		default:
		}
	}
}

// echoLoop periodically issues an "echo" RPC to keep the connection alive.
func (c *Client) echoLoop() {
	t := time.NewTicker(c.echoInterval)
	defer t.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-t.C:
			go c.echoOnce()
		}
	}
}

// echoOnce issues a single "echo" RPC and records its outcome, whether
// triggered by the EchoInterval timer or by a server-initiated echo
// request.
func (c *Client) echoOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Echo(ctx); err != nil {
		atomic.AddInt64(&c.echoFailure, 1)
		return
	}
	atomic.AddInt64(&c.echoSuccess, 1)
}

// rpc performs a single RPC request, blocking until ctx is done or a
// response arrives, and checks the response for OVSDB-level errors.
func (c *Client) rpc(ctx context.Context, method string, out interface{}, args ...interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id := strconv.FormatInt(atomic.AddInt64(&c.nextID, 1), 10)

	ch := make(chan *jsonrpc.Response, 1)

	c.mu.Lock()
	c.callbacks[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.callbacks, id)
		c.mu.Unlock()
	}()

	params := args
	if params == nil {
		params = []interface{}{}
	}

	if err := c.c.Send(jsonrpc.Request{ID: id, Method: method, Params: params}); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if jerr := res.Err(); jerr != nil {
			return jerr
		}

		r := result{Reply: out}
		if err := json.Unmarshal(res.Result, &r); err != nil {
			return err
		}
		if r.Err != nil {
			return r.Err
		}

		return nil
	}
}
