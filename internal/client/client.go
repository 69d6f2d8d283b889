// Package client implements a thin TCP client for the ember wire protocol,
// used by cmd/client and available to any other Go program that wants to
// talk to a running ember server.
package client

import (
	"bufio"
	"fmt"
	"net"

	"github.com/iamNilotpal/ember/internal/protocol"
)

// Client holds one TCP connection to an ember server and issues requests
// over it sequentially. It is not safe for concurrent use from multiple
// goroutines.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
}

// Dial connects to addr and returns a ready-to-use Client.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, reader: bufio.NewReader(conn)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Ping sends PING and waits for PONG, returning an error if the server
// replies with anything else or the connection fails.
func (c *Client) Ping() error {
	if err := protocol.WriteSimple(c.conn, "PING"); err != nil {
		return err
	}

	frame, err := protocol.ReadFrame(c.reader)
	if err != nil {
		return err
	}
	if frame.Type != protocol.TypeSimple || frame.Text != "PONG" {
		return fmt.Errorf("unexpected PING reply: %+v", frame)
	}
	return nil
}

// Put stores key/value on the server. PUT has no response frame; a failed
// write on the server side is only observable by the connection dropping
// on a later call.
func (c *Client) Put(key, value []byte) error {
	return protocol.WritePut(c.conn, key, value)
}

// Get looks up key and returns its value and whether it was found.
func (c *Client) Get(key []byte) ([]byte, bool, error) {
	if err := protocol.WriteGetRequest(c.conn, key); err != nil {
		return nil, false, err
	}

	frame, err := protocol.ReadFrame(c.reader)
	if err != nil {
		return nil, false, err
	}
	if frame.Type == protocol.TypeError {
		return nil, false, fmt.Errorf("server error: %s", frame.Text)
	}
	return frame.Value, frame.Present, nil
}

// Remove deletes key on the server. Like Put, REMOVE has no response frame.
func (c *Client) Remove(key []byte) error {
	return protocol.WriteRemove(c.conn, key)
}
