// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package broker

import (
	"strings"
	"sync"

	"github.com/pb33f/lasso/frame"
	"github.com/sirupsen/logrus"
)

const defaultServerName = "lasso/1.0"

// Config carries the broker's policy knobs.
type Config struct {
	// ServerName goes in the CONNECTED frame's server header.
	ServerName string

	// Login and Passcode, when set, are required on every CONNECT.
	// Empty means any client may connect.
	Login    string
	Passcode string

	// DestinationPrefixes restricts where clients may SEND. A prefix
	// without a trailing slash gets one. Empty means any destination.
	DestinationPrefixes []string
}

func (c *Config) serverName() string {
	if c.ServerName == "" {
		return defaultServerName
	}
	return c.ServerName
}

func (c *Config) normalize() {
	for i, prefix := range c.DestinationPrefixes {
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			c.DestinationPrefixes[i] = prefix + "/"
		}
	}
}

func (c *Config) sendAllowed(destination string) bool {
	if len(c.DestinationPrefixes) == 0 {
		return true
	}
	for _, prefix := range c.DestinationPrefixes {
		if prefix != "" && strings.HasPrefix(destination, prefix) {
			return true
		}
	}
	return false
}

type subscriberEntry struct {
	session *session
	sub     *subscription
}

// Broker is a minimal in-process STOMP broker: sessions report their
// lifecycle over an event channel, and a single loop goroutine owns the
// routing table and fans published messages out to exact-match
// subscribers. Useful for development and integration tests, not tuned
// for production fan-out.
type Broker struct {
	config *Config
	events chan *sessionEvent

	// owned by the loop goroutine
	subscribers map[string][]subscriberEntry
	sessions    map[string]*session

	mu        sync.Mutex
	listeners []Listener

	shutdown     chan struct{}
	shutdownOnce sync.Once
	log          *logrus.Entry
}

// New creates a broker and starts its routing loop.
func New(config *Config) *Broker {
	if config == nil {
		config = &Config{}
	}
	config.normalize()

	b := &Broker{
		config:      config,
		events:      make(chan *sessionEvent, 64),
		subscribers: make(map[string][]subscriberEntry),
		sessions:    make(map[string]*session),
		shutdown:    make(chan struct{}),
		log:         logrus.WithField("component", "broker"),
	}

	go b.loop()
	return b
}

// Serve accepts connections from the listener until it fails or the
// broker closes. Run one Serve per listener; TCP and websocket
// listeners can feed the same broker.
func (b *Broker) Serve(l Listener) error {
	b.mu.Lock()
	b.listeners = append(b.listeners, l)
	b.mu.Unlock()

	b.log.WithField("addr", l.Addr()).Info("broker accepting connections")
	for {
		raw, err := l.Accept()
		if err != nil {
			select {
			case <-b.shutdown:
				return nil
			default:
				return err
			}
		}
		if raw == nil {
			continue
		}
		newSession(raw, b.config, b.events)
	}
}

// Close stops the routing loop, every listener and every live session.
func (b *Broker) Close() {
	b.shutdownOnce.Do(func() {
		close(b.shutdown)

		b.mu.Lock()
		listeners := b.listeners
		b.mu.Unlock()
		for _, l := range listeners {
			l.Close()
		}
	})
}

func (b *Broker) loop() {
	for {
		select {
		case <-b.shutdown:
			for _, s := range b.sessions {
				s.close()
			}
			return

		case e := <-b.events:
			b.handleEvent(e)
		}
	}
}

func (b *Broker) handleEvent(e *sessionEvent) {
	switch e.kind {
	case sessionOpened:
		b.sessions[e.session.id] = e.session

	case sessionSubscribed:
		b.subscribers[e.destination] = append(b.subscribers[e.destination],
			subscriberEntry{session: e.session, sub: e.sub})

	case sessionUnsubscribed:
		b.removeSubscriber(e.destination, e.session, e.sub.id)

	case sessionMessage:
		b.route(e.destination, e.frame)

	case sessionClosed:
		delete(b.sessions, e.session.id)
		for destination := range b.subscribers {
			b.removeSubscriber(destination, e.session, "")
		}
	}
}

// route fans a MESSAGE out to every session subscribed to its exact
// destination. Each subscriber gets its own copy stamped with its
// subscription id; the writer adds the message-id.
func (b *Broker) route(destination string, f *frame.Frame) {
	entries := b.subscribers[destination]
	if len(entries) == 0 {
		b.log.WithField("destination", destination).
			Debug("message for destination with no subscribers, dropped")
		return
	}

	for _, entry := range entries {
		copied := f.Clone()
		copied.Header.Set(frame.Subscription, entry.sub.id)
		entry.session.deliver(copied)
	}
}

// removeSubscriber drops entries for a session under a destination; an
// empty subId drops all of the session's entries there.
func (b *Broker) removeSubscriber(destination string, s *session, subId string) {
	entries := b.subscribers[destination]
	kept := entries[:0]
	for _, entry := range entries {
		if entry.session == s && (subId == "" || entry.sub.id == subId) {
			continue
		}
		kept = append(kept, entry)
	}
	if len(kept) == 0 {
		delete(b.subscribers, destination)
	} else {
		b.subscribers[destination] = kept
	}
}
