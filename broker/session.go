// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package broker

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pb33f/lasso/frame"
	"github.com/sirupsen/logrus"
)

// session states
const (
	negotiating int32 = iota
	open
	done
)

type eventKind int

const (
	sessionOpened eventKind = iota
	sessionSubscribed
	sessionUnsubscribed
	sessionMessage
	sessionClosed
)

// sessionEvent is how a session tells the broker loop something
// happened: a client connected, subscribed, published, or went away.
// The broker loop owns all routing state, so sessions never touch each
// other directly.
type sessionEvent struct {
	kind        eventKind
	session     *session
	destination string
	sub         *subscription
	frame       *frame.Frame
}

type subscription struct {
	id          string
	destination string
}

// session is one client connection's state machine. Two goroutines per
// session: readFrames pumps decoded frames into inFrames, and run
// serializes all frame handling and all writes. The broker loop reaches
// a session only through deliver, which enqueues onto outFrames.
type session struct {
	raw    RawConnection
	config *Config
	events chan<- *sessionEvent

	id         string
	remoteAddr string
	state      int32

	inFrames  chan *frame.Frame
	outFrames chan *frame.Frame

	// owned by the run goroutine, no locking needed
	subscriptions map[string]*subscription
	transactions  map[string][]*frame.Frame
	messageId     uint64

	closeOnce sync.Once
	log       *logrus.Entry
}

func newSession(raw RawConnection, config *Config, events chan<- *sessionEvent) *session {
	s := &session{
		raw:           raw,
		config:        config,
		events:        events,
		id:            uuid.New().String(),
		remoteAddr:    raw.RemoteAddr(),
		state:         negotiating,
		inFrames:      make(chan *frame.Frame, 32),
		outFrames:     make(chan *frame.Frame, 32),
		subscriptions: make(map[string]*subscription),
		transactions:  make(map[string][]*frame.Frame),
	}
	s.log = logrus.WithFields(logrus.Fields{
		"component": "broker-session",
		"session":   s.id,
		"remote":    s.remoteAddr,
	})

	go s.run()
	go s.readFrames()
	return s
}

func (s *session) readFrames() {
	defer close(s.inFrames)
	for {
		f, err := s.raw.ReadFrame()
		if err != nil {
			return
		}
		s.inFrames <- f
	}
}

func (s *session) run() {
	defer s.close()

	for {
		if atomic.LoadInt32(&s.state) == done {
			return
		}

		select {
		case f, ok := <-s.outFrames:
			if !ok {
				return
			}
			s.stampMessageId(f)
			if err := s.raw.WriteFrame(f); err != nil {
				return
			}
			if f.Command == frame.ERROR {
				return
			}

		case f, ok := <-s.inFrames:
			if !ok {
				return
			}
			if err := s.handleFrame(f); err != nil {
				s.sendError(err)
				return
			}
		}
	}
}

// deliver hands a routed frame to this session's writer. A session
// whose writer has fallen 32 frames behind gets the frame dropped
// rather than stalling the broker loop for everyone else.
func (s *session) deliver(f *frame.Frame) {
	if atomic.LoadInt32(&s.state) == done {
		return
	}
	select {
	case s.outFrames <- f:
	default:
		s.log.WithField("destination", f.Header.Get(frame.Destination)).
			Warn("slow session, dropping frame")
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		atomic.StoreInt32(&s.state, done)
		s.raw.Close()
		s.emit(&sessionEvent{kind: sessionClosed, session: s})
		s.log.Debug("session closed")
	})
}

// emit never blocks: the broker loop could already be gone during
// shutdown, and a stuck session goroutine would leak.
func (s *session) emit(e *sessionEvent) {
	select {
	case s.events <- e:
	default:
		s.log.WithField("kind", e.kind).Warn("broker event channel full, dropping event")
	}
}

func (s *session) handleFrame(f *frame.Frame) error {
	switch f.Command {
	case frame.CONNECT:
		return s.handleConnect(f)
	case frame.DISCONNECT:
		return s.handleDisconnect(f)
	case frame.SEND:
		return s.handleSend(f)
	case frame.SUBSCRIBE:
		return s.handleSubscribe(f)
	case frame.UNSUBSCRIBE:
		return s.handleUnsubscribe(f)
	case frame.BEGIN:
		return s.handleBegin(f)
	case frame.COMMIT:
		return s.handleCommit(f)
	case frame.ABORT:
		return s.handleAbort(f)
	case frame.ACK, frame.NACK:
		// acknowledgements are accepted and ignored: nothing is held
		// back for redelivery.
		return s.requireOpen(func() error {
			return s.sendReceipt(f)
		})
	}
	return errUnsupportedCommand
}

func (s *session) requireOpen(next func() error) error {
	switch atomic.LoadInt32(&s.state) {
	case negotiating:
		return errNotConnected
	case done:
		return nil
	}
	return next()
}

func (s *session) handleConnect(f *frame.Frame) error {
	if atomic.LoadInt32(&s.state) == open {
		return errAlreadyConnected
	}

	// a receipt on CONNECT cannot be honored before the session exists
	if _, ok := f.Header.Contains(frame.Receipt); ok {
		return errInvalidHeader
	}

	if s.config.Login != "" {
		login := f.Header.Get(frame.Login)
		passcode := f.Header.Get(frame.Passcode)
		if login != s.config.Login || passcode != s.config.Passcode {
			s.log.WithField("login", login).Warn("rejected connect with bad credentials")
			return errAuthenticationFailure
		}
	}

	connected := frame.MustNew(frame.CONNECTED,
		frame.Session, s.id,
		frame.Server, s.config.serverName())
	if err := s.raw.WriteFrame(connected); err != nil {
		return err
	}

	atomic.StoreInt32(&s.state, open)
	s.emit(&sessionEvent{kind: sessionOpened, session: s})
	s.log.Debug("session connected")
	return nil
}

func (s *session) handleDisconnect(f *frame.Frame) error {
	if atomic.LoadInt32(&s.state) == negotiating {
		return errNotConnected
	}
	s.sendReceipt(f)
	s.close()
	return nil
}

func (s *session) handleSend(f *frame.Frame) error {
	return s.requireOpen(func() error {
		destination, ok := f.Header.Contains(frame.Destination)
		if !ok {
			return errInvalidFrame
		}
		if !s.config.sendAllowed(destination) {
			return errInvalidSendDest
		}

		if tx, ok := f.Header.Contains(frame.Transaction); ok {
			buffered, exists := s.transactions[tx]
			if !exists {
				return errUnknownTransaction
			}
			held := f.Clone()
			held.Header.Del(frame.Transaction)
			s.transactions[tx] = append(buffered, held)
			return s.sendReceipt(f)
		}

		if err := s.sendReceipt(f); err != nil {
			return err
		}
		s.publish(f)
		return nil
	})
}

// publish rewrites a SEND into a MESSAGE and hands it to the broker
// loop for fan-out.
func (s *session) publish(f *frame.Frame) {
	f.Command = frame.MESSAGE
	s.emit(&sessionEvent{
		kind:        sessionMessage,
		session:     s,
		destination: f.Header.Get(frame.Destination),
		frame:       f,
	})
}

func (s *session) handleSubscribe(f *frame.Frame) error {
	return s.requireOpen(func() error {
		destination, ok := f.Header.Contains(frame.Destination)
		if !ok {
			return errInvalidSubscription
		}

		// subscription ids are optional on the wire; mint one so the
		// routing table always has a stable key.
		subId := f.Header.Get(frame.Id)
		if subId == "" {
			subId = uuid.New().String()
		}

		if _, exists := s.subscriptions[subId]; exists {
			return s.sendReceipt(f)
		}

		sub := &subscription{id: subId, destination: destination}
		s.subscriptions[subId] = sub

		if err := s.sendReceipt(f); err != nil {
			return err
		}
		s.emit(&sessionEvent{
			kind:        sessionSubscribed,
			session:     s,
			destination: destination,
			sub:         sub,
		})
		s.log.WithField("destination", destination).Debug("subscribed")
		return nil
	})
}

func (s *session) handleUnsubscribe(f *frame.Frame) error {
	return s.requireOpen(func() error {
		if err := s.sendReceipt(f); err != nil {
			return err
		}

		// UNSUBSCRIBE may reference the subscription id or just name
		// the destination again.
		if subId, ok := f.Header.Contains(frame.Id); ok {
			if sub, exists := s.subscriptions[subId]; exists {
				s.dropSubscription(sub)
			}
			return nil
		}

		destination, ok := f.Header.Contains(frame.Destination)
		if !ok {
			return errInvalidSubscription
		}
		for _, sub := range s.subscriptions {
			if sub.destination == destination {
				s.dropSubscription(sub)
			}
		}
		return nil
	})
}

func (s *session) dropSubscription(sub *subscription) {
	delete(s.subscriptions, sub.id)
	s.emit(&sessionEvent{
		kind:        sessionUnsubscribed,
		session:     s,
		destination: sub.destination,
		sub:         sub,
	})
	s.log.WithField("destination", sub.destination).Debug("unsubscribed")
}

func (s *session) handleBegin(f *frame.Frame) error {
	return s.requireOpen(func() error {
		tx, ok := f.Header.Contains(frame.Transaction)
		if !ok {
			return errInvalidFrame
		}
		if _, exists := s.transactions[tx]; !exists {
			s.transactions[tx] = nil
		}
		return s.sendReceipt(f)
	})
}

func (s *session) handleCommit(f *frame.Frame) error {
	return s.requireOpen(func() error {
		tx, ok := f.Header.Contains(frame.Transaction)
		if !ok {
			return errInvalidFrame
		}
		buffered, exists := s.transactions[tx]
		if !exists {
			return errUnknownTransaction
		}
		delete(s.transactions, tx)

		if err := s.sendReceipt(f); err != nil {
			return err
		}
		for _, held := range buffered {
			s.publish(held)
		}
		return nil
	})
}

func (s *session) handleAbort(f *frame.Frame) error {
	return s.requireOpen(func() error {
		tx, ok := f.Header.Contains(frame.Transaction)
		if !ok {
			return errInvalidFrame
		}
		if _, exists := s.transactions[tx]; !exists {
			return errUnknownTransaction
		}
		delete(s.transactions, tx)
		return s.sendReceipt(f)
	})
}

// sendReceipt answers the frame's receipt header, if any, and strips it
// so a routed copy never carries a stale receipt request.
func (s *session) sendReceipt(f *frame.Frame) error {
	receipt, ok := f.Header.Contains(frame.Receipt)
	if !ok {
		return nil
	}
	f.Header.Del(frame.Receipt)
	return s.raw.WriteFrame(frame.MustNew(frame.RECEIPT, frame.ReceiptId, receipt))
}

func (s *session) sendError(err error) {
	errorFrame := frame.MustNew(frame.ERROR, frame.Message, err.Error())
	s.raw.WriteFrame(errorFrame)
	s.log.WithError(err).Debug("sent error frame")
}

func (s *session) stampMessageId(f *frame.Frame) {
	if f.Command == frame.MESSAGE {
		s.messageId++
		f.Header.Set(frame.MessageId, strconv.FormatUint(s.messageId, 10))
	}
}
