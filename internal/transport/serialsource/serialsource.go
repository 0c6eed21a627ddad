// Package serialsource implements transport.Source over a USB-serial link
// to an ESP32 vehicle controller, newline-delimited per message.
package serialsource

import (
	"bufio"
	"context"
	"fmt"
	"sync"

	"go.bug.st/serial"

	"github.com/banshee-data/telemetry-bridge/internal/monitoring"
)

// Config names the serial port and framing.
type Config struct {
	Port     string
	BaudRate int
}

// DefaultConfig matches a typical ESP32 USB-CDC link.
func DefaultConfig(port string) Config {
	return Config{Port: port, BaudRate: 115200}
}

// Source reads newline-delimited messages from a serial port.
type Source struct {
	cfg Config

	mu        sync.Mutex
	port      serial.Port
	connected bool
	messages  chan []byte
	done      chan struct{}
}

// New constructs a Source for the named port.
func New(cfg Config) *Source {
	return &Source{cfg: cfg, messages: make(chan []byte, 256)}
}

// Connect opens the serial port and starts the read loop. Connect may be
// called again after Close to reconnect.
func (s *Source) Connect(ctx context.Context) error {
	mode := &serial.Mode{BaudRate: s.cfg.BaudRate}
	port, err := serial.Open(s.cfg.Port, mode)
	if err != nil {
		return fmt.Errorf("serialsource: open %s: %w", s.cfg.Port, err)
	}

	s.mu.Lock()
	s.port = port
	s.connected = true
	s.messages = make(chan []byte, 256)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.readLoop(port, s.messages, s.done)
	return nil
}

func (s *Source) readLoop(port serial.Port, out chan<- []byte, done chan struct{}) {
	defer close(out)
	scanner := bufio.NewScanner(port)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		select {
		case <-done:
			return
		default:
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		msg := make([]byte, len(line))
		copy(msg, line)
		select {
		case out <- msg:
		case <-done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		monitoring.Logf("serialsource: read loop ended: %v", err)
	}
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
}

// Messages returns the channel of raw line payloads.
func (s *Source) Messages() <-chan []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages
}

// Connected reports whether the port is open and the read loop active.
func (s *Source) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Close signals the read loop to stop and closes the port.
func (s *Source) Close() error {
	s.mu.Lock()
	port := s.port
	done := s.done
	s.connected = false
	s.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		default:
			close(done)
		}
	}
	if port == nil {
		return nil
	}
	return port.Close()
}
