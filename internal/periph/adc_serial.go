package periph

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/sweeney/microwave-oven/internal/clock"
)

// SerialADC reads the potentiometer through an ADC bridge MCU that prints
// one decimal reading per line. The latest reading is kept; Read fails if it
// is older than maxAge.
type SerialADC struct {
	name   string
	conn   io.ReadCloser
	clock  clock.Clock
	maxAge time.Duration
	log    *zap.SugaredLogger

	mu     sync.RWMutex
	value  int
	at     time.Time
	have   bool
	closed bool
	done   chan struct{}
}

// OpenSerialADC opens the serial port and starts reading.
func OpenSerialADC(port string, baudRate int, maxAge time.Duration, log *zap.SugaredLogger) (*SerialADC, error) {
	conn, err := serial.Open(port, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fault(port, "open serial port", err)
	}
	return NewStreamADC(port, conn, clock.Wall{}, maxAge, log), nil
}

// NewStreamADC reads readings from an already open stream.
func NewStreamADC(name string, conn io.ReadCloser, clk clock.Clock, maxAge time.Duration, log *zap.SugaredLogger) *SerialADC {
	a := &SerialADC{
		name:   name,
		conn:   conn,
		clock:  clk,
		maxAge: maxAge,
		log:    log,
		done:   make(chan struct{}),
	}
	go a.readLines()
	return a
}

// Read returns the latest reading.
func (a *SerialADC) Read() (int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.have {
		return 0, fault(a.name, "read", errors.New("no reading received yet"))
	}
	if age := a.clock.Now().Sub(a.at); a.maxAge > 0 && age > a.maxAge {
		return 0, fault(a.name, "read", fmt.Errorf("reading is stale (%v old)", age))
	}
	return a.value, nil
}

// Done is closed once the reader goroutine has stopped.
func (a *SerialADC) Done() <-chan struct{} {
	return a.done
}

// Close closes the port, which stops the reader goroutine.
func (a *SerialADC) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	if err := a.conn.Close(); err != nil {
		return fault(a.name, "close", err)
	}
	return nil
}

func (a *SerialADC) readLines() {
	defer close(a.done)

	scanner := bufio.NewScanner(a.conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		v, err := parseReading(line)
		if err != nil {
			a.log.Warnw("adc: bad line", "port", a.name, "line", line, "error", err)
			continue
		}

		a.mu.Lock()
		a.value = v
		a.at = a.clock.Now()
		a.have = true
		a.mu.Unlock()
	}

	a.mu.RLock()
	closed := a.closed
	a.mu.RUnlock()
	if err := scanner.Err(); err != nil && !closed {
		a.log.Errorw("adc: read failed", "port", a.name, "error", err)
	}
}

// parseReading parses a non-negative decimal reading.
func parseReading(line string) (int, error) {
	v, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("invalid reading: %w", err)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative reading %d", v)
	}
	return v, nil
}
