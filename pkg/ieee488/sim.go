package ieee488

import (
	"fmt"
	"strings"
)

// OpKind identifies a transport primitive.
type OpKind uint8

const (
	OpInitialize OpKind = iota
	OpTalk
	OpListen
	OpRead
	OpWrite
	OpUnlisten
	OpClose
)

var opKindNames = map[OpKind]string{
	OpInitialize: "initialize",
	OpTalk:       "talk",
	OpListen:     "listen",
	OpRead:       "read",
	OpWrite:      "write",
	OpUnlisten:   "unlisten",
	OpClose:      "close",
}

func (k OpKind) String() string {
	if name, ok := opKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("OpKind(%d)", k)
}

// Op captures one transport call for inspection within tests.
type Op struct {
	Kind    OpKind
	Device  uint8
	Channel uint8
	MaxLen  int
	Data    []byte
}

func (o Op) String() string {
	switch o.Kind {
	case OpTalk, OpListen:
		return fmt.Sprintf("%s(%d,%d)", o.Kind, o.Device, o.Channel)
	case OpRead:
		return fmt.Sprintf("read(%d)", o.MaxLen)
	case OpWrite:
		return fmt.Sprintf("write(% X)", o.Data)
	}
	return o.Kind.String()
}

// FailHook lets tests inject a fault into a specific call. Returning a non-nil
// error fails that call.
type FailHook func(op Op) error

// DefaultSimStatus is the reply the simulator gives to a status read.
const DefaultSimStatus = "73,CBM DOS V2.6 1541,00,00\r"

// SimTransport is an in-memory Transport. It records every call and replies
// to reads with Status.
type SimTransport struct {
	Status []byte
	Fail   FailHook

	ops    []Op
	closed int
}

// NewSimTransport returns a simulator that answers status reads with status.
// An empty status selects DefaultSimStatus.
func NewSimTransport(status string) *SimTransport {
	if status == "" {
		status = DefaultSimStatus
	}
	return &SimTransport{Status: []byte(status)}
}

// Ops returns a copy of the calls recorded so far.
func (s *SimTransport) Ops() []Op {
	out := make([]Op, len(s.ops))
	for i, op := range s.ops {
		op.Data = append([]byte(nil), op.Data...)
		out[i] = op
	}
	return out
}

// Trace renders the recorded calls as a comma separated list, e.g.
// "initialize, talk(8,15), read(256)".
func (s *SimTransport) Trace() string {
	parts := make([]string, len(s.ops))
	for i, op := range s.ops {
		parts[i] = op.String()
	}
	return strings.Join(parts, ", ")
}

// CloseCount reports how many times Close has been called
func (s *SimTransport) CloseCount() int {
	return s.closed
}

func (s *SimTransport) Initialize() error {
	return s.record(Op{Kind: OpInitialize})
}

func (s *SimTransport) Talk(device, channel uint8) error {
	return s.record(Op{Kind: OpTalk, Device: device, Channel: channel})
}

func (s *SimTransport) Listen(device, channel uint8) error {
	return s.record(Op{Kind: OpListen, Device: device, Channel: channel})
}

func (s *SimTransport) Read(maxLen int) ([]byte, error) {
	if err := s.record(Op{Kind: OpRead, MaxLen: maxLen}); err != nil {
		return nil, err
	}
	n := len(s.Status)
	if n > maxLen {
		n = maxLen
	}
	return append([]byte(nil), s.Status[:n]...), nil
}

func (s *SimTransport) Write(p []byte) (int, error) {
	if err := s.record(Op{Kind: OpWrite, Data: append([]byte(nil), p...)}); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *SimTransport) Unlisten() error {
	return s.record(Op{Kind: OpUnlisten})
}

func (s *SimTransport) Close() error {
	s.closed++
	return s.record(Op{Kind: OpClose})
}

func (s *SimTransport) record(op Op) error {
	s.ops = append(s.ops, op)
	if s.Fail != nil {
		return s.Fail(op)
	}
	return nil
}
