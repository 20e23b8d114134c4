// Package chat holds the conversation transcript.
//
// The Log is append-only: messages are never edited or removed, and every
// reader gets copies. Observers registered with OnAppend see each message
// after it is stored, in append order.
package chat

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Kind tags a message for presentation.
type Kind int

const (
	KindNone Kind = iota
	KindWelcome
	KindMenu
	KindComplaint
	KindStatus
	KindCategorySelection
	KindLocationRequest
	KindComplaintForm
	KindResolutionCheck
	KindGuidance
)

var kindNames = [...]string{
	KindNone:              "",
	KindWelcome:           "welcome",
	KindMenu:              "menu",
	KindComplaint:         "complaint",
	KindStatus:            "status",
	KindCategorySelection: "category_selection",
	KindLocationRequest:   "location_request",
	KindComplaintForm:     "complaint_form",
	KindResolutionCheck:   "resolution_check",
	KindGuidance:          "guidance",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown message kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown message kind %q", string(b))
}

// Metadata carries structured context alongside a message.
type Metadata struct {
	Category    string   `json:"category,omitempty"`
	Location    string   `json:"location,omitempty"`
	Images      []string `json:"images,omitempty"`
	ComplaintID string   `json:"complaintId,omitempty"`
}

// Message is a single transcript entry.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// MarshalJSON omits kind when it is KindNone.
func (m Message) MarshalJSON() ([]byte, error) {
	type alias Message
	out := struct {
		alias
		Kind *Kind `json:"kind,omitempty"`
	}{alias: alias(m)}
	if m.Kind != KindNone {
		k := m.Kind
		out.Kind = &k
	}
	return json.Marshal(out)
}

func (m Message) clone() Message {
	if m.Metadata != nil {
		md := *m.Metadata
		if md.Images != nil {
			md.Images = append([]string(nil), md.Images...)
		}
		m.Metadata = &md
	}
	return m
}

// Log is the ordered, append-only transcript.
type Log struct {
	mu        sync.RWMutex
	seq       uint64
	now       func() time.Time
	messages  []Message
	observers []func(Message)
}

// NewLog creates an empty transcript.
func NewLog() *Log {
	return &Log{now: time.Now}
}

// OnAppend registers fn to be called with every appended message.
// fn runs on the appending goroutine after the lock is released.
func (l *Log) OnAppend(fn func(Message)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, fn)
}

// Append stores a new message and returns a copy of it.
//
// IDs come from a per-log sequence, so they sort in append order.
func (l *Log) Append(sender Sender, text string, kind Kind, md *Metadata) Message {
	l.mu.Lock()
	l.seq++
	msg := Message{
		ID:        strconv.FormatUint(l.seq, 10),
		Text:      text,
		Sender:    sender,
		Timestamp: l.now(),
		Kind:      kind,
		Metadata:  md,
	}
	msg = msg.clone()
	l.messages = append(l.messages, msg)
	observers := append([]func(Message){}, l.observers...)
	l.mu.Unlock()

	for _, fn := range observers {
		fn(msg.clone())
	}
	return msg.clone()
}

// All returns the full transcript.
func (l *Log) All() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneAll(l.messages)
}

// Since returns messages appended after the message with id afterID.
// An empty or unparsable afterID returns the whole transcript.
func (l *Log) Since(afterID string) []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	after, err := strconv.ParseUint(afterID, 10, 64)
	if err != nil || after == 0 {
		return cloneAll(l.messages)
	}
	if after >= uint64(len(l.messages)) {
		return []Message{}
	}
	// IDs are 1-based positions
	return cloneAll(l.messages[after:])
}

// Len returns the number of messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Last returns the newest message.
func (l *Log) Last() (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.messages) == 0 {
		return Message{}, false
	}
	return l.messages[len(l.messages)-1].clone(), true
}

func cloneAll(in []Message) []Message {
	out := make([]Message, len(in))
	for i, m := range in {
		out[i] = m.clone()
	}
	return out
}
