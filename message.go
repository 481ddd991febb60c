package wirespec

import (
	"context"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Source discriminators for the two transport kinds a delivery envelope may
// multiplex. Records carrying any other tag are ignored.
const (
	sourceTopic = "aws:sns" // record's EventSource, payload under Sns.Message
	sourceQueue = "aws:sqs" // record's eventSource, payload under body
)

// Receiver handles one decoded, validated message.
type Receiver func(ctx context.Context, message any) error

// BatchReceiver handles an entire decoded, validated message sequence at
// once; success or failure is all-or-nothing for the batch.
type BatchReceiver func(ctx context.Context, messages []any) error

// Messenger is the contract gate for one declared message: it validates
// payloads, sends through the currently bound hook, and wraps receiver
// implementations behind envelope normalization.
type Messenger struct {
	service   *Service
	message   *Message
	validator *Validator
}

// NewMessenger compiles the message guard for the named message.
func NewMessenger(svc *Service, name string) (*Messenger, error) {
	msg, err := svc.Message(name)
	if err != nil {
		return nil, err
	}
	validator, err := NewValidator(msg.Schema, svc.ResolveRef)
	if err != nil {
		return nil, err
	}
	return &Messenger{service: svc, message: msg, validator: validator}, nil
}

// Name returns the declared message name.
func (m *Messenger) Name() string { return m.message.Name }

// Validate checks one decoded message payload against the message schema.
func (m *Messenger) Validate(message any) error {
	if err := m.validator.Validate(message); err != nil {
		iss, _ := AsIssues(err)
		return &ContractError{Subject: m.message.Name, Stage: StageMessage, Issues: iss}
	}
	return nil
}

// Send validates the message and routes it through the hook bound to ctx.
func (m *Messenger) Send(ctx context.Context, message any) error {
	if err := m.Validate(message); err != nil {
		return err
	}
	h, err := Current(ctx)
	if err != nil {
		return err
	}
	return h.Send(ctx, m.message.Name, message)
}

// Extract normalizes a delivery envelope into the flat, ordered sequence of
// decoded and validated message payloads: all topic records first, then all
// queue records, each group in record order. An envelope without matching
// records yields an empty sequence, not an error.
func (m *Messenger) Extract(envelope map[string]any) ([]any, error) {
	records, _ := envelope["Records"].([]any)
	var out []any
	for _, r := range records {
		record, ok := r.(map[string]any)
		if !ok || record["EventSource"] != sourceTopic {
			continue
		}
		embedded, _ := record["Sns"].(map[string]any)
		raw, _ := embedded["Message"].(string)
		message, err := m.decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, message)
	}
	for _, r := range records {
		record, ok := r.(map[string]any)
		if !ok || record["eventSource"] != sourceQueue {
			continue
		}
		raw, _ := record["body"].(string)
		message, err := m.decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, message)
	}
	return out, nil
}

// ExtractRaw behaves like Extract on raw envelope bytes, pulling the record
// fields out without unmarshalling the whole envelope.
func (m *Messenger) ExtractRaw(data []byte) ([]any, error) {
	records := gjson.GetBytes(data, "Records")
	var out []any
	var failure error
	records.ForEach(func(_, record gjson.Result) bool {
		if record.Get("EventSource").String() != sourceTopic {
			return true
		}
		message, err := m.decode(record.Get("Sns.Message").String())
		if err != nil {
			failure = err
			return false
		}
		out = append(out, message)
		return true
	})
	if failure != nil {
		return nil, failure
	}
	records.ForEach(func(_, record gjson.Result) bool {
		if record.Get("eventSource").String() != sourceQueue {
			return true
		}
		message, err := m.decode(record.Get("body").String())
		if err != nil {
			failure = err
			return false
		}
		out = append(out, message)
		return true
	})
	if failure != nil {
		return nil, failure
	}
	return out, nil
}

func (m *Messenger) decode(raw string) (any, error) {
	var message any
	if err := json.Unmarshal([]byte(raw), &message); err != nil {
		return nil, &ContractError{
			Subject: m.message.Name,
			Stage:   StageMessage,
			Issues:  Issues{{Path: "/", Code: CodeParseError, Message: "embedded payload is not structured data", Cause: err}},
		}
	}
	if err := m.Validate(message); err != nil {
		return nil, err
	}
	return message, nil
}

// Wrap composes the per-message delivery mode around a receiver: the
// receiver runs once per decoded message, in extraction order. A receiver
// failure propagates out of the whole call immediately; messages already
// handled stay handled, later ones are left to the transport's redelivery
// policy.
func (m *Messenger) Wrap(receiver Receiver) *MessageEntrypoint {
	return m.entrypoint(func(ctx context.Context, messages []any) error {
		for _, message := range messages {
			if err := receiver(ctx, message); err != nil {
				return err
			}
		}
		return nil
	})
}

// WrapBatch composes the batched delivery mode around a receiver: the
// receiver runs exactly once with the entire decoded sequence.
func (m *Messenger) WrapBatch(receiver BatchReceiver) *MessageEntrypoint {
	return m.entrypoint(func(ctx context.Context, messages []any) error {
		return receiver(ctx, messages)
	})
}

func (m *Messenger) entrypoint(deliver func(context.Context, []any) error) *MessageEntrypoint {
	return &MessageEntrypoint{
		name:        m.message.Name,
		description: m.message.Description,
		messenger:   m,
		deliver:     deliver,
	}
}

// MessageEntrypoint is a guarded message receiver behind envelope
// normalization.
type MessageEntrypoint struct {
	name        string
	description string
	messenger   *Messenger
	deliver     func(context.Context, []any) error
}

// Name returns the wrapped message's declared name.
func (e *MessageEntrypoint) Name() string { return e.name }

// Description returns the wrapped message's declared description.
func (e *MessageEntrypoint) Description() string { return e.description }

// Handle extracts, validates, and delivers the envelope's messages.
func (e *MessageEntrypoint) Handle(ctx context.Context, envelope map[string]any) error {
	messages, err := e.messenger.Extract(envelope)
	if err != nil {
		return err
	}
	return e.deliver(ctx, messages)
}

// HandleRaw behaves like Handle on raw envelope bytes.
func (e *MessageEntrypoint) HandleRaw(ctx context.Context, data []byte) error {
	messages, err := e.messenger.ExtractRaw(data)
	if err != nil {
		return err
	}
	return e.deliver(ctx, messages)
}
