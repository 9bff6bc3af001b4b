package wire

import "errors"

// MaxPayload bounds a serialized outbound document. Messages are copied by
// value through the SPSC queue, so the payload buffer is inline.
const MaxPayload = 2048

// maxTopic bounds a topic name.
const maxTopic = 16

// ErrPayloadTooLarge is returned when a serialized document does not fit in
// a publish envelope.
var ErrPayloadTooLarge = errors.New("wire: payload exceeds publish envelope")

// Kind labels the payload of a publish envelope.
type Kind uint8

const (
	KindReport Kind = iota + 1
	KindFill
)

// PublishMessage is the fixed-size envelope handed from the intake goroutine
// to the publish goroutine. It owns its bytes: the pool slots the payload was
// serialized from are released before the envelope is queued.
type PublishMessage struct {
	Kind     Kind
	TsNs     int64
	topicLen uint8
	topic    [maxTopic]byte
	n        uint16
	payload  [MaxPayload]byte
}

// NewPublishMessage builds an envelope, copying topic and payload inline.
func NewPublishMessage(kind Kind, topic string, payload []byte, tsNs int64) (PublishMessage, error) {
	var m PublishMessage
	if len(payload) > MaxPayload || len(topic) > maxTopic {
		return m, ErrPayloadTooLarge
	}
	m.Kind = kind
	m.TsNs = tsNs
	m.topicLen = uint8(copy(m.topic[:], topic))
	m.n = uint16(copy(m.payload[:], payload))
	return m, nil
}

// Topic returns the topic name.
func (m *PublishMessage) Topic() string { return string(m.topic[:m.topicLen]) }

// Payload returns the serialized document. The slice aliases the envelope.
func (m *PublishMessage) Payload() []byte { return m.payload[:m.n] }
