package codec

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	NameJSON    = "json"
	NameMsgpack = "msgpack"

	// DefaultCompressThreshold is the encoded size above which binary frames
	// are lz4-compressed.
	DefaultCompressThreshold = 1024
)

// Binary frame flags, carried in the first byte.
const (
	flagRaw byte = 0
	flagLZ4 byte = 1
)

var ErrEmptyFrame = errors.New("codec: empty frame")

// Codec renders outbound messages into websocket frames.
type Codec interface {
	Name() string
	// MessageType is the websocket frame type the codec produces.
	MessageType() int
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// ForName returns the codec registered under name. Unknown names fall back
// to JSON.
func ForName(name string) (Codec, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameJSON:
		return JSON{}, true
	case NameMsgpack:
		return NewMsgpack(DefaultCompressThreshold), true
	default:
		return JSON{}, false
	}
}

// JSON encodes text frames.
type JSON struct{}

func (JSON) Name() string     { return NameJSON }
func (JSON) MessageType() int { return websocket.TextMessage }

func (JSON) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "codec: encode json")
	}
	return data, nil
}

func (JSON) Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "codec: decode json")
	}
	return nil
}

// Msgpack encodes binary frames. Field names follow the json struct tags so
// both codecs describe the same schema. Payloads larger than the threshold
// are wrapped in an lz4 frame.
type Msgpack struct {
	threshold int
}

// NewMsgpack builds a binary codec; a non-positive threshold disables
// compression.
func NewMsgpack(threshold int) *Msgpack {
	return &Msgpack{threshold: threshold}
}

func (*Msgpack) Name() string     { return NameMsgpack }
func (*Msgpack) MessageType() int { return websocket.BinaryMessage }

func (m *Msgpack) Encode(v any) ([]byte, error) {
	var body bytes.Buffer
	body.WriteByte(flagRaw)
	enc := msgpack.NewEncoder(&body)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "codec: encode msgpack")
	}
	raw := body.Bytes()
	if m.threshold <= 0 || len(raw)-1 <= m.threshold {
		return raw, nil
	}

	var packed bytes.Buffer
	packed.WriteByte(flagLZ4)
	zw := lz4.NewWriter(&packed)
	if _, err := zw.Write(raw[1:]); err != nil {
		return nil, errors.Wrap(err, "codec: compress frame")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "codec: compress frame")
	}
	if packed.Len() >= len(raw) {
		return raw, nil
	}
	return packed.Bytes(), nil
}

func (m *Msgpack) Decode(data []byte, v any) error {
	if len(data) == 0 {
		return ErrEmptyFrame
	}
	var payload io.Reader
	switch data[0] {
	case flagRaw:
		payload = bytes.NewReader(data[1:])
	case flagLZ4:
		payload = lz4.NewReader(bytes.NewReader(data[1:]))
	default:
		return errors.Errorf("codec: unknown frame flag %d", data[0])
	}
	dec := msgpack.NewDecoder(payload)
	dec.SetCustomStructTag("json")
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "codec: decode msgpack")
	}
	return nil
}
