package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tinylib/msgp/msgp"
)

// Format selects the encoding of a frame
type Format int

const (
	FormatJSON Format = iota
	FormatMsgpack
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatMsgpack:
		return "msgpack"
	default:
		return "unknown"
	}
}

// Pool of buffers to avoid allocation and ensure thread safety
var bufferPool = sync.Pool{
	New: func() interface{} {
		return &bytes.Buffer{}
	},
}

// Marshal serializes a Request or Response in the given format
func Marshal(format Format, v interface{}) ([]byte, error) {
	switch format {
	case FormatJSON:
		switch v.(type) {
		case *Request, *Response:
			return json.Marshal(v)
		default:
			return nil, ErrUnknownMessageType
		}
	case FormatMsgpack:
		return marshalMsgpack(v)
	default:
		return nil, fmt.Errorf("unsupported format %d", format)
	}
}

// Unmarshal deserializes data in the given format into a Request or Response
func Unmarshal(format Format, data []byte, v interface{}) error {
	switch format {
	case FormatJSON:
		switch v.(type) {
		case *Request, *Response:
			if err := json.Unmarshal(data, v); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
			}
			return nil
		default:
			return ErrUnknownMessageType
		}
	case FormatMsgpack:
		return unmarshalMsgpack(data, v)
	default:
		return fmt.Errorf("unsupported format %d", format)
	}
}

func marshalMsgpack(v interface{}) ([]byte, error) {
	// Get a buffer from the pool to ensure thread safety
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	writer := msgp.NewWriter(buf)

	switch msg := v.(type) {
	case *Request:
		if err := msg.EncodeMsg(writer); err != nil {
			return nil, err
		}
	case *Response:
		if err := msg.EncodeMsg(writer); err != nil {
			return nil, err
		}
	default:
		return nil, ErrUnknownMessageType
	}

	if err := writer.Flush(); err != nil {
		return nil, err
	}

	// Create a copy to avoid aliasing the pooled buffer
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func unmarshalMsgpack(data []byte, v interface{}) error {
	reader := msgp.NewReader(bytes.NewReader(data))

	var err error
	switch msg := v.(type) {
	case *Request:
		err = msg.DecodeMsg(reader)
	case *Response:
		err = msg.DecodeMsg(reader)
	default:
		return ErrUnknownMessageType
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}
