package protocol

import (
	"github.com/tinylib/msgp/msgp"

	"github.com/lox/guessinggame/internal/game"
)

// Codecs are written by hand rather than with msgp's generator so that the
// guesses array length is checked before anything is allocated.

// EncodeMsg implements msgp.Encodable
func (r *Request) EncodeMsg(en *msgp.Writer) error {
	size := uint32(1)
	if r.ID != "" {
		size++
	}
	if r.Guess != nil {
		size++
	}

	if err := en.WriteMapHeader(size); err != nil {
		return err
	}
	if err := writeString(en, "kind", r.Kind); err != nil {
		return err
	}
	if r.ID != "" {
		if err := writeString(en, "id", r.ID); err != nil {
			return err
		}
	}
	if r.Guess != nil {
		if err := en.WriteString("guess"); err != nil {
			return err
		}
		if err := en.WriteInt64(*r.Guess); err != nil {
			return msgp.WrapError(err, "Guess")
		}
	}
	return nil
}

// DecodeMsg implements msgp.Decodable
func (r *Request) DecodeMsg(dc *msgp.Reader) error {
	*r = Request{}

	n, err := dc.ReadMapHeader()
	if err != nil {
		return err
	}
	for ; n > 0; n-- {
		key, err := dc.ReadMapKeyPtr()
		if err != nil {
			return err
		}
		switch msgp.UnsafeString(key) {
		case "kind":
			r.Kind, err = dc.ReadString()
			if err != nil {
				return msgp.WrapError(err, "Kind")
			}
		case "id":
			r.ID, err = dc.ReadString()
			if err != nil {
				return msgp.WrapError(err, "ID")
			}
		case "guess":
			if dc.IsNil() {
				if err := dc.ReadNil(); err != nil {
					return msgp.WrapError(err, "Guess")
				}
				r.Guess = nil
				continue
			}
			v, err := dc.ReadInt64()
			if err != nil {
				return msgp.WrapError(err, "Guess")
			}
			r.Guess = &v
		default:
			if err := dc.Skip(); err != nil {
				return err
			}
		}
	}
	return nil
}

// EncodeMsg implements msgp.Encodable
func (r *Response) EncodeMsg(en *msgp.Writer) error {
	fields := []struct {
		key   string
		value string
	}{
		{"kind", r.Kind},
		{"id", r.ID},
		{"status", r.Status},
		{"code", r.Code},
		{"message", r.Message},
	}

	size := uint32(0)
	for _, f := range fields {
		if f.key == "kind" || f.value != "" {
			size++
		}
	}
	if r.Guesses != nil {
		size++
	}

	if err := en.WriteMapHeader(size); err != nil {
		return err
	}
	for _, f := range fields {
		if f.key != "kind" && f.value == "" {
			continue
		}
		if err := writeString(en, f.key, f.value); err != nil {
			return err
		}
	}

	if r.Guesses != nil {
		if err := en.WriteString("guesses"); err != nil {
			return err
		}
		if err := en.WriteArrayHeader(uint32(len(r.Guesses))); err != nil {
			return msgp.WrapError(err, "Guesses")
		}
		for i, g := range r.Guesses {
			var err error
			if g == nil {
				err = en.WriteNil()
			} else {
				err = en.WriteUint8(*g)
			}
			if err != nil {
				return msgp.WrapError(err, "Guesses", i)
			}
		}
	}
	return nil
}

// DecodeMsg implements msgp.Decodable
func (r *Response) DecodeMsg(dc *msgp.Reader) error {
	*r = Response{}

	n, err := dc.ReadMapHeader()
	if err != nil {
		return err
	}
	for ; n > 0; n-- {
		key, err := dc.ReadMapKeyPtr()
		if err != nil {
			return err
		}
		switch msgp.UnsafeString(key) {
		case "kind":
			r.Kind, err = dc.ReadString()
		case "id":
			r.ID, err = dc.ReadString()
		case "status":
			r.Status, err = dc.ReadString()
		case "code":
			r.Code, err = dc.ReadString()
		case "message":
			r.Message, err = dc.ReadString()
		case "guesses":
			err = r.decodeGuesses(dc)
		default:
			err = dc.Skip()
		}
		if err != nil {
			return msgp.WrapError(err, string(key))
		}
	}
	return nil
}

func (r *Response) decodeGuesses(dc *msgp.Reader) error {
	size, err := dc.ReadArrayHeader()
	if err != nil {
		return err
	}
	if size > game.NumberOfGuesses {
		return msgp.ArrayError{Wanted: game.NumberOfGuesses, Got: size}
	}
	r.Guesses = make([]*uint8, size)
	for i := range r.Guesses {
		if dc.IsNil() {
			if err := dc.ReadNil(); err != nil {
				return msgp.WrapError(err, i)
			}
			continue
		}
		v, err := dc.ReadUint8()
		if err != nil {
			return msgp.WrapError(err, i)
		}
		r.Guesses[i] = &v
	}
	return nil
}

func writeString(en *msgp.Writer, key, value string) error {
	if err := en.WriteString(key); err != nil {
		return err
	}
	if err := en.WriteString(value); err != nil {
		return msgp.WrapError(err, key)
	}
	return nil
}
