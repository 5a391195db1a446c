// Package json wraps sonic behind the small encoding/json surface the rest of
// the module uses. Platforms sonic does not support fall back to encoding/json.
package json

import (
	stdjson "encoding/json"
	"io"
	"runtime"

	"github.com/bytedance/sonic"
)

// Encoder is satisfied by both sonic and encoding/json encoders.
type Encoder interface {
	Encode(v any) error
}

// Decoder is satisfied by both sonic and encoding/json decoders.
type Decoder interface {
	Decode(v any) error
}

// RawMessage is re-exported so callers never import encoding/json directly.
type RawMessage = stdjson.RawMessage

var (
	// Marshal encodes v into JSON bytes.
	Marshal func(v any) ([]byte, error)
	// MarshalIndent is used for human-readable files such as the passage index.
	MarshalIndent func(v any, prefix, indent string) ([]byte, error)
	// Unmarshal decodes JSON bytes into v.
	Unmarshal func(data []byte, v any) error
	// NewEncoder returns a streaming encoder for w.
	NewEncoder func(w io.Writer) Encoder
	// NewDecoder returns a streaming decoder for r.
	NewDecoder func(r io.Reader) Decoder

	sonicEnabled bool
)

func init() {
	if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
		useSonic(sonic.ConfigStd)
		return
	}

	Marshal = stdjson.Marshal
	MarshalIndent = stdjson.MarshalIndent
	Unmarshal = stdjson.Unmarshal
	NewEncoder = func(w io.Writer) Encoder { return stdjson.NewEncoder(w) }
	NewDecoder = func(r io.Reader) Decoder { return stdjson.NewDecoder(r) }
}

// useSonic points every codec function at the given sonic API. ConfigStd is
// used so that map keys are sorted and HTML is escaped like encoding/json,
// which keeps index files byte-stable between runs.
func useSonic(api sonic.API) {
	Marshal = api.Marshal
	MarshalIndent = api.MarshalIndent
	Unmarshal = api.Unmarshal
	NewEncoder = func(w io.Writer) Encoder { return api.NewEncoder(w) }
	NewDecoder = func(r io.Reader) Decoder { return api.NewDecoder(r) }
	sonicEnabled = true
}

// UsingSonic reports whether sonic backs the codec on this platform.
func UsingSonic() bool {
	return sonicEnabled
}
