package codec

import (
	"github.com/wippyai/pvdata/message"
	"github.com/wippyai/pvdata/pvtype"
	"github.com/wippyai/pvdata/value"
)

// Introspection cache markers. They share the first byte of a type entry
// with the kind tags, so the ranges never overlap.
const (
	markerNull   byte = 0xFF
	markerCached byte = 0xFE
	markerDefine byte = 0xFD
)

// Kind tags of a descriptor body.
const (
	tagScalar         byte = 0x01
	tagBoundedString  byte = 0x02
	tagArray          byte = 0x03
	tagAggregate      byte = 0x04
	tagUnion          byte = 0x05
	tagAggregateArray byte = 0x06
	tagUnionArray     byte = 0x07
)

// Value section modes of a message.
const (
	modeFull    byte = 0x00
	modePartial byte = 0x01
)

// maxDepth bounds descriptor and value nesting accepted by the decoder.
const maxDepth = 128

// DefaultMaxSize is the default limit on any decoded count or length.
const DefaultMaxSize = 1 << 24

type options struct {
	requester message.Requester
	registry  *pvtype.Registry
	maxSize   int
}

// Option configures an Encoder or Decoder.
type Option func(*options)

// WithRequester routes non-fatal diagnostics to r.
func WithRequester(r message.Requester) Option {
	return func(o *options) {
		o.requester = r
	}
}

// WithRegistry makes the decoder build descriptors through reg, so decoded
// shapes are canonical with descriptors the caller already holds.
func WithRegistry(reg *pvtype.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithMaxSize limits every decoded member count, array length and string
// length.
func WithMaxSize(n int) Option {
	return func(o *options) {
		o.maxSize = n
	}
}

func buildOptions(opts []Option) options {
	o := options{
		requester: message.Discard,
		maxSize:   DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = pvtype.NewRegistry()
	}
	if o.requester == nil {
		o.requester = message.Discard
	}
	return o
}

// Marshal encodes t as a self-contained message with a full value section.
func Marshal(t *value.Tree) ([]byte, error) {
	return NewEncoder().EncodeMessage(t, nil)
}

// Unmarshal decodes a self-contained message, building its descriptor in
// reg (a fresh registry when nil).
func Unmarshal(data []byte, reg *pvtype.Registry) (*value.Tree, error) {
	t, _, err := NewDecoder(WithRegistry(reg)).DecodeMessage(data)
	return t, err
}
