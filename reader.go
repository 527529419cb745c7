// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pdn

import (
	"bytes"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/go-pdn/pdn/log"
)

// Options controls how Open/OpenBytes decode a .pdn file.
type Options struct {
	// A custom logger. Defaults to a filter discarding everything below
	// LevelError.
	Logger log.Logger

	// DisableDeferredDecode skips MemoryBlock chunk reassembly (§4.D),
	// leaving every Surface's Data nil. Useful for inspecting document
	// structure and layer properties without paying for pixel decoding.
	DisableDeferredDecode bool

	// MaxObjectTableSize caps how many NRBF object ids a single stream may
	// register, guarding against a corrupt or hostile stream claiming an
	// unbounded object table. Zero means DefaultMaxObjectTableSize.
	MaxObjectTableSize uint32
}

// DefaultMaxObjectTableSize is the object-table cap applied when
// Options.MaxObjectTableSize is left at zero.
const DefaultMaxObjectTableSize = 1 << 20

func (o *Options) helper() *log.Helper {
	if o == nil || o.Logger == nil {
		return log.NewHelper(log.NewFilter(log.NewStdLogger(os.Stdout),
			log.FilterLevel(log.LevelError)))
	}
	return log.NewHelper(o.Logger)
}

// Open reads and decodes the .pdn file at name, memory-mapping it rather
// than copying it into the process's heap.
func Open(name string, opts *Options) (*Document, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer data.Unmap()

	return decode(bytes.NewReader(data), opts)
}

// OpenBytes decodes a .pdn file already held in memory.
func OpenBytes(data []byte, opts *Options) (*Document, error) {
	return decode(bytes.NewReader(data), opts)
}

func decode(r *bytes.Reader, opts *Options) (*Document, error) {
	env, err := parseEnvelope(r)
	if err != nil {
		return nil, err
	}

	d := newDecoder(env.nrbf, opts.helper())
	if env.headerXML == "" {
		d.logger.Debugf("envelope carries no XML header")
	}
	d.maxObjects = DefaultMaxObjectTableSize
	if opts != nil {
		d.disableDeferred = opts.DisableDeferredDecode
		if opts.MaxObjectTableSize != 0 {
			d.maxObjects = opts.MaxObjectTableSize
		}
	}
	return d.run()
}
