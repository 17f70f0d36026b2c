// Package codec provides the versioned marshal/unmarshal pair used for the
// audit log's on-disk JSONL representation. Wire signal encoding has its own
// canonical encoder (package signal) since it must produce byte-exact field
// order for signing; this codec is for opaque JSONL round-tripping only.
package codec

import (
	"encoding/json"
	"fmt"
)

// Version identifies the wire format of an encoded value.
type Version uint16

// CurrentVersion is the only version this codec currently emits.
const CurrentVersion Version = 0

// Codec marshals and unmarshals values with an explicit version tag so a
// future format change can be detected instead of silently misparsed.
type Codec struct{}

// Marshal encodes v under CurrentVersion.
func (Codec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes data into v, rejecting any version other than
// CurrentVersion.
func (Codec) Unmarshal(version Version, data []byte, v interface{}) error {
	if version != CurrentVersion {
		return fmt.Errorf("codec: unsupported version %d", version)
	}
	return json.Unmarshal(data, v)
}
