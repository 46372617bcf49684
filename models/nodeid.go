package models

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidNodeID is wrapped by every ParseGlobalID failure.
var ErrInvalidNodeID = errors.New("invalid node id")

// NodeID is the decoded form of a global object identifier.
type NodeID struct {
	Type string
	PK   string
	SK   string
}

// GlobalID encodes a (type tag, partition key, sort key) triple into an
// opaque identifier. The colon delimiter is safe: type tags are fixed
// identifiers and neither partition keys (type tags, key hashes, device ids)
// nor sort keys (ids, prefixed RFC3339 timestamps) may contain a colon before
// the sort-key position, and the sort key itself is kept whole by the
// three-way split on decode.
func GlobalID(typeTag, pk, sk string) string {
	return base64.RawStdEncoding.EncodeToString([]byte(typeTag + ":" + pk + ":" + sk))
}

// ParseGlobalID decodes a global identifier back into its triple. It fails on
// malformed base64 and on anything that does not split into exactly three
// parts; it never truncates or defaults a component.
func ParseGlobalID(id string) (NodeID, error) {
	raw, err := base64.RawStdEncoding.DecodeString(id)
	if err != nil {
		return NodeID{}, fmt.Errorf("%w: %v", ErrInvalidNodeID, err)
	}
	parts := strings.SplitN(string(raw), ":", 3)
	if len(parts) != 3 {
		return NodeID{}, fmt.Errorf("%w: expected type:pk:sk", ErrInvalidNodeID)
	}
	if parts[0] == "" {
		return NodeID{}, fmt.Errorf("%w: empty type tag", ErrInvalidNodeID)
	}
	return NodeID{Type: parts[0], PK: parts[1], SK: parts[2]}, nil
}

// GlobalID renders the NodeID back into its opaque form.
func (n NodeID) GlobalID() string {
	return GlobalID(n.Type, n.PK, n.SK)
}
