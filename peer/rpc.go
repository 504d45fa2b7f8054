// Package peer implements the typed RPC stub to a remote cache node
// and the picker that maintains the ring of known peers.
//
// The wire value is a byte blob rather than a tagged string/int32 union:
// a single concrete type at the wire boundary lets each cache group pick
// its own encoding, instead of every peer needing a compile-time switch
// over primitive value kinds.
package peer

// GetRequest asks for group/key. GetResponse's Found distinguishes "key
// absent" from "key present with zero-length value".
type GetRequest struct {
	Group string
	Key   string
}

type GetResponse struct {
	Value []byte
	Found bool
}

type SetRequest struct {
	Group string
	Key   string
	Value []byte
}

type SetResponse struct {
	OK bool
}

type DeleteRequest struct {
	Group string
	Key   string
}

type DeleteResponse struct {
	OK bool
}
