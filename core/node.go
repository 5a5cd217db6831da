package core

import (
	"fmt"
	"net"
	"strconv"
)

// Node is a routable overlay peer: an identifier plus the address it can be
// dialed at. Equality is by ID alone — two Nodes with the same id but
// different (possibly stale) addresses are still "the same node" for
// routing-table purposes.
type Node struct {
	ID   Identifier
	IP   string
	Port uint16
}

// NewNode builds a Node, rejecting addresses that cannot possibly be dialed.
// A node is never constructed without a parseable address, per the data
// model's invariant.
func NewNode(id Identifier, ip string, port uint16) (Node, error) {
	if ip == "" {
		return Node{}, fmt.Errorf("core: node address must not be empty")
	}
	if port == 0 {
		return Node{}, fmt.Errorf("core: node port must be nonzero")
	}
	return Node{ID: id, IP: ip, Port: port}, nil
}

// Addr renders the dialable "host:port" form used by the gRPC transport.
func (n Node) Addr() string {
	return net.JoinHostPort(n.IP, strconv.Itoa(int(n.Port)))
}

// Equal compares nodes by id only, matching the data model's equality rule.
func (n Node) Equal(other Node) bool {
	return n.ID == other.ID
}
