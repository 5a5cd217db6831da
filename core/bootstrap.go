package core

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// LoadBootstrapFile reads a newline-separated list of IPv4/IPv6 addresses
// from the bootstrap file at path; a missing file yields no nodes and no
// error. Each line becomes a Node on the shared bootstrap port unless it
// names its own ("10.0.0.2:7000", "[::1]:7000"). bootstrap.txt carries no
// id, only addresses, so each node's id is derived deterministically from
// its "ip:port" string.
func LoadBootstrapFile(path string) ([]Node, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("core: open bootstrap file %s: %w", path, err)
	}
	defer f.Close()

	var nodes []Node
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ip, port := strings.TrimSuffix(strings.TrimPrefix(line, "["), "]"), uint16(DefaultBootstrapPort)
		if host, p, err := net.SplitHostPort(line); err == nil {
			ip = host
			if v, err := strconv.ParseUint(p, 10, 16); err == nil {
				port = uint16(v)
			}
		}
		id := NewIdentifier(fmt.Sprintf("%s:%d", ip, port))
		node, err := NewNode(id, ip, port)
		if err != nil {
			continue
		}
		nodes = append(nodes, node)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("core: read bootstrap file %s: %w", path, err)
	}
	return nodes, nil
}
