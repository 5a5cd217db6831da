// Command marconode runs a marconet overlay peer: a Kademlia DHT node, its
// blockchain engine, and the mTLS gRPC RPC server, plus CLI tooling to drive
// and inspect them.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"marconet/cmd/cli"
)

func main() {
	rootCmd := &cobra.Command{Use: "marconode"}
	cli.RegisterNode(rootCmd)
	cli.RegisterKademlia(rootCmd)
	cli.RegisterChain(rootCmd)
	cli.RegisterRepl(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
