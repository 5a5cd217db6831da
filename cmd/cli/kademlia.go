package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"marconet/core"
)

func kadStore(cmd *cobra.Command, args []string) error {
	key := core.NewIdentifier(args[0])
	node.Kademlia().AddKey(key, args[1])
	fmt.Fprintln(cmd.OutOrStdout(), "stored")
	return nil
}

func kadGet(cmd *cobra.Command, args []string) error {
	key := core.NewIdentifier(args[0])
	val, ok := node.Kademlia().GetValue(key)
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "not found")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), val)
	return nil
}

func kadAddNode(cmd *cobra.Command, args []string) error {
	id := core.NewIdentifier(args[0])
	n, err := core.NewNode(id, args[1], core.DefaultBootstrapPort)
	if err != nil {
		return err
	}
	node.Kademlia().AddNode(n)
	fmt.Fprintln(cmd.OutOrStdout(), "node added")
	return nil
}

func kadNodes(cmd *cobra.Command, _ []string) error {
	for _, n := range node.Kademlia().GetAllNodes() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", n.ID, n.Addr())
	}
	return nil
}

var kademliaCmd = &cobra.Command{
	Use:               "kademlia",
	Short:             "inspect and drive the Kademlia overlay",
	PersistentPreRunE: ensureNode,
}

var kadStoreCmd = &cobra.Command{Use: "store <key> <value>", Args: cobra.ExactArgs(2), RunE: kadStore}
var kadGetCmd = &cobra.Command{Use: "get <key>", Args: cobra.ExactArgs(1), RunE: kadGet}
var kadAddNodeCmd = &cobra.Command{Use: "addnode <id-seed> <ip>", Args: cobra.ExactArgs(2), RunE: kadAddNode}
var kadNodesCmd = &cobra.Command{Use: "nodes", Args: cobra.NoArgs, RunE: kadNodes}

func init() {
	kademliaCmd.AddCommand(kadStoreCmd, kadGetCmd, kadAddNodeCmd, kadNodesCmd)
}

var KademliaCmd = kademliaCmd

func RegisterKademlia(root *cobra.Command) { root.AddCommand(KademliaCmd) }
