package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func chainPrint(cmd *cobra.Command, _ []string) error {
	for _, b := range node.Chain().Chain() {
		fmt.Fprintf(cmd.OutOrStdout(), "#%d hash=%s prev=%s difficulty=%d txs=%d\n",
			b.Index, b.Hash, b.PrevHash, b.Difficulty, len(b.Transactions))
	}
	return nil
}

func chainHead(cmd *cobra.Command, _ []string) error {
	head := node.Chain().Head()
	fmt.Fprintf(cmd.OutOrStdout(), "#%d hash=%s difficulty=%d\n", head.Index, head.Hash, head.Difficulty)
	return nil
}

func chainGetBlock(cmd *cobra.Command, args []string) error {
	b, ok := node.Chain().GetBlockByHash(args[0])
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "not found")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "#%d hash=%s prev=%s difficulty=%d merkle=%s confirmations=%d\n",
		b.Index, b.Hash, b.PrevHash, b.Difficulty, b.MerkleRoot, b.Confirmations)
	return nil
}

var chainCmd = &cobra.Command{
	Use:               "chain",
	Short:             "inspect the local blockchain engine",
	PersistentPreRunE: ensureNode,
}

var chainPrintCmd = &cobra.Command{Use: "print", Args: cobra.NoArgs, RunE: chainPrint}
var chainHeadCmd = &cobra.Command{Use: "head", Args: cobra.NoArgs, RunE: chainHead}
var chainGetBlockCmd = &cobra.Command{Use: "get <hash>", Args: cobra.ExactArgs(1), RunE: chainGetBlock}

func init() {
	chainCmd.AddCommand(chainPrintCmd, chainHeadCmd, chainGetBlockCmd)
}

var ChainCmd = chainCmd

func RegisterChain(root *cobra.Command) { root.AddCommand(ChainCmd) }
