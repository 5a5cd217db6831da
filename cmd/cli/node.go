package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"marconet/pkg/config"
)

func nodeServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := bootstrapNode(ctx, cfg.Node.BootstrapFile); err != nil {
		return fmt.Errorf("cli: bootstrap: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "listening on %s (self=%s)\n", cfg.Node.ListenAddr, node.Self().ID)
	return node.ListenAndServe(cfg.Node.ListenAddr)
}

func nodeSelf(cmd *cobra.Command, _ []string) error {
	self := node.Self()
	fmt.Fprintf(cmd.OutOrStdout(), "id=%s addr=%s\n", self.ID, self.Addr())
	return nil
}

var nodeCmd = &cobra.Command{
	Use:               "node",
	Short:             "run or inspect the local overlay node",
	PersistentPreRunE: ensureNode,
}

var nodeServeCmd = &cobra.Command{Use: "serve", Short: "bootstrap and start serving RPCs", Args: cobra.NoArgs, RunE: nodeServe}
var nodeSelfCmd = &cobra.Command{Use: "self", Short: "print this node's identifier and address", Args: cobra.NoArgs, RunE: nodeSelf}

func init() {
	nodeCmd.AddCommand(nodeServeCmd, nodeSelfCmd)
}

var NodeCmd = nodeCmd

func RegisterNode(root *cobra.Command) { root.AddCommand(NodeCmd) }
