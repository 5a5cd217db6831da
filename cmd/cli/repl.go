package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"marconet/core"
)

// replSession holds the auctions discovered by the last "print_chain"-style
// scan, indexed the way the original's Auction.open map is: print order is
// deterministic (sorted by marco hash) so a numeric choice in place_bid
// refers to the same auction the user just saw listed.
type replSession struct {
	out    io.Writer
	in     *bufio.Scanner
	open   []string // marco hashes, sorted
	byHash map[string]core.OpenAuction
}

func newReplSession(cmd *cobra.Command) *replSession {
	return &replSession{
		out: cmd.OutOrStdout(),
		in:  bufio.NewScanner(cmd.InOrStdin()),
	}
}

func (s *replSession) prompt(p string) string {
	fmt.Fprint(s.out, p)
	if !s.in.Scan() {
		return ""
	}
	return strings.TrimSpace(s.in.Text())
}

func (s *replSession) refreshAuctions() {
	s.byHash = node.Chain().OpenAuctions()
	s.open = make([]string, 0, len(s.byHash))
	for hash := range s.byHash {
		s.open = append(s.open, hash)
	}
	sort.Strings(s.open)
}

func (s *replSession) openAuction() {
	for {
		raw := s.prompt("How many coins do you want to auction?\n")
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fmt.Fprintf(s.out, "a number is needed: %v\n", err)
			continue
		}
		self := node.Self()
		data := core.NewOpenAuction(0, self.ID.String(), amount)
		if _, err := node.SubmitMarco(replCtx, data); err != nil {
			fmt.Fprintf(s.out, "could not open auction: %v\n", err)
		}
		return
	}
}

func (s *replSession) placeBid() {
	s.refreshAuctions()
	if len(s.open) == 0 {
		fmt.Fprintln(s.out, "No Auctions Found!")
		return
	}
	s.printAuctions()

	var choice int
	for {
		raw := s.prompt("What auction do you want to bid in?\n")
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n >= len(s.open) {
			fmt.Fprintf(s.out, "a positive integer between 0 and %d is needed\n", len(s.open)-1)
			continue
		}
		choice = n
		break
	}

	var amount float64
	for {
		raw := s.prompt("How much do you want to bid?\n")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fmt.Fprintf(s.out, "a number is needed: %v\n", err)
			continue
		}
		amount = v
		break
	}

	auction := s.byHash[s.open[choice]]
	self := node.Self()
	data := core.NewBid(0, self.ID.String(), auction.SellerID, amount)
	if _, err := node.SubmitMarco(replCtx, data); err != nil {
		fmt.Fprintf(s.out, "could not place bid: %v\n", err)
	}
}

func (s *replSession) printAuctions() {
	s.refreshAuctions()
	fmt.Fprintln(s.out, "Open auctions:")
	for i, hash := range s.open {
		a := s.byHash[hash]
		fmt.Fprintf(s.out, "%d: seller=%s amount=%.2f\n", i, a.SellerID, a.Amount)
	}
}

func (s *replSession) printChain() {
	for _, b := range node.Chain().Chain() {
		fmt.Fprintf(s.out, "Block: id: {%d} hash:%s\n", b.Index, b.Hash)
	}
}

func replMain(cmd *cobra.Command, _ []string) error {
	s := newReplSession(cmd)
	for {
		fmt.Fprintln(s.out, "Choose an action:")
		fmt.Fprintln(s.out, "1. open_auction")
		fmt.Fprintln(s.out, "2. place_bid")
		fmt.Fprintln(s.out, "3. print_chain")
		fmt.Fprintln(s.out, "4. quit")
		choice := s.prompt("Enter your choice: ")
		switch choice {
		case "1", "open_auction":
			s.openAuction()
		case "2", "place_bid":
			s.placeBid()
		case "3", "print_chain":
			s.printChain()
		case "4", "quit", "":
			fmt.Fprintln(s.out, "Exiting...")
			return nil
		default:
			fmt.Fprintln(s.out, "Invalid choice, please try again.")
		}
	}
}

// replCtx is the background context used for the REPL's marco submissions;
// the REPL itself has no request-scoped deadline.
var replCtx = context.Background()

var replCmd = &cobra.Command{
	Use:               "repl",
	Short:             "interactive auction REPL (open_auction, place_bid, print_chain, quit)",
	Args:              cobra.NoArgs,
	PersistentPreRunE: ensureNode,
	RunE:              replMain,
}

var ReplCmd = replCmd

func RegisterRepl(root *cobra.Command) { root.AddCommand(ReplCmd) }
