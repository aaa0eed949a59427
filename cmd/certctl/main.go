// certctl is the command-line client for a certledger server.
//
// It covers the full API surface: committing certificates, reconciled
// reads, invalidation, mirror repair, and ledger inspection.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/opencertify/certledger/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden at release time via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL  string
	signerAddr string
	token      string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "certctl",
	Short: "certledger command-line client",
	Long: `certctl talks to a certledger server.

It commits certificate records (hash on the ledger, full record in the
store), reads them back with integrity verification, invalidates them,
and inspects the ledger commit history.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		viper.SetEnvPrefix("certledger")
		viper.AutomaticEnv()

		if serverURL == "" {
			serverURL = viper.GetString("server")
		}
		if serverURL == "" {
			serverURL = "http://localhost:3000"
		}
		if signerAddr == "" {
			signerAddr = viper.GetString("signer")
		}
		if token == "" {
			token = viper.GetString("token")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "certledger server URL (default http://localhost:3000)")
	rootCmd.PersistentFlags().StringVar(&signerAddr, "signer", "", "signer address for state-changing calls")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "signer bearer token (overrides --signer)")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(invalidateCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(versionCmd)
}

// newClient builds the SDK client from the persistent flags.
func newClient() *client.Client {
	var opts []client.Option
	if token != "" {
		opts = append(opts, client.WithToken(token))
	} else if signerAddr != "" {
		opts = append(opts, client.WithSigner(signerAddr))
	}
	return client.New(serverURL, opts...)
}

func apiCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

var addCmd = &cobra.Command{
	Use:   "add <certificateId>",
	Short: "Commit a certificate (ledger hash + stored record)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &client.AddCertificateRequest{CertificateID: args[0]}
		req.ProductID, _ = cmd.Flags().GetString("product")
		req.ManufacturerID, _ = cmd.Flags().GetString("manufacturer")
		req.CertifyingBodyID, _ = cmd.Flags().GetString("certifying-body")
		req.IssueDate, _ = cmd.Flags().GetString("issue-date")
		req.ExpiryDate, _ = cmd.Flags().GetString("expiry-date")

		ctx, cancel := apiCtx()
		defer cancel()
		txHash, err := newClient().Add(ctx, req)
		if err != nil {
			return err
		}
		fmt.Printf("committed %s\ntx: %s\n", args[0], txHash)
		return nil
	},
}

func init() {
	addCmd.Flags().String("product", "", "product identifier")
	addCmd.Flags().String("manufacturer", "", "manufacturer identifier")
	addCmd.Flags().String("certifying-body", "", "certifying body identifier")
	addCmd.Flags().String("issue-date", "", "issue date (YYYY-MM-DD)")
	addCmd.Flags().String("expiry-date", "", "expiry date (YYYY-MM-DD)")
}

var getCmd = &cobra.Command{
	Use:   "get <certificateId>",
	Short: "Fetch a certificate with integrity verification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := apiCtx()
		defer cancel()
		cert, err := newClient().Get(ctx, args[0])
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(cert, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}

var invalidateCmd = &cobra.Command{
	Use:   "invalidate <certificateId>",
	Short: "Invalidate a certificate on the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := apiCtx()
		defer cancel()
		txHash, err := newClient().Invalidate(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("invalidated %s\ntx: %s\n", args[0], txHash)
		return nil
	},
}

var repairCmd = &cobra.Command{
	Use:   "repair <certificateId>",
	Short: "Re-sync the store's validity mirror from the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := apiCtx()
		defer cancel()
		res, err := newClient().Repair(ctx, args[0])
		if err != nil {
			return err
		}
		if res.Repaired {
			fmt.Printf("repaired: validity mirror set to %t\n", res.IsValid)
		} else {
			fmt.Println("already in sync")
		}
		return nil
	},
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger [certificateId]",
	Short: "Show ledger height, or the commit history for one certificate",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := apiCtx()
		defer cancel()
		c := newClient()

		if len(args) == 0 {
			height, err := c.Height(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("ledger height: %d\n", height)
			return nil
		}

		commits, err := c.History(ctx, args[0])
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SEQ\tVALID\tSIGNER\tTX\tTIME")
		for _, cm := range commits {
			fmt.Fprintf(w, "%d\t%t\t%s\t%s\t%s\n",
				cm.Sequence, cm.IsValid, cm.Signer, cm.TxHash,
				cm.Timestamp.Format(time.RFC3339),
			)
		}
		return w.Flush()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the certctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("certctl", version)
	},
}
