package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashmarin/trailguard/internal/chain"
)

var verifyFrom uint64

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().Uint64Var(&verifyFrom, "from", 0, "Skip entries below this sequence number")
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Re-walk the hash chain and report the first divergence",
	Long:  "Recomputes every entry hash and link in the active day files.\nExit code 1 indicates a broken chain; the output names the first diverging sequence.",
	RunE:  runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	res := chain.Verify(cfg.ChainDir(), verifyFrom)
	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))

	if !res.Valid {
		os.Exit(1)
	}
	return nil
}
