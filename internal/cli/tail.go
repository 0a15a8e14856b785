package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ashmarin/trailguard/internal/chain"
)

var tailCount int

func init() {
	rootCmd.AddCommand(tailCmd)
	tailCmd.Flags().IntVarP(&tailCount, "lines", "n", 10, "Number of entries to print")
}

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print the newest ledger entries",
	RunE:  runTail,
}

func runTail(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	lines, err := lastLines(cfg.ChainDir(), tailCount)
	if err != nil {
		return fmt.Errorf("tail: %w", err)
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

// lastLines collects the newest n entries across active day files, oldest
// first. Archived days are out of scope; unpack them from the archive to
// inspect history.
func lastLines(dir string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	days, err := chain.ActiveDays(dir)
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	// Newest day first; prepend each file's tail until n lines collected.
	var out []string
	for _, day := range days {
		if len(out) >= n {
			break
		}
		lines, err := fileLines(filepath.Join(dir, chain.DayFileName(day)))
		if err != nil {
			return nil, err
		}
		need := n - len(out)
		if need < len(lines) {
			lines = lines[len(lines)-need:]
		}
		out = append(lines, out...)
	}
	return out, nil
}

func fileLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
