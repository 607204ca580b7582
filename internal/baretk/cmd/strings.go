package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MatthewObi/baretk/internal/query"
)

var (
	stringsMinLen    int
	stringsPrintable bool
)

var stringsCmd = &cobra.Command{
	Use:   "strings <in_file> [out_file]",
	Short: "Prints strings found in an input binary.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		found := query.Strings(data, stringsMinLen, stringsPrintable)

		if out := optionalArg(args, 1); out != "" {
			return os.WriteFile(out, []byte(strings.Join(found, "\n")+"\n"), 0o644)
		}
		fmt.Printf("ASCII strings found in %s:\n", args[0])
		for _, s := range found {
			fmt.Printf(" %s\n", s)
		}
		return nil
	},
}

func init() {
	stringsCmd.Flags().IntVarP(&stringsMinLen, "min-len", "n", 4, "minimum string length")
	stringsCmd.Flags().BoolVar(&stringsPrintable, "printable", false, "restrict output to printable ASCII runs")
	rootCmd.AddCommand(stringsCmd)
}
