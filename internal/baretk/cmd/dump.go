package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/MatthewObi/baretk/internal/dump"
	"github.com/MatthewObi/baretk/internal/loader"
)

var dumpJSON bool

var dumpCmd = &cobra.Command{
	Use:   "dump <in_file> [out_file]",
	Short: "Prints an objdump-like summary of an input binary.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		im, err := loader.Load(args[0], flagMachine)
		if err != nil {
			return err
		}
		info := dump.Collect(im)

		if dumpJSON {
			bts, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			return emit(string(bts), optionalArg(args, 1), nil)
		}
		return emit(info.Text(), optionalArg(args, 1), nil)
	},
}

func init() {
	dumpCmd.Flags().BoolVar(&dumpJSON, "json", false, "emit the summary as JSON")
	rootCmd.AddCommand(dumpCmd)
}
