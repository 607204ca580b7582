package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	baretk "github.com/MatthewObi/baretk"
	"github.com/MatthewObi/baretk/internal/lift"
	"github.com/MatthewObi/baretk/internal/ui/colorize"
)

var decompLang string

var decompCmd = &cobra.Command{
	Use:   "decomp <in_file> [out_file]",
	Short: "Decompiles an input binary into pseudo-source.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, err := lift.ParseLanguage(decompLang)
		if err != nil {
			return err
		}

		dec, err := baretk.LoadAndDecompile(args[0], flagMachine, lang)
		if err != nil {
			return err
		}
		defer dec.Free()

		result, err := dec.Result()
		if err != nil {
			return err
		}
		for _, dg := range result.Diags {
			diag().Warn("control-flow diagnostic", "addr", fmt.Sprintf("%#x", dg.Addr), "msg", dg.Msg)
		}

		return emit(result.Render(), optionalArg(args, 1), colorize.Source)
	},
}

func init() {
	decompCmd.Flags().StringVar(&decompLang, "lang", "pseudo",
		"output language: pseudo or c")
	rootCmd.AddCommand(decompCmd)
}
