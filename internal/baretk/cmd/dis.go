package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	baretk "github.com/MatthewObi/baretk"
	"github.com/MatthewObi/baretk/internal/ui/colorize"
)

var disJSON bool

// disInstruction is the JSON shape of one decoded instruction.
type disInstruction struct {
	Addr  string `json:"addr"`
	Bytes string `json:"bytes"`
	Text  string `json:"text"`
}

type disSegment struct {
	Segment int              `json:"segment"`
	Vaddr   string           `json:"vaddr"`
	Insts   []disInstruction `json:"instructions"`
}

type disOutput struct {
	Arch        string       `json:"arch"`
	Segments    []disSegment `json:"segments"`
	Diagnostics []string     `json:"diagnostics,omitempty"`
}

var disCmd = &cobra.Command{
	Use:   "dis <in_file> [out_file]",
	Short: "Disassembles an input binary.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := baretk.LoadAndDisassemble(args[0], flagMachine)
		if err != nil {
			return err
		}
		defer d.Free()

		listing, err := d.Listing()
		if err != nil {
			return err
		}
		for _, dg := range listing.Diags {
			diag().Warn("decode failure", "addr", fmt.Sprintf("%#x", dg.Addr), "msg", dg.Msg)
		}

		if disJSON {
			out := disOutput{Arch: listing.Arch}
			for _, l := range listing.Listings {
				seg := disSegment{Segment: l.Index, Vaddr: fmt.Sprintf("%#x", l.Segment.Vaddr)}
				for _, ins := range l.Insts {
					seg.Insts = append(seg.Insts, disInstruction{
						Addr:  fmt.Sprintf("%#x", ins.Addr),
						Bytes: fmt.Sprintf("%x", ins.Bytes),
						Text:  ins.Text(),
					})
				}
				out.Segments = append(out.Segments, seg)
			}
			for _, dg := range listing.Diags {
				out.Diagnostics = append(out.Diagnostics, dg.String())
			}
			bts, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			return emit(string(bts), optionalArg(args, 1), nil)
		}

		arch := listing.Arch
		return emit(listing.Print(true), optionalArg(args, 1), func(s string) string {
			return colorize.Listing(s, arch)
		})
	},
}

func init() {
	disCmd.Flags().BoolVar(&disJSON, "json", false, "emit the listing as JSON")
	rootCmd.AddCommand(disCmd)
}
