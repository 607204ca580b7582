// Package cmd implements the baretk command-line tool.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	charmlog "github.com/charmbracelet/log"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/MatthewObi/baretk/internal/baretk/log"
	"github.com/MatthewObi/baretk/internal/logging"
	"github.com/MatthewObi/baretk/internal/ui/colorize"
)

var (
	flagDebug   bool
	flagMachine string

	logger *logging.LoggerCloser
)

// diag returns the process-wide diagnostic logger, creating it on first
// use so BARETK_LOG_TO_FILE and friends are honored.
func diag() *logging.LoggerCloser {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return logger
}

var rootCmd = &cobra.Command{
	Use:   "baretk",
	Short: "Binary analysis toolkit",
	Long: "baretk loads ELF, PE and raw binary images, disassembles them,\n" +
		"recovers control flow and lifts functions into pseudo-source.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug := flagDebug || logging.IsDebug()
		log.Setup(debug)
		if debug {
			diag().SetLevel(charmlog.DebugLevel)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Close()
			logger = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagMachine, "machine", "",
		"architecture hint for raw images (x86, amd64, arm, arm64, riscv)")
}

// emit writes output to the optional positional out-file, or to stdout.
// color transforms the text for terminal display and is skipped for files,
// pipes, and when colors are disabled.
func emit(text, outFile string, color func(string) string) error {
	if outFile != "" {
		return os.WriteFile(outFile, []byte(text), 0o644)
	}
	if color != nil && !colorize.Disabled() && term.IsTerminal(os.Stdout.Fd()) {
		text = color(text)
	}
	fmt.Println(text)
	return nil
}

// optionalArg returns args[i] or "".
func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func Execute() {
	// Bypass fang's markdown rendering when output is being piped; colors
	// stay under user control via BARETK_NO_COLOR.
	if !term.IsTerminal(os.Stdout.Fd()) {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
