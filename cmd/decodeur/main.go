package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

var (
	// Color printers
	infoColor    = color.New(color.FgBlue).SprintFunc()
	successColor = color.New(color.FgGreen).SprintFunc()
	warningColor = color.New(color.FgYellow).SprintFunc()
	errorColor   = color.New(color.FgRed).SprintFunc()
	alertColor   = color.New(color.FgRed, color.Bold).SprintFunc()
)

// console prints the tagged status lines of the CLI
type console struct {
	w io.Writer
}

func (c console) info(format string, args ...interface{}) {
	fmt.Fprintf(c.w, "%s %s\n", infoColor("[*]"), fmt.Sprintf(format, args...))
}

func (c console) success(format string, args ...interface{}) {
	fmt.Fprintf(c.w, "%s %s\n", successColor("[+]"), fmt.Sprintf(format, args...))
}

func (c console) warning(format string, args ...interface{}) {
	fmt.Fprintf(c.w, "%s %s\n", warningColor("[!]"), fmt.Sprintf(format, args...))
}

func (c console) error(format string, args ...interface{}) {
	fmt.Fprintf(c.w, "%s %s\n", errorColor("[-]"), fmt.Sprintf(format, args...))
}

func (c console) alert(format string, args ...interface{}) {
	fmt.Fprintf(c.w, "%s %s\n", alertColor("[!!!]"), fmt.Sprintf(format, args...))
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "decodeur",
		Short:         "Forensic steganography analysis of images",
		Long:          "Decodeur looks for hidden content in an image with seven independent methods and grades how suspicious it is.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAnalyzeCmd(), newEncodeCmd(), newFormatsCmd())
	return root
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		console{w: os.Stderr}.error("%v", err)
		os.Exit(1)
	}
}
