package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"Decodeur/pkg/filehandler"
	"Decodeur/pkg/forensic"
)

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported image formats and hidden-message revealers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := console{w: cmd.OutOrStdout()}

			exts := filehandler.ImageExtensions()
			sort.Strings(exts)
			out.info("Decodable extensions: %s", strings.Join(exts, " "))

			registry := forensic.DefaultRevealers()
			out.info("Revealers by format:")
			for _, format := range registry.SupportedFormats() {
				revealers := registry.ForFormat(format)
				names := make([]string, 0, len(revealers))
				for _, r := range revealers {
					names = append(names, r.Name()+" ("+strings.Join(r.SupportedAlgorithms(), ", ")+")")
				}
				fmt.Fprintf(out.w, "- %s: %s\n", format, strings.Join(names, "; "))
			}
		},
	}
}
