package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"Decodeur/pkg/config"
	"Decodeur/pkg/encoder"
	"Decodeur/pkg/filehandler"
	"Decodeur/pkg/imaging"
)

const defaultMessage = "This is a secret message for the decoder"

type encodeOptions struct {
	input   string
	output  string
	message string
	ocrText string
	lsbOnly bool
}

func newEncodeCmd() *cobra.Command {
	var opts encodeOptions
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Write a test image carrying evidence for every detector",
		Example: `  decodeur encode -i cover.png
  decodeur encode -i cover.jpg -o planted.png --message "meet at dawn"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEncode(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "image", "i", "", "cover image")
	f.StringVarP(&opts.output, "output", "o", "", "output PNG (default: <image>_encoded.png)")
	f.StringVar(&opts.message, "message", defaultMessage, "message hidden in the LSBs, EXIF and trailer")
	f.StringVar(&opts.ocrText, "ocr-text", encoder.DefaultOCRText, "text drawn on the image, empty to skip")
	f.BoolVar(&opts.lsbOnly, "lsb-only", false, "only hide the LSB message")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func runEncode(cmd *cobra.Command, opts encodeOptions) error {
	out := console{w: cmd.OutOrStdout()}
	if opts.message == "" {
		return errors.New("--message must not be empty")
	}

	raw, err := filehandler.ReadFileBytes(opts.input, config.DefaultMaxFileBytes)
	if err != nil {
		return err
	}
	decoded, err := imaging.Decode(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", opts.input, err)
	}

	eo := encoder.DefaultOptions(opts.message)
	eo.OCRText = opts.ocrText
	eo.LSBOnly = opts.lsbOnly
	data, err := encoder.Encode(decoded.Image, eo)
	if err != nil {
		return err
	}

	dst := opts.output
	if dst == "" {
		stem := strings.TrimSuffix(opts.input, filepath.Ext(opts.input))
		dst = stem + "_encoded.png"
	}
	if err := filehandler.SaveFile(data, dst); err != nil {
		return err
	}

	out.success("Test image written to %s", dst)
	methods := "LSB"
	if !opts.lsbOnly {
		methods = "LSB, EXIF, STRINGS, SIGNATURES"
		if opts.ocrText != "" {
			methods = "OCR, " + methods
		}
	}
	out.info("Methods planted: %s", methods)
	return nil
}
