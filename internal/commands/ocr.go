package commands

import (
	"github.com/spf13/cobra"

	"github.com/anime-shed/bookcapture-go/internal/capture"
)

func newOCRCmd(opts *rootOptions) *cobra.Command {
	var (
		expected string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "ocr <image>",
		Short: "Read the text in an image",
		Example: `  bookcapture ocr page.png
  bookcapture ocr page.png --expected "It was a dark and stormy night" --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(format); err != nil {
				return err
			}

			c, err := opts.container()
			if err != nil {
				return err
			}
			defer c.Close()

			ctx := cmd.Context()
			f, err := capture.NewLocalPicker(args[0], opts.cfg.MaxUploadSize).Pick(ctx)
			if err != nil {
				return err
			}
			resp, err := c.Captures().Extract(ctx, f, expected, "")
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), format, resp)
		},
	}

	cmd.Flags().StringVar(&expected, "expected", "", "Reference text; reports character and word error rates")
	cmd.Flags().StringVar(&format, "format", formatYAML, "Output format: yaml or json")

	return cmd
}
