package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/anime-shed/bookcapture-go/internal/barcode"
	"github.com/anime-shed/bookcapture-go/internal/books"
	"github.com/anime-shed/bookcapture-go/internal/logger"
)

type scanOutput struct {
	Barcode barcode.Result `json:"barcode"`
	Book    *books.Book    `json:"book,omitempty"`
}

func newScanCmd(opts *rootOptions) *cobra.Command {
	var (
		dir      string
		udpAddr  string
		interval time.Duration
		timeout  time.Duration
		noLookup bool
		format   string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a book barcode from image files or a UDP camera",
		Example: `  # Scan frames saved in a directory, one every 100ms
  bookcapture scan --dir ./frames --interval 100ms

  # Listen for JPEG frames from a network camera
  bookcapture scan --udp :9000 --timeout 30s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(format); err != nil {
				return err
			}

			var camera barcode.Camera
			switch {
			case dir != "" && udpAddr != "":
				return fmt.Errorf("--dir and --udp are mutually exclusive")
			case dir != "":
				camera = barcode.NewDirCamera(dir, interval)
			case udpAddr != "":
				camera = &barcode.UDPCamera{Addr: udpAddr, MaxFrameSize: opts.cfg.MaxUploadSize}
			default:
				return fmt.Errorf("one of --dir or --udp is required")
			}
			if !cmd.Flags().Changed("timeout") {
				timeout = opts.cfg.ScanTimeout
			}

			c, err := opts.container()
			if err != nil {
				return err
			}
			defer c.Close()

			ctx := cmd.Context()
			scanner := barcode.NewScanner(camera, c.NewDecoder(),
				barcode.WithScanTimeout(timeout),
				barcode.WithEvents(c.Events()),
			)
			res, err := scanner.Scan(ctx)
			if err != nil {
				return err
			}

			result := scanOutput{Barcode: res}
			if res.ISBN != "" && !noLookup {
				book, err := c.Books().LookupISBN(ctx, res.ISBN)
				if err != nil {
					logger.WithError(err).WithField("isbn", res.ISBN).Warn("Book lookup failed")
				} else {
					result.Book = book
				}
			}
			return printResult(cmd.OutOrStdout(), format, result)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Image file or directory of frames")
	cmd.Flags().StringVar(&udpAddr, "udp", "", "UDP address to receive JPEG frames on")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Delay between frames read from --dir")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (default SCAN_TIMEOUT)")
	cmd.Flags().BoolVar(&noLookup, "no-lookup", false, "Skip the book metadata lookup")
	cmd.Flags().StringVar(&format, "format", formatYAML, "Output format: yaml or json")

	return cmd
}
