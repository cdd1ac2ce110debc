package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arawak/toolshelf/internal/imaging"
)

func newImageCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Image helpers",
	}
	cmd.AddCommand(newImageConvertCmd(a))
	return cmd
}

func newImageConvertCmd(a *app) *cobra.Command {
	var (
		declared string
		verify   bool
		maxBytes int64
	)
	cmd := &cobra.Command{
		Use:   "convert <url-or-file>",
		Short: "Print an image as a data URL",
		Long:  `Downloads an http(s) URL or reads a local file, checks that it is JPEG, PNG or WebP, and prints a data: URL. Existing data:image/ URLs are printed unchanged.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("verify") {
				verify = a.cfg.ImageVerify
			}
			if !cmd.Flags().Changed("max-bytes") {
				maxBytes = a.cfg.ImageMaxBytes
			}
			opts := []imaging.Option{imaging.WithMaxBytes(maxBytes)}
			if verify {
				opts = append(opts, imaging.WithDecodeCheck())
			}
			n := imaging.NewNormalizer(imaging.NewHTTPFetcher(a.cfg.ImageFetchTimeout, maxBytes), opts...)

			src, err := imageSource(args[0], declared)
			if err != nil {
				return err
			}
			out, err := n.Normalize(cmd.Context(), src)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&declared, "type", "", "MIME type of a local file (default: from its extension, else sniffed)")
	cmd.Flags().BoolVar(&verify, "verify", false, "decode the image header to confirm its format (env TOOLSHELF_IMAGE_VERIFY)")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", imaging.DefaultMaxBytes, "largest accepted image (env TOOLSHELF_IMAGE_MAX_BYTES)")
	return cmd
}

func imageSource(arg, declared string) (imaging.Source, error) {
	lower := strings.ToLower(strings.TrimSpace(arg))
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "data:") {
		return imaging.URLSource(arg), nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if declared == "" {
		declared = mime.TypeByExtension(strings.ToLower(filepath.Ext(arg)))
	}
	return imaging.BinarySource{Data: data, MIMEType: declared}, nil
}
