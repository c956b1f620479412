package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/yoola/core/internal/modules/summary"
)

func newFingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint [file]",
		Short: "Print the cache fingerprint and snippet of a document",
		Long:  `Reads the document from file, or from stdin when no file is given, and prints the key it is cached under.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			content, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}

			fp := summary.Fingerprint(string(content))
			if fp == "" {
				return summary.ErrEmptyContent
			}
			cmd.Printf("fingerprint: %s\n", fp)
			cmd.Printf("snippet:     %s\n", summary.Snippet(string(content)))
			return nil
		},
	}
}
