package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/inkcell/quire/kernel"
)

func newRunCmd() *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "run <file> [file ...]",
		Short: "Run script files in one shared session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := kernel.New(kernel.Options{
				Name: "run",
				Sink: kernel.Writers{Stdout: os.Stdout, Stderr: os.Stderr},
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			for _, path := range args {
				src, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				out, err := session.RunLanguage(ctx, lang, string(src), nil)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if out.Kind == kernel.OutcomeUnsupported {
					return fmt.Errorf("%s: language %q has no runtime", path, out.Language)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "javascript", "language to evaluate the files as")

	return cmd
}
