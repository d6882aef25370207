package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/inkcell/quire/render"
	"github.com/inkcell/quire/scan"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Inspect source text with the lexical scanner",
	}

	cmd.AddCommand(newScanRegionsCmd())
	cmd.AddCommand(newScanNamesCmd())
	cmd.AddCommand(newScanContextCmd())
	cmd.AddCommand(newScanClassifyCmd())
	cmd.AddCommand(newScanRewriteCmd())

	return cmd
}

// readSource returns the contents of path, or stdin when path is "-".
func readSource(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func newScanRegionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions <file|->",
		Short: "List the string, template, regex and comment spans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(args[0])
			if err != nil {
				return err
			}
			res := scan.Scan(src)
			if len(res.Regions) == 0 {
				fmt.Println("no regions: the input is plain code")
				return nil
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Kind", "Start", "End", "Open", "Text"})
			table.SetBorder(false)
			table.SetCenterSeparator("")
			for _, r := range res.Regions {
				text := strings.ReplaceAll(src[r.Start:r.End], "\n", "\\n")
				table.Append([]string{
					r.Kind.String(),
					strconv.Itoa(r.Start),
					strconv.Itoa(r.End),
					strconv.FormatBool(r.Open),
					render.Truncate(text, 40),
				})
			}
			table.Render()
			return nil
		},
	}
}

func newScanNamesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "names <file|->",
		Short: "List the names the input declares at top level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(args[0])
			if err != nil {
				return err
			}
			for _, name := range scan.Scan(src).DeclaredNames() {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func newScanContextCmd() *cobra.Command {
	var cursor int

	cmd := &cobra.Command{
		Use:   "context <file|->",
		Short: "Describe the completion context at a cursor offset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(args[0])
			if err != nil {
				return err
			}
			if cursor < 0 || cursor > len(src) {
				cursor = len(src)
			}
			cx := scan.ContextAt(src, cursor)
			fmt.Printf("kind:   %s\n", cx.Kind)
			fmt.Printf("prefix: %q\n", cx.Prefix)
			if cx.ObjectPath != "" {
				fmt.Printf("path:   %s\n", cx.ObjectPath)
			}
			fmt.Printf("span:   %d-%d\n", cx.Start, cx.End)
			return nil
		},
	}

	cmd.Flags().IntVarP(&cursor, "cursor", "c", -1, "byte offset of the cursor (default end of input)")

	return cmd
}

func newScanClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <file|->",
		Short: "Report whether the input is complete, or what it still needs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(args[0])
			if err != nil {
				return err
			}
			verdict := scan.Classify(src)
			fmt.Printf("status: %s\n", verdict.Status)
			if verdict.Status == scan.Incomplete {
				fmt.Printf("indent: %q\n", verdict.Indent)
			}
			return nil
		},
	}
}

func newScanRewriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rewrite <file|->",
		Short: "Print the input with let and const rewritten for the session namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(args[0])
			if err != nil {
				return err
			}
			fmt.Print(scan.RewriteDeclarations(src))
			return nil
		},
	}
}
