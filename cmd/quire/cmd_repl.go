package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/inkcell/quire/kernel"
	"github.com/inkcell/quire/scan"
)

const historyFile = ".quire_history"

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := kernel.New(kernel.Options{
				Name: "repl",
				Sink: kernel.Writers{Stdout: os.Stdout, Stderr: os.Stderr},
			})
			if err != nil {
				return err
			}
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return runBatch(session, os.Stdin)
			}
			return runInteractive(session)
		},
	}
}

// runBatch evaluates piped input as one program, the way a script runs.
func runBatch(session *kernel.Session, r io.Reader) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	out, err := session.Run(ctx, string(src), nil)
	if err != nil {
		return err
	}
	if out.HasValue() {
		fmt.Println(out.Rendered)
	}
	return nil
}

func runInteractive(session *kernel.Session) error {
	fmt.Printf("quire %s\nCtrl+C clears the line, Ctrl+D exits. Type :help for commands.\n", version)

	color := colorEnabled(cfg.Color)
	paint := func(code, s string) string {
		if !color {
			return s
		}
		return "\x1b[" + code + "m" + s + "\x1b[0m"
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := historyPath()
	if f, err := os.Open(histPath); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	var pending strings.Builder

	ln.SetWordCompleter(func(line string, pos int) (string, []string, string) {
		src, base := line, 0
		if pending.Len() > 0 {
			src = pending.String() + "\n" + line
			base = pending.Len() + 1
		}
		cx, candidates := session.Complete(src, base+pos)
		// A context that began on an earlier line cannot be edited here.
		if len(candidates) == 0 || cx.Start < base {
			return line[:pos], nil, line[pos:]
		}
		labels := make([]string, 0, len(candidates))
		for _, c := range candidates {
			labels = append(labels, c.Label)
		}
		return line[:cx.Start-base], labels, line[cx.End-base:]
	})

	indent := ""
	for {
		var line string
		var err error
		if pending.Len() == 0 {
			line, err = ln.Prompt(cfg.Prompt)
		} else {
			line, err = ln.PromptWithSuggestion(cfg.MorePrompt, indent, len(indent))
		}
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return nil
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			pending.Reset()
			continue
		}
		if err != nil {
			return err
		}

		if pending.Len() == 0 {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if strings.HasPrefix(trimmed, ":") {
				if quit := replCommand(session, trimmed); quit {
					return nil
				}
				continue
			}
		}

		if pending.Len() > 0 {
			pending.WriteByte('\n')
		}
		pending.WriteString(line)
		src := pending.String()

		if verdict := session.Classify(src); verdict.Status == scan.Incomplete {
			indent = verdict.Indent
			continue
		}
		pending.Reset()
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		// Ctrl+C during a long evaluation interrupts the interpreter
		// instead of killing the shell.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		out, err := session.Run(ctx, src, nil)
		stop()
		if err != nil {
			fmt.Fprintln(os.Stderr, paint("31", err.Error()))
			continue
		}
		if out.HasValue() {
			fmt.Println(paint("36", out.Rendered))
		}
	}
}

// replCommand handles a :-prefixed shell command, returning true on quit.
func replCommand(session *kernel.Session, line string) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	switch strings.ToLower(cmd) {
	case ":quit", ":q", ":exit":
		return true
	case ":help", ":h":
		fmt.Print(replHelp)
	case ":vars":
		printVars(session)
	case ":inspect", ":i":
		path := strings.TrimSpace(rest)
		if path == "" {
			fmt.Println("usage: :inspect PATH")
			break
		}
		printInspection(session, path)
	default:
		fmt.Printf("unknown command %s. Type :help for commands.\n", cmd)
	}
	return false
}

const replHelp = `Shell commands:
  :help           Show this help
  :vars           List the session's variables
  :inspect PATH   Describe the value at PATH (e.g. :inspect user.name)
  :quit           Exit the shell
`

func printVars(session *kernel.Session) {
	vars := session.Vars()
	if len(vars) == 0 {
		fmt.Println("no variables defined")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Name", "Type", "Value"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	for _, v := range vars {
		table.Append([]string{v.Name, v.Type, v.Preview})
	}
	table.Render()
}

func printInspection(session *kernel.Session, path string) {
	insp, ok := session.Inspect(path)
	if !ok {
		fmt.Printf("%s is not defined\n", path)
		return
	}
	fmt.Printf("%s (%s)\n%s\n", insp.Type, insp.Kind, insp.Preview)
	if insp.Size > 0 {
		fmt.Printf("size: %d\n", insp.Size)
	}
	if len(insp.Members) == 0 {
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Member", "Kind", "Preview"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	for _, m := range insp.Members {
		kind := "property"
		if m.Callable {
			kind = "method"
		}
		table.Append([]string{m.Name, kind, m.Preview})
	}
	table.Render()
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return historyFile
	}
	return filepath.Join(home, historyFile)
}

// colorEnabled resolves a color mode against NO_COLOR and the terminal.
func colorEnabled(mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
