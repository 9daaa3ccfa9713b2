// Command recover reads a model completion and prints the JSON it contains.
//
// Usage:
//
//	recover [-file completion.txt] [-indent] [-repair] [-prefix n]
//
// Without -file the completion is read from stdin. The exit status is 1 when
// the completion cannot be recovered and 2 on usage or I/O errors.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/leofalp/mediareport/core/parse"
	"github.com/leofalp/mediareport/providers/observability/slogobs"

	_ "github.com/joho/godotenv/autoload"
)

const (
	exitOK           = 0
	exitUnrecovered  = 1
	exitUsageOrInput = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("recover", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "read the completion from `path` instead of stdin")
	indent := fs.Bool("indent", false, "indent the output JSON")
	repair := fs.Bool("repair", false, "fall back to jsonrepair, which may infer missing values")
	prefix := fs.Int("prefix", parse.DefaultPrefixLimit, "characters of input to show when recovery fails")
	if err := fs.Parse(args); err != nil {
		return exitUsageOrInput
	}

	input, err := readInput(*file, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "recover: %v\n", err)
		return exitUsageOrInput
	}

	opts := []parse.Option{
		parse.WithObserver(slogobs.New(slogobs.WithOutput(stderr))),
		parse.WithPrefixLimit(*prefix),
		parse.WithUseNumber(),
	}
	if *repair {
		opts = append(opts, parse.WithRepair())
	}

	out, err := parse.New(opts...).Repair(context.Background(), string(input))
	if err != nil {
		var recErr *parse.RecoveryError
		if errors.As(err, &recErr) && recErr.Prefix != "" {
			fmt.Fprintf(stderr, "recover: %v\ninput begins:\n%s\n", err, recErr.Prefix)
		} else {
			fmt.Fprintf(stderr, "recover: %v\n", err)
		}
		return exitUnrecovered
	}

	if *indent {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(out), "", "  "); err == nil {
			out = buf.String()
		}
	}
	fmt.Fprintln(stdout, out)
	return exitOK
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
