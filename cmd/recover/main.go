// Command recover reconstructs the secret of each share document given on
// the command line.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/secret-recovery/server/src/server/data"
	"github.com/secret-recovery/server/src/server/shamir"
)

// errFailed is returned when at least one document could not be recovered.
// The per-file reason has already been printed.
var errFailed = errors.New("one or more documents failed")

type outcome struct {
	file    string
	secret  int64
	dropped []shamir.ShareError
	err     error
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		verbose bool
		jobs    int
	)
	cmd := &cobra.Command{
		Use:           "recover [files...]",
		Short:         "Reconstruct secrets from share documents",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := recoverFiles(args, jobs)
			return report(stdout, stderr, results, verbose)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list shares dropped while decoding")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 8, "number of documents processed concurrently")
	return cmd
}

// recoverFiles processes files concurrently and returns outcomes in
// argument order. A failing file never cancels the others.
func recoverFiles(files []string, jobs int) []outcome {
	results := make([]outcome, len(files))
	var g errgroup.Group
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, file := range files {
		g.Go(func() error {
			results[i] = recoverFile(file)
			return nil
		})
	}
	g.Wait()
	return results
}

func recoverFile(file string) outcome {
	out := outcome{file: file}
	raw, err := os.ReadFile(file)
	if err != nil {
		out.err = fmt.Errorf("cannot open file: %w", err)
		return out
	}
	doc, err := data.ParseDocument(raw)
	if err != nil {
		out.err = err
		return out
	}
	res, err := doc.Reconstruct()
	out.secret = res.Secret
	out.dropped = res.Dropped
	out.err = err
	return out
}

func report(stdout, stderr io.Writer, results []outcome, verbose bool) error {
	failed := false
	for _, r := range results {
		if verbose {
			for _, d := range r.dropped {
				fmt.Fprintf(stderr, "%s: dropped share %s (%s): %v\n", r.file, d.ID, shamir.Stage(d.Err), d.Err)
			}
		}
		if r.err != nil {
			failed = true
			if stage := shamir.Stage(r.err); stage != "" {
				fmt.Fprintf(stderr, "%s: %s: %v\n", r.file, stage, r.err)
			} else {
				fmt.Fprintf(stderr, "%s: %v\n", r.file, r.err)
			}
			continue
		}
		fmt.Fprintf(stdout, "Secret for %s: %d\n", r.file, r.secret)
	}
	if failed {
		return errFailed
	}
	return nil
}
