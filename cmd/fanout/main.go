package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/bamsammich/fanout/internal/config"
	"github.com/bamsammich/fanout/internal/engine"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		opts        options
		targets     []string
		patternExpr string
		globExpr    string
		recursive   bool
		saveJobs    string
		showVersion bool
	)

	rootCmd := &cobra.Command{
		Use:   "fanout [flags] <source>... --to <destination> [--to <destination>...]",
		Short: "Copy files to several destinations at once, with checksum verification",
		Long: `fanout copies sources to one or more destinations in a single pass. Each
file is written to every destination in parallel, in slices sized to the
measured throughput, and can be verified afterwards against a digest of the
source.

A source directory is expanded with --pattern (a regular expression over
paths relative to the directory) or --glob; a source file is copied as is.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				return nil
			}
			if len(targets) == 0 {
				return errors.New("at least one --to destination is required")
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(os.Stdout, "fanout %s\n", version)
				return nil
			}

			specs, err := sourceSpecs(args, patternExpr, globExpr, recursive)
			if err != nil {
				return err
			}
			jobFile := config.JobFile{Jobs: []config.Job{{Destinations: targets, Sources: specs}}}

			if saveJobs != "" {
				if err := config.WriteJobs(saveJobs, jobFile); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "wrote %s\n", saveJobs)
				return nil
			}

			jobs, err := jobFile.CopyJobs()
			if err != nil {
				return err
			}
			return execute(cmd, &opts, jobs)
		},
	}

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")
	rootCmd.Flags().
		StringArrayVarP(&targets, "to", "t", nil, "destination root (repeatable)")
	rootCmd.Flags().
		StringVarP(&patternExpr, "pattern", "p", "", "regular expression selecting entries of source directories (default: everything)")
	rootCmd.Flags().
		StringVarP(&globExpr, "glob", "g", "", "shell glob selecting entries of source directories (e.g. '**/*.jpg')")
	rootCmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "descend into subdirectories")
	rootCmd.Flags().
		StringVar(&saveJobs, "save-jobs", "", "write the invocation to a job FILE instead of copying")
	rootCmd.MarkFlagsMutuallyExclusive("pattern", "glob")

	opts.register(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newRunCmd(&opts))
	rootCmd.AddCommand(docsCmd)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	return 0
}

// sourceSpecs turns command line sources into job sources. A directory is
// expanded with the pattern or glob; a file becomes its parent directory
// with a pattern matching exactly its name.
func sourceSpecs(args []string, patternExpr, globExpr string, recursive bool) ([]config.SourceSpec, error) {
	specs := make([]config.SourceSpec, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}

		if !info.IsDir() {
			specs = append(specs, config.SourceSpec{
				Base:    filepath.Dir(abs),
				Pattern: regexp.QuoteMeta(filepath.Base(abs)),
			})
			continue
		}

		spec := config.SourceSpec{Base: abs, Pattern: patternExpr, Glob: globExpr, Recursive: recursive}
		if spec.Pattern == "" && spec.Glob == "" {
			spec.Pattern = ".*"
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run <jobfile>...",
		Short: "Run the copy jobs described in TOML job files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var jobs []*engine.CopyJob
			for _, path := range args {
				f, err := config.ReadJobs(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				js, err := f.CopyJobs()
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				jobs = append(jobs, js...)
			}
			return execute(cmd, opts, jobs)
		},
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
