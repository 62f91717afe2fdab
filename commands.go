package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"fingerprinter/internal/export"
	"fingerprinter/internal/hashers"
)

func (c *cli) newAlgorithmsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List the supported hash algorithms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printAlgorithms(cmd.OutOrStdout())
			return nil
		},
	}
}

func printAlgorithms(w io.Writer) {
	for _, family := range []hashers.Family{hashers.FamilyBinary, hashers.FamilyPerceptual} {
		fmt.Fprintf(w, "%s:\n", family)
		for _, name := range hashers.ByFamily(family) {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}

	aliases := hashers.Aliases()
	if len(aliases) == 0 {
		return
	}
	names := make([]string, 0, len(aliases))
	for alias := range aliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "aliases:")
	for _, alias := range names {
		fmt.Fprintf(w, "  %s -> %s\n", alias, aliases[alias])
	}
}

var errNotConfirmed = errors.New("aborted: schema not dropped")

func (c *cli) newDropDBCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "dropdb",
		Short: "Drop and recreate the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := c.loadConfig()
			if err != nil {
				return err
			}
			if !yes {
				if !term.IsTerminal(int(os.Stdin.Fd())) {
					return errors.New("stdin is not a terminal, pass --yes to drop the schema")
				}
				if !confirm(cmd.InOrStdin(), cmd.ErrOrStderr(),
					fmt.Sprintf("Drop every record in %s?", config.DatabasePath)) {
					return errNotConfirmed
				}
			}
			return dropDatabase(cmd.Context(), config.DatabasePath, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// confirm asks a yes/no question and reports whether the answer was yes.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func dropDatabase(ctx context.Context, path string, out io.Writer) error {
	db, err := openDatabase(ctx, path)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	if err := db.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	fmt.Fprintf(out, "Schema of %s dropped and recreated.\n", path)
	return nil
}

func (c *cli) newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every stored record as YAML (zstd-compressed for .zst)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := c.loadConfig()
			if err != nil {
				return err
			}
			db, err := openDatabase(cmd.Context(), config.DatabasePath)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			if output == "-" {
				_, err = export.Write(cmd.Context(), cmd.OutOrStdout(), db)
				return err
			}
			n, err := export.ToFile(cmd.Context(), output, db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", n, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file, - for stdout")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
