package main

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arawak/toolshelf/internal/tagclient"
	"github.com/arawak/toolshelf/internal/tagname"
)

func newTagsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage the shared tag vocabulary",
	}
	cmd.AddCommand(newTagsListCmd(a))
	cmd.AddCommand(newTagsAddCmd(a))
	cmd.AddCommand(newTagsEnsureCmd(a))
	cmd.AddCommand(newTagsEditCmd(a))
	return cmd
}

func newTagsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List all tags",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := a.backend().ListTags(cmd.Context())
			if err != nil {
				return fmt.Errorf("list tags: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, "No tags found.")
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(out, n)
			}
			return nil
		},
	}
}

func newTagsAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := tagname.Normalize(args[0])
			if name == "" {
				return fmt.Errorf("tag name is required")
			}
			res, err := a.backend().CreateTag(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", res.Status, orName(res.Name, name))
			return nil
		},
	}
}

func newTagsEnsureCmd(a *app) *cobra.Command {
	var parallel int
	cmd := &cobra.Command{
		Use:   "ensure <name>...",
		Short: "Create every listed tag that does not exist yet",
		Long:  `Creates the given tags concurrently. Failures are reported per name and do not stop the others; the exit status is non-zero if any name failed.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("parallel") {
				parallel = a.cfg.EnsureParallel
			}
			report := tagclient.NewEnsurer(a.backend(), a.logger).
				WithConcurrency(parallel).
				Ensure(cmd.Context(), args)

			out := cmd.OutOrStdout()
			for _, n := range report.Created {
				fmt.Fprintf(out, "created\t%s\n", n)
			}
			for _, n := range report.Existing {
				fmt.Fprintf(out, "existed\t%s\n", n)
			}
			for _, n := range slices.Sorted(maps.Keys(report.Failed)) {
				fmt.Fprintf(out, "failed\t%s\t%s\n", n, humanError(report.Failed[n]))
			}
			if !report.OK() {
				return fmt.Errorf("%d of %d tags failed", len(report.Failed), len(report.Failed)+len(report.Created)+len(report.Existing))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&parallel, "parallel", tagclient.DefaultEnsureConcurrency, "maximum concurrent creations (env TOOLSHELF_ENSURE_PARALLEL)")
	return cmd
}

func newTagsEditCmd(a *app) *cobra.Command {
	var initial []string
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Pick tags interactively",
		Long: `Reads commands from stdin, one per line:

  ?text   show suggestions containing text
  #N      pick suggestion N from the last listing
  -name   remove a selected tag
  .       finish and print the selection
  name    create the tag if needed and select it`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel := tagclient.NewSelector(a.backend(), initial, a.logger)
			<-sel.Mount(cmd.Context())
			return runEditor(cmd, sel, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringSliceVar(&initial, "selected", nil, "tags already selected")
	return cmd
}

func runEditor(cmd *cobra.Command, sel *tagclient.Selector, in io.Reader, out io.Writer) error {
	var listed []string
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case line == ".":
			printSelection(out, sel)
			return nil
		case strings.HasPrefix(line, "?"):
			sel.SetDraft(line[1:])
			listed = sel.Suggestions()
			for i, s := range listed {
				fmt.Fprintf(out, "%d\t%s\n", i+1, s)
			}
			if sel.CanCreate() {
				fmt.Fprintf(out, "+\t%s\n", tagname.Normalize(line[1:]))
			}
		case strings.HasPrefix(line, "#"):
			i, err := strconv.Atoi(line[1:])
			if err != nil || i < 1 || i > len(listed) {
				fmt.Fprintf(out, "no suggestion %s\n", line)
				continue
			}
			sel.Select(listed[i-1])
			listed = nil
		case strings.HasPrefix(line, "-"):
			sel.Remove(line[1:])
		default:
			sel.SetDraft(line)
			if err := sel.Commit(cmd.Context()); err != nil {
				fmt.Fprintf(out, "could not create %q: %s\n", tagname.Normalize(line), humanError(err))
				sel.Dismiss()
				continue
			}
		}
		fmt.Fprintf(out, "selected: %s\n", strings.Join(sel.Selected(), ", "))
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	printSelection(out, sel)
	return nil
}

func printSelection(out io.Writer, sel *tagclient.Selector) {
	fmt.Fprintln(out, strings.Join(sel.Selected(), ","))
}

func orName(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
