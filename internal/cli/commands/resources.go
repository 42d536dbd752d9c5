package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/transitly/transitly/internal/cli/client"
)

// resourceSpec describes how one API collection maps onto the
// ls/get/add/edit/rm command group
type resourceSpec[T any] struct {
	use    string
	noun   string
	plural string

	collection func(*client.Client) client.Collection[T]
	id         func(*T) string
	setID      func(*T, string)
	label      func(*T) string
	validate   func(T, []T) error

	header string
	row    func(*T) string

	// bind registers the form flags; required lists those add needs
	bind     func(cmd *cobra.Command, form *T)
	required []string
	// merge copies every flag the user set from form into dst
	merge func(cmd *cobra.Command, dst *T, form *T)
}

func newResourceCmd[T any](opts *GlobalOptions, spec resourceSpec[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   spec.use,
		Short: fmt.Sprintf("Manage %s", spec.plural),
	}

	cmd.AddCommand(
		newResourceListCmd(opts, spec),
		newResourceGetCmd(opts, spec),
		newResourceAddCmd(opts, spec),
		newResourceEditCmd(opts, spec),
		newResourceDeleteCmd(opts, spec),
	)

	return cmd
}

// openAuthenticated opens a runtime and requires a stored session
func openAuthenticated(cmd *cobra.Command, opts *GlobalOptions) (*runtime, error) {
	rt, err := opts.open(cmd.Context())
	if err != nil {
		return nil, err
	}
	if err := rt.requireLogin(); err != nil {
		return nil, err
	}
	return rt, nil
}

func newResourceListCmd[T any](opts *GlobalOptions, spec resourceSpec[T]) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   fmt.Sprintf("List all %s", spec.plural),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openAuthenticated(cmd, opts)
			if err != nil {
				return err
			}

			items, err := spec.collection(rt.client).List(cmd.Context())
			if err != nil {
				return friendly(err, fmt.Sprintf("Failed to load %s", spec.plural))
			}

			if asJSON {
				return printJSON(rt.out, items)
			}
			if len(items) == 0 {
				fmt.Fprintf(rt.out, "No %s found.\n", spec.plural)
				return nil
			}
			return printTable(rt.out, spec.header, items, spec.row)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	return cmd
}

func newResourceGetCmd[T any](opts *GlobalOptions, spec resourceSpec[T]) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: fmt.Sprintf("Show a %s", spec.noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openAuthenticated(cmd, opts)
			if err != nil {
				return err
			}

			item, err := spec.collection(rt.client).Get(cmd.Context(), args[0])
			if err != nil {
				return friendly(err, fmt.Sprintf("Failed to load %s", spec.noun))
			}
			return printJSON(rt.out, item)
		},
	}
}

func newResourceAddCmd[T any](opts *GlobalOptions, spec resourceSpec[T]) *cobra.Command {
	var form T

	cmd := &cobra.Command{
		Use:   "add",
		Short: fmt.Sprintf("Create a %s", spec.noun),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openAuthenticated(cmd, opts)
			if err != nil {
				return err
			}
			col := spec.collection(rt.client)

			existing, err := col.List(cmd.Context())
			if err != nil {
				return friendly(err, fmt.Sprintf("Failed to load %s", spec.plural))
			}
			if err := spec.validate(form, existing); err != nil {
				return err
			}

			created, err := col.Create(cmd.Context(), form)
			if err != nil {
				return friendly(err, fmt.Sprintf("Failed to create %s", spec.noun))
			}

			rt.success(fmt.Sprintf("%s Added", titleCase(spec.noun)), "%s created (id %s)", spec.label(created), spec.id(created))
			return nil
		},
	}

	spec.bind(cmd, &form)
	for _, name := range spec.required {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func newResourceEditCmd[T any](opts *GlobalOptions, spec resourceSpec[T]) *cobra.Command {
	var form T

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: fmt.Sprintf("Update a %s", spec.noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.LocalFlags().NFlag() == 0 {
				return fmt.Errorf("nothing to change; pass at least one field flag")
			}

			rt, err := openAuthenticated(cmd, opts)
			if err != nil {
				return err
			}
			col := spec.collection(rt.client)

			current, err := col.Get(cmd.Context(), args[0])
			if err != nil {
				return friendly(err, fmt.Sprintf("Failed to load %s", spec.noun))
			}
			spec.merge(cmd, current, &form)
			spec.setID(current, args[0])

			existing, err := col.List(cmd.Context())
			if err != nil {
				return friendly(err, fmt.Sprintf("Failed to load %s", spec.plural))
			}
			if err := spec.validate(*current, existing); err != nil {
				return err
			}

			updated, err := col.Update(cmd.Context(), args[0], *current)
			if err != nil {
				return friendly(err, fmt.Sprintf("Failed to update %s", spec.noun))
			}

			rt.success(fmt.Sprintf("%s Updated", titleCase(spec.noun)), "%s saved", spec.label(updated))
			return nil
		},
	}

	spec.bind(cmd, &form)

	return cmd
}

func newResourceDeleteCmd[T any](opts *GlobalOptions, spec resourceSpec[T]) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   fmt.Sprintf("Delete a %s", spec.noun),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openAuthenticated(cmd, opts)
			if err != nil {
				return err
			}

			if !yes {
				ok, err := opts.confirm(fmt.Sprintf("Delete %s %s", spec.noun, args[0]))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(rt.out, "Cancelled")
					return nil
				}
			}

			if err := spec.collection(rt.client).Delete(cmd.Context(), args[0]); err != nil {
				return friendly(err, fmt.Sprintf("Failed to delete %s", spec.noun))
			}

			rt.success(fmt.Sprintf("%s Deleted", titleCase(spec.noun)), "%s %s deleted", spec.noun, args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func printTable[T any](out io.Writer, header string, items []T, row func(*T) string) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, header)
	for i := range items {
		fmt.Fprintln(w, row(&items[i]))
	}
	return w.Flush()
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
