package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/vonshlovens/notestore/internal/config"
	"github.com/vonshlovens/notestore/internal/export"
	"github.com/vonshlovens/notestore/internal/imaging"
	"github.com/vonshlovens/notestore/internal/store"
)

// noteForm is what add and edit accept from the command line.
type noteForm struct {
	Title   string `validate:"required"`
	Content string
	Image   string
}

var formValidator = validator.New()

func (f *noteForm) validate() error {
	f.Title = strings.TrimSpace(f.Title)
	if err := formValidator.Struct(f); err != nil {
		return errors.New("note title is required")
	}
	return nil
}

func newEncoder(cfg *config.Config) *imaging.Encoder {
	return imaging.NewEncoder(imaging.NewFileReader(cfg.Images), nil)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid note id %q", s)
	}
	return id, nil
}

func addCmd() *cobra.Command {
	var form noteForm
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a note",
		Long:  `Adds a note. An image path or file:// URI is embedded as a data URI; if it cannot be read the note is saved without it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := form.validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			return withBackend(ctx, func(cfg *config.Config, b *backend) error {
				note := store.Note{Title: form.Title, Content: form.Content}
				if form.Image != "" {
					note.ImageURI = store.String(form.Image)
					if uri, ok := newEncoder(cfg).Encode(ctx, form.Image); ok {
						note.ImageBase64 = &uri
					} else {
						fmt.Fprintln(cmd.ErrOrStderr(), "Image could not be read; the note is saved without it.")
					}
				}

				stored, err := store.NewNoteRepository(b).Insert(ctx, note)
				if err != nil {
					return fmt.Errorf("failed to save note: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Note %d saved.\n", stored.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&form.Title, "title", "t", "", "note title (required)")
	cmd.Flags().StringVarP(&form.Content, "content", "m", "", "note content")
	cmd.Flags().StringVarP(&form.Image, "image", "i", "", "image path or file:// URI")
	return cmd
}

func listCmd() *cobra.Command {
	var query string
	var newest bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withBackend(ctx, func(cfg *config.Config, b *backend) error {
				notes, err := store.NewNoteRepository(b).List(ctx)
				if err != nil {
					return err
				}
				notes = store.Search(notes, query)
				if newest {
					notes = store.SortNewestFirst(notes)
				}
				printNotes(cmd.OutOrStdout(), notes)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "only notes whose title or content contains this text")
	cmd.Flags().BoolVar(&newest, "newest", false, "newest first instead of insertion order")
	return cmd
}

func printNotes(w io.Writer, notes []store.Note) {
	if len(notes) == 0 {
		fmt.Fprintln(w, "No notes.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tIMAGE\tTITLE\tPREVIEW")
	for _, n := range notes {
		image := ""
		if n.HasImage() {
			image = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", n.ID, shortDate(n), image, n.Title, preview(n.Content, 40))
	}
	tw.Flush()
}

func shortDate(n store.Note) string {
	if t, ok := n.Time(); ok {
		return t.Local().Format("2006-01-02 15:04")
	}
	return n.Date
}

// preview returns the first line of s cut to max runes.
func preview(s string, max int) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	r := []rune(s)
	if len(r) > max {
		return string(r[:max-1]) + "…"
	}
	return s
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return withBackend(ctx, func(cfg *config.Config, b *backend) error {
				n, ok, err := store.NewNoteRepository(b).Get(ctx, id)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("note %d not found", id)
				}

				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "%s\n", n.Title)
				fmt.Fprintf(w, "ID:    %d\n", n.ID)
				fmt.Fprintf(w, "Date:  %s\n", shortDate(n))
				if n.ImageURI != nil {
					fmt.Fprintf(w, "Image: %s\n", *n.ImageURI)
				}
				if n.HasImage() {
					if mime, data, err := imaging.ParseDataURI(*n.ImageBase64); err == nil {
						fmt.Fprintf(w, "       embedded %s, %d bytes\n", mime, len(data))
					} else {
						fmt.Fprintf(w, "       embedded payload unreadable: %v\n", err)
					}
				}
				fmt.Fprintf(w, "\n%s\n", n.Content)
				return nil
			})
		},
	}
}

func editCmd() *cobra.Command {
	var title, content, image string
	var clearImage bool
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit a note",
		Long:  `Changes the given fields of a note. A new image is read and embedded again; --clear-image removes it.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			var patch store.NotePatch
			if flags.Changed("title") {
				form := noteForm{Title: title}
				if err := form.validate(); err != nil {
					return err
				}
				patch.Title = &form.Title
			}
			if flags.Changed("content") {
				patch.Content = &content
			}

			ctx := cmd.Context()
			return withBackend(ctx, func(cfg *config.Config, b *backend) error {
				switch {
				case clearImage:
					patch.ImageURI, patch.ImageBase64 = store.String(""), store.String("")
				case flags.Changed("image"):
					if uri, ok := newEncoder(cfg).Encode(ctx, image); ok {
						patch.ImageURI, patch.ImageBase64 = &image, &uri
					} else {
						fmt.Fprintln(cmd.ErrOrStderr(), "Image could not be read; keeping the current image.")
					}
				}

				matched, err := store.NewNoteRepository(b).UpdateByID(ctx, id, patch)
				if err != nil {
					return fmt.Errorf("failed to update note: %w", err)
				}
				if !matched {
					return fmt.Errorf("note %d not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Note %d updated.\n", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&content, "content", "m", "", "new content")
	cmd.Flags().StringVarP(&image, "image", "i", "", "new image path or file:// URI")
	cmd.Flags().BoolVar(&clearImage, "clear-image", false, "remove the image")
	cmd.MarkFlagsMutuallyExclusive("image", "clear-image")
	return cmd
}

func deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete note %d?", id)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}

			ctx := cmd.Context()
			return withBackend(ctx, func(cfg *config.Config, b *backend) error {
				removed, err := store.NewNoteRepository(b).DeleteByID(ctx, id)
				if err != nil {
					return fmt.Errorf("failed to delete note: %w", err)
				}
				if !removed {
					fmt.Fprintf(cmd.OutOrStdout(), "No note with id %d.\n", id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Note %d deleted.\n", id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func exportCmd() *cobra.Command {
	var ids []int64
	var out, locale string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export notes as a printable HTML document",
		Long:  `Writes one page per note, ready to print to PDF. Without --ids every note is exported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withBackend(ctx, func(cfg *config.Config, b *backend) error {
				notes, err := store.NewNoteRepository(b).List(ctx)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("ids") {
					notes = store.Select(notes, ids)
				}

				if out == "" {
					out = cfg.Export.OutputDir
				}
				if locale == "" {
					locale = cfg.Export.Locale
				}

				path, err := export.WriteFile(out, notes, export.Options{
					Locale:   locale,
					Progress: cmd.ErrOrStderr(),
				})
				if errors.Is(err, export.ErrNothingToExport) {
					if cmd.Flags().Changed("ids") {
						return errors.New("none of the selected notes exist")
					}
					return errors.New("there are no notes to export")
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d notes to %s\n", len(notes), path)
				return nil
			})
		},
	}
	cmd.Flags().Int64SliceVar(&ids, "ids", nil, "ids of the notes to export")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file or directory")
	cmd.Flags().StringVar(&locale, "locale", "", "date and footer language (id or en)")
	return cmd
}
