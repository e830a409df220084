package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/shelf/internal/app"
	"github.com/hpungsan/shelf/internal/card"
	"github.com/hpungsan/shelf/internal/cards"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/settings"
	"github.com/hpungsan/shelf/internal/web"
)

// maxStdinBytes caps documents piped into import commands.
const maxStdinBytes = 16 << 20

// opener opens the app for a data directory ("" = default).
type opener func(ctx context.Context, dataDir string) (*app.App, error)

// session opens the app on first use and closes it after the command.
type session struct {
	open opener
	app  *app.App
}

func (s *session) get(c *cli.Context) (*app.App, error) {
	if s.app != nil {
		return s.app, nil
	}
	a, err := s.open(c.Context, c.String("data-dir"))
	if err != nil {
		return nil, err
	}
	s.app = a
	return a, nil
}

// finish prints pending notifications to stderr and closes the app.
func (s *session) finish(c *cli.Context) error {
	if s.app == nil {
		return nil
	}
	if !c.Bool("quiet") {
		for _, t := range s.app.Toasts.Active() {
			fmt.Fprintf(c.App.ErrWriter, "[%s] %s\n", t.Severity, t.Message)
		}
	}
	err := s.app.Close()
	s.app = nil
	return err
}

// action wraps a command body that needs the app.
func (s *session) action(fn func(c *cli.Context, a *app.App) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := s.get(c)
		if err != nil {
			return outputError(err)
		}
		return fn(c, a)
	}
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(open opener) *cli.App {
	s := &session{open: open}
	cliApp := &cli.App{
		Name:    "shelf",
		Usage:   "Local bookmark card manager",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "data-dir", Aliases: []string{"d"}, EnvVars: []string{dataDirEnv}, Usage: "Data directory (default: ~/.shelf)"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Do not print notifications"},
		},
		Commands: []*cli.Command{
			addCmd(s),
			updateCmd(s),
			archiveCmd(s, "archive", true),
			archiveCmd(s, "unarchive", false),
			deleteCmd(s),
			duplicateCmd(s),
			getCmd(s),
			listCmd(s),
			tagsCmd(s),
			exportCmd(s),
			importCmd(s),
			lookupCmd(s),
			checkCmd(s),
			settingsCmd(s),
			serveCmd(s),
		},
		After: s.finish,
	}
	// Disable default exit error handler to allow proper error return in tests
	cliApp.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return cliApp
}

// addCmd creates the add command.
func addCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add a card",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Card title"},
			&cli.StringFlag{Name: "description", Aliases: []string{"D"}, Usage: "Card description (markdown)"},
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "Link URL"},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
			&cli.StringFlag{Name: "icon-url", Usage: "Icon image URL (default: letter icon)"},
			&cli.StringFlag{Name: "icon-file", Usage: "Local image stored inline as the icon"},
			&cli.BoolFlag{Name: "hide-icon", Usage: "Do not show the icon"},
			&cli.BoolFlag{Name: "prefill", Usage: "Fill empty fields from the page at --url"},
			&cli.BoolFlag{Name: "wikipedia", Usage: "Fill empty fields from Wikipedia by title"},
			&cli.BoolFlag{Name: "verify-icon", Usage: "Drop --icon-url when it is not a reachable image"},
		},
		Action: s.action(func(c *cli.Context, a *app.App) error {
			in := cards.AddInput{
				Title:       c.String("title"),
				Description: c.String("description"),
				URL:         c.String("url"),
				TagText:     c.String("tags"),
				IconURL:     c.String("icon-url"),
				IconFile:    c.String("icon-file"),
			}
			if c.Bool("hide-icon") {
				show := false
				in.ShowIcon = &show
			}

			prefill := a.Prefill(c.Context, &in, app.PrefillOptions{
				FromPage:      c.Bool("prefill"),
				FromWikipedia: c.Bool("wikipedia"),
				VerifyIcon:    c.Bool("verify-icon"),
			})

			created, err := a.Cards.Add(c.Context, in)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, map[string]any{"card": created, "prefill": prefill})
		}),
	}
}

// updateCmd creates the update command.
func updateCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Edit a card; only the given flags change",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "New title"},
			&cli.StringFlag{Name: "description", Aliases: []string{"D"}, Usage: "New description"},
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "New URL (empty clears it)"},
			&cli.StringFlag{Name: "tags", Usage: "Replacement comma-separated tags"},
			&cli.StringFlag{Name: "icon-url", Usage: "New icon image URL (empty switches to a letter icon)"},
			&cli.StringFlag{Name: "icon-file", Usage: "Local image stored inline as the new icon"},
			&cli.BoolFlag{Name: "show-icon", Usage: "Show or hide the icon (--show-icon=false hides)"},
		},
		Action: s.action(func(c *cli.Context, a *app.App) error {
			id, err := requireID(c)
			if err != nil {
				return outputError(err)
			}

			var in cards.UpdateInput
			in.Title = stringIfSet(c, "title")
			in.Description = stringIfSet(c, "description")
			in.URL = stringIfSet(c, "url")
			in.TagText = stringIfSet(c, "tags")
			in.IconURL = stringIfSet(c, "icon-url")
			in.IconFile = stringIfSet(c, "icon-file")
			if c.IsSet("show-icon") {
				show := c.Bool("show-icon")
				in.ShowIcon = &show
			}

			updated, err := a.Cards.Update(c.Context, id, in)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, updated)
		}),
	}
}

// archiveCmd creates the archive and unarchive commands.
func archiveCmd(s *session, name string, archived bool) *cli.Command {
	usage := "Archive a card"
	if !archived {
		usage = "Restore an archived card"
	}
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<id>",
		Action: s.action(func(c *cli.Context, a *app.App) error {
			id, err := requireID(c)
			if err != nil {
				return outputError(err)
			}
			updated, err := a.Cards.Archive(c.Context, id, archived)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, updated)
		}),
	}
}

// deleteCmd creates the delete command.
func deleteCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Permanently remove a card",
		ArgsUsage: "<id>",
		Action: s.action(func(c *cli.Context, a *app.App) error {
			id, err := requireID(c)
			if err != nil {
				return outputError(err)
			}
			if err := a.Cards.Remove(c.Context, id); err != nil {
				return outputError(err)
			}
			return outputJSON(c, map[string]any{"id": id, "deleted": true})
		}),
	}
}

// duplicateCmd creates the duplicate command.
func duplicateCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "duplicate",
		Usage:     "Copy a card",
		ArgsUsage: "<id>",
		Action: s.action(func(c *cli.Context, a *app.App) error {
			id, err := requireID(c)
			if err != nil {
				return outputError(err)
			}
			dup, err := a.Cards.Duplicate(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, dup)
		}),
	}
}

// getCmd creates the get command.
func getCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show one card",
		ArgsUsage: "<id>",
		Action: s.action(func(c *cli.Context, a *app.App) error {
			id, err := requireID(c)
			if err != nil {
				return outputError(err)
			}
			found, err := a.Cards.Get(id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, found)
		}),
	}
}

// listCmd creates the list command.
func listCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List cards",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Search title, description and tags"},
			&cli.StringFlag{Name: "tag", Usage: "Exact tag"},
			&cli.BoolFlag{Name: "archived", Aliases: []string{"a"}, Usage: "List archived cards instead of active ones"},
			&cli.BoolFlag{Name: "all", Usage: "Every card, ignoring filters"},
		},
		Action: s.action(func(c *cli.Context, a *app.App) error {
			var list []card.Card
			if c.Bool("all") {
				list = a.Cards.List()
			} else {
				list = a.Cards.Filter(card.Filter{
					Query:        c.String("query"),
					Tag:          c.String("tag"),
					ShowArchived: c.Bool("archived"),
				})
			}
			return outputJSON(c, map[string]any{"cards": list, "count": len(list)})
		}),
	}
}

// tagsCmd creates the tags command.
func tagsCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "List distinct tags and card counts",
		Action: s.action(func(c *cli.Context, a *app.App) error {
			return outputJSON(c, map[string]any{"tags": a.Cards.AllTags(), "counts": a.Cards.Counts()})
		}),
	}
}

// exportCmd creates the export command.
func exportCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export all cards as a JSON array",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: <data-dir>/exports/bookmark-cards-<timestamp>.json)"},
			&cli.BoolFlag{Name: "stdout", Usage: "Write the document to stdout instead of a file"},
		},
		Action: s.action(func(c *cli.Context, a *app.App) error {
			if c.Bool("stdout") {
				if _, err := a.Cards.Export(c.Context, c.App.Writer); err != nil {
					return outputError(err)
				}
				return nil
			}
			out, err := a.Cards.ExportFile(c.Context, c.String("path"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		}),
	}
}

// importCmd creates the import command.
func importCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Replace all cards with a JSON array (from --path or stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Import file path"},
		},
		Action: s.action(func(c *cli.Context, a *app.App) error {
			var (
				out *cards.ImportOutput
				err error
			)
			if path := c.String("path"); path != "" {
				out, err = a.Cards.ImportFile(c.Context, path)
			} else {
				data, rerr := readInput(c)
				if rerr != nil {
					return outputError(rerr)
				}
				out, err = a.Cards.Import(c.Context, data)
			}
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		}),
	}
}

// lookupCmd creates the lookup command.
func lookupCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "Search Wikipedia, or read page metadata with --url",
		ArgsUsage: "[term]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "Page to read title, description and icon from"},
		},
		Action: s.action(func(c *cli.Context, a *app.App) error {
			if u := c.String("url"); u != "" {
				page := a.Lookup.FetchPage(c.Context, u)
				if page == nil {
					return outputError(errors.NewInvalidRequest("no metadata found at " + u))
				}
				return outputJSON(c, page)
			}
			term := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if term == "" {
				return outputError(errors.NewInvalidField("term", "is required"))
			}
			res := a.Lookup.Search(c.Context, term)
			if res == nil {
				return outputError(errors.NewInvalidRequest("no Wikipedia article found for " + term))
			}
			return outputJSON(c, res)
		}),
	}
}

// checkCmd creates the check command.
func checkCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Check that a URL is reachable",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "image", Usage: "Require the URL to serve an image"},
		},
		Action: s.action(func(c *cli.Context, a *app.App) error {
			u := c.Args().First()
			if u == "" {
				return outputError(errors.NewInvalidField("url", "is required"))
			}
			var ok bool
			if c.Bool("image") {
				ok = a.Lookup.CheckImage(c.Context, u)
			} else {
				ok = a.Lookup.CheckWebsite(c.Context, u)
			}
			return outputJSON(c, map[string]any{"url": u, "reachable": ok})
		}),
	}
}

// settingsCmd creates the settings command group.
func settingsCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show or change settings",
		Subcommands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Show current settings",
				Action: s.action(func(c *cli.Context, a *app.App) error {
					return outputJSON(c, a.Settings.Current(c.Context))
				}),
			},
			settingValueCmd(s, "theme", "Set the theme: "+strings.Join(settings.Themes, ", "),
				func(ctx context.Context, r *settings.Repository, v string) error { return r.SaveTheme(ctx, v) }),
			settingValueCmd(s, "view", "Set the layout: "+strings.Join(settings.ViewModes, ", "),
				func(ctx context.Context, r *settings.Repository, v string) error { return r.SaveViewMode(ctx, v) }),
			settingValueCmd(s, "title", "Set the app title",
				func(ctx context.Context, r *settings.Repository, v string) error { return r.SaveTitle(ctx, v) }),
			{
				Name:      "show-archived",
				Usage:     "Show archived cards in the view (true|false)",
				ArgsUsage: "<true|false>",
				Action: s.action(func(c *cli.Context, a *app.App) error {
					show, err := parseBoolArg(c.Args().First())
					if err != nil {
						return outputError(err)
					}
					if err := a.Settings.SaveShowArchived(c.Context, show); err != nil {
						return outputError(err)
					}
					return outputJSON(c, a.Settings.Current(c.Context))
				}),
			},
			{
				Name:  "colors",
				Usage: "Set the custom theme colours; unset flags keep their current value",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "primary"},
					&cli.StringFlag{Name: "background"},
					&cli.StringFlag{Name: "card-bg"},
					&cli.StringFlag{Name: "text-primary"},
					&cli.StringFlag{Name: "text-secondary"},
					&cli.StringFlag{Name: "border"},
					&cli.BoolFlag{Name: "apply", Usage: "Also switch to the custom theme"},
				},
				Action: s.action(func(c *cli.Context, a *app.App) error {
					colors := settings.DefaultColors
					if current := a.Settings.CustomColors(c.Context); current != nil {
						colors = *current
					}
					overlay(c, "primary", &colors.Primary)
					overlay(c, "background", &colors.Background)
					overlay(c, "card-bg", &colors.CardBg)
					overlay(c, "text-primary", &colors.TextPrimary)
					overlay(c, "text-secondary", &colors.TextSecondary)
					overlay(c, "border", &colors.Border)

					if err := a.Settings.SaveCustomColors(c.Context, colors); err != nil {
						return outputError(err)
					}
					if c.Bool("apply") {
						if err := a.Settings.SaveTheme(c.Context, settings.CustomTheme); err != nil {
							return outputError(err)
						}
					}
					return outputJSON(c, a.Settings.Current(c.Context))
				}),
			},
			{
				Name:  "export",
				Usage: "Export settings as JSON or YAML (by extension)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: <data-dir>/exports/card-settings-<timestamp>.json)"},
				},
				Action: s.action(func(c *cli.Context, a *app.App) error {
					out, err := a.Settings.ExportFile(c.Context, c.String("path"))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, out)
				}),
			},
			{
				Name:  "import",
				Usage: "Apply a settings document (from --path or JSON on stdin)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Import file path (.json, .yaml, .yml)"},
				},
				Action: s.action(func(c *cli.Context, a *app.App) error {
					var (
						out *settings.ImportOutput
						err error
					)
					if path := c.String("path"); path != "" {
						out, err = a.Settings.ImportFile(c.Context, path)
					} else {
						data, rerr := readInput(c)
						if rerr != nil {
							return outputError(rerr)
						}
						out, err = a.Settings.Import(c.Context, data)
					}
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, out)
				}),
			},
			{
				Name:  "reset",
				Usage: "Restore default settings",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm the reset"},
				},
				Action: s.action(func(c *cli.Context, a *app.App) error {
					if !c.Bool("yes") {
						return outputError(errors.NewInvalidRequest("reset requires --yes"))
					}
					if err := a.Settings.ResetAll(c.Context); err != nil {
						return outputError(err)
					}
					return outputJSON(c, a.Settings.Current(c.Context))
				}),
			},
			{
				Name:  "info",
				Usage: "Show storage usage",
				Action: s.action(func(c *cli.Context, a *app.App) error {
					usage, err := a.Settings.Usage(c.Context)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, usage)
				}),
			},
		},
	}
}

// settingValueCmd creates a settings subcommand that saves its one argument.
func settingValueCmd(s *session, name, usage string, save func(context.Context, *settings.Repository, string) error) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<value>",
		Action: s.action(func(c *cli.Context, a *app.App) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidField(name, "value is required"))
			}
			if err := save(c.Context, a.Settings, c.Args().First()); err != nil {
				return outputError(err)
			}
			return outputJSON(c, a.Settings.Current(c.Context))
		}),
	}
}

// serveCmd creates the serve command.
func serveCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the card view over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Usage: "Listen address (default from config: 127.0.0.1)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (default from config: 8765)"},
		},
		Action: s.action(func(c *cli.Context, a *app.App) error {
			bind, port := a.Config.Web.Bind, a.Config.Web.Port
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			if c.IsSet("port") {
				port = c.Int("port")
			}

			srv, err := web.NewServer(a, Version, bind, port)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			fmt.Fprintf(c.App.ErrWriter, "serving cards on http://%s\n", srv.Addr)
			if err := web.Run(srv, a.Log); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		}),
	}
}

// Helper functions

// outputJSON writes v to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if sErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// requireID returns the first positional argument as a card id.
func requireID(c *cli.Context) (string, error) {
	id := strings.TrimSpace(c.Args().First())
	if id == "" {
		return "", errors.NewInvalidField("id", "is required")
	}
	return id, nil
}

func stringIfSet(c *cli.Context, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	v := c.String(name)
	return &v
}

func overlay(c *cli.Context, name string, dst *string) {
	if c.IsSet(name) {
		*dst = c.String(name)
	}
}

func parseBoolArg(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, errors.NewInvalidRequest(fmt.Sprintf("expected true or false, got %q", s))
}

// readInput reads a piped document from the app's reader, up to maxStdinBytes.
func readInput(c *cli.Context) ([]byte, error) {
	r := c.App.Reader
	if r == nil {
		r = os.Stdin
	}
	if f, ok := r.(*os.File); ok && !stdinHasData(f) {
		return nil, errors.NewInvalidRequest("provide --path or pipe a document via stdin")
	}
	data, err := io.ReadAll(io.LimitReader(r, maxStdinBytes+1))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if len(data) > maxStdinBytes {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("input exceeds %d bytes", maxStdinBytes))
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.NewInvalidRequest("input is empty")
	}
	return data, nil
}

// stdinHasData returns true if f has piped data (not a terminal).
func stdinHasData(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
