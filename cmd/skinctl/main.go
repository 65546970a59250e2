// Command skinctl manages the skins of an install root: it lists, creates,
// copies and deletes skins, adds templates and renders a template to
// stdout for inspection.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"go-skin-renderer/internal/config"
	"go-skin-renderer/internal/generator"
	"go-skin-renderer/internal/model"
	"go-skin-renderer/internal/session"
	"go-skin-renderer/internal/skin"
	"go-skin-renderer/internal/storage"
	"go-skin-renderer/internal/templating"
	"go-skin-renderer/pkg/fsutils"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli carries what every command needs.
type cli struct {
	cfg    *config.Store
	store  *storage.JSONStore
	logger *slog.Logger
	in     *bufio.Reader
	out    io.Writer
}

// command is one skinctl subcommand. setup defines its flags; exec runs
// it after the flags are parsed and the install root is opened.
type command struct {
	usage string
	setup func(fs *pflag.FlagSet) func(c *cli) error
}

var commands = map[string]command{
	"list":         {usage: "List the skins of the install root", setup: listCmd},
	"create":       {usage: "Create a new skin (--name, optional --extends)", setup: createCmd},
	"copy":         {usage: "Copy a skin to a new name (--from, --to)", setup: copyCmd},
	"delete":       {usage: "Delete a skin (--name, optional --force)", setup: deleteCmd},
	"add-template": {usage: "Add a template to a skin (--skin, --name)", setup: addTemplateCmd},
	"render":       {usage: "Render a template to stdout (--template, optional --skin, --task)", setup: renderCmd},
	"check":        {usage: "Resolve a skin and print its search paths (--skin)", setup: checkCmd},
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) < 1 {
		printUsage(stdout)
		return errors.New("no command given")
	}
	cmd, ok := commands[args[0]]
	if !ok {
		printUsage(stdout)
		return fmt.Errorf("unknown command: %s", args[0])
	}

	fs := pflag.NewFlagSet(args[0], pflag.ContinueOnError)
	fs.SetOutput(stdout)
	configPath := fs.StringP("config", "c", "", "Path to the config file")
	fs.String("install_dir", ".", "Install root holding skins/")
	fs.String("log_level", "warn", "Log level (debug, info, warn, error)")
	exec := cmd.setup(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.GetString("log_level"))

	root, err := filepath.Abs(cfg.GetString("install_dir"))
	if err != nil {
		return fmt.Errorf("resolving install dir: %w", err)
	}
	store, err := storage.NewJSONStore(root, logger)
	if err != nil {
		return fmt.Errorf("initializing skin store: %w", err)
	}

	return exec(&cli{
		cfg:    cfg,
		store:  store,
		logger: logger,
		in:     bufio.NewReader(stdin),
		out:    stdout,
	})
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: skinctl <command> [flags]")
	fmt.Fprintln(w, "Commands:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range []string{"list", "create", "copy", "delete", "add-template", "render", "check"} {
		fmt.Fprintf(tw, "  %s\t%s\n", name, commands[name].usage)
	}
	tw.Flush()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func listCmd(fs *pflag.FlagSet) func(c *cli) error {
	return func(c *cli) error {
		names, err := c.store.ListSkins()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Fprintln(c.out, "No skins found.")
			return nil
		}
		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SKIN\tNAME\tEXTENDS")
		for _, name := range names {
			meta, err := c.store.LoadMeta(name)
			if err != nil {
				fmt.Fprintf(tw, "%s\t(no metadata)\t\n", name)
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", name, meta.Name, meta.Extends)
		}
		return tw.Flush()
	}
}

func createCmd(fs *pflag.FlagSet) func(c *cli) error {
	name := fs.String("name", "", "Display name of the new skin (required)")
	extends := fs.String("extends", "", "Parent skin")
	return func(c *cli) error {
		if *name == "" {
			return errors.New("--name is required")
		}
		gen := generator.New(c.store, generator.DefaultConfig(), c.logger)
		dir, _, err := gen.CreateSkin(*name, *extends)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Created skin %s in %s\n", dir, filepath.Join(c.store.GetBasePath(), filepath.FromSlash(c.store.SkinPath(dir))))
		return nil
	}
}

func copyCmd(fs *pflag.FlagSet) func(c *cli) error {
	from := fs.String("from", "", "Skin to copy (required)")
	to := fs.String("to", "", "Name of the copy (required)")
	return func(c *cli) error {
		if *from == "" || *to == "" {
			return errors.New("--from and --to are required")
		}
		dst := fsutils.SanitizeName(*to)
		if !c.store.SkinExists(*from) {
			return fmt.Errorf("skin %s does not exist", *from)
		}
		if c.store.SkinExists(dst) {
			return fmt.Errorf("skin %s already exists", dst)
		}
		base := c.store.GetBasePath()
		src := filepath.Join(base, filepath.FromSlash(c.store.SkinPath(*from)))
		if err := fsutils.CopyDir(src, filepath.Join(base, filepath.FromSlash(c.store.SkinPath(dst)))); err != nil {
			return fmt.Errorf("copying skin %s: %w", *from, err)
		}

		meta, err := c.store.LoadMeta(dst)
		if err != nil {
			meta = &model.SkinMeta{}
		}
		meta.Name = *to
		if err := c.store.SaveMeta(dst, meta); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Copied skin %s to %s\n", *from, dst)
		return nil
	}
}

func deleteCmd(fs *pflag.FlagSet) func(c *cli) error {
	name := fs.String("name", "", "Skin to delete (required)")
	force := fs.BoolP("force", "f", false, "Delete without asking")
	return func(c *cli) error {
		if *name == "" {
			return errors.New("--name is required")
		}
		if !c.store.SkinExists(*name) {
			return fmt.Errorf("skin %s does not exist", *name)
		}
		if !*force && !askForConfirmation(c, fmt.Sprintf("Delete skin %s and all its files?", *name)) {
			fmt.Fprintln(c.out, "Aborted.")
			return nil
		}
		if err := c.store.DeleteSkin(*name); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Deleted skin %s\n", *name)
		return nil
	}
}

func addTemplateCmd(fs *pflag.FlagSet) func(c *cli) error {
	skinName := fs.String("skin", "", "Skin to add the template to (required)")
	name := fs.String("name", "", "Template name, e.g. settings or settings.html (required)")
	return func(c *cli) error {
		if *skinName == "" || *name == "" {
			return errors.New("--skin and --name are required")
		}
		gen := generator.New(c.store, generator.DefaultConfig(), c.logger)
		path, err := gen.AddTemplate(*skinName, *name)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Created template %s\n", path)
		return nil
	}
}

func renderCmd(fs *pflag.FlagSet) func(c *cli) error {
	name := fs.StringP("template", "t", "", "Template to render (required)")
	fs.String("skin", skin.DefaultSkin, "Skin to render with")
	task := fs.String("task", "mail", "Task of the simulated request")
	action := fs.String("action", "", "Action of the simulated request")
	lang := fs.String("lang", "", "Session language of the simulated request")
	return func(c *cli) error {
		if *name == "" {
			return errors.New("--template is required")
		}
		q := url.Values{"_task": {*task}}
		if *action != "" {
			q.Set("_action", *action)
		}
		r, err := http.NewRequest(http.MethodGet, "/?"+q.Encode(), nil)
		if err != nil {
			return err
		}

		engine := templating.NewEngine(c.cfg, c.store, nil, c.logger)
		engine.Objects().Register("searchform", (*templating.Output).SearchForm)
		values := map[string]any{}
		if *lang != "" {
			values["language"] = *lang
		}
		out := engine.NewOutput(templating.NewRequest(r, session.NewMemoryStore(values), ""))
		if err := out.Send(c.out, *name); err != nil {
			return fmt.Errorf("rendering %s: %w", *name, err)
		}
		fmt.Fprintln(c.out)
		return nil
	}
}

func checkCmd(fs *pflag.FlagSet) func(c *cli) error {
	name := fs.String("skin", skin.DefaultSkin, "Skin to check")
	return func(c *cli) error {
		resolver := skin.NewResolver(c.store, c.logger)
		if !resolver.Check(*name) {
			return fmt.Errorf("skin %s does not exist", *name)
		}
		sk, err := resolver.Resolve(*name)

		fmt.Fprintf(c.out, "Skin: %s\n", sk.Name)
		fmt.Fprintln(c.out, "Search paths:")
		for _, p := range sk.PathStack {
			fmt.Fprintf(c.out, "  %s\n", p)
		}
		if len(sk.ConfigOrder) > 0 {
			fmt.Fprintln(c.out, "Config:")
			for _, key := range sk.ConfigOrder {
				fmt.Fprintf(c.out, "  %s = %v\n", key, sk.Config[key])
			}
		}
		if len(sk.LocalizationDirs) > 0 {
			fmt.Fprintf(c.out, "Localization: %s\n", strings.Join(sk.LocalizationDirs, ", "))
		}
		if err != nil {
			return fmt.Errorf("skin %s: %w", *name, err)
		}
		fmt.Fprintln(c.out, "OK")
		return nil
	}
}

// askForConfirmation prompts until the user answers yes or no; an empty
// answer or end of input counts as no.
func askForConfirmation(c *cli, prompt string) bool {
	for {
		fmt.Fprintf(c.out, "%s [y/N]: ", prompt)
		response, err := c.in.ReadString('\n')
		response = strings.ToLower(strings.TrimSpace(response))
		switch response {
		case "y", "yes":
			return true
		case "n", "no", "":
			return false
		}
		if err != nil {
			return false
		}
	}
}
