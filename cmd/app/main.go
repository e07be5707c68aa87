package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/theaibuilders/ai-builders-tutorial/internal"
	"github.com/theaibuilders/ai-builders-tutorial/internal/metadata"
	pkgconfig "github.com/theaibuilders/ai-builders-tutorial/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// loadToolConfig is loadConfig for one-shot commands, which run on defaults
// when the config file is absent.
func loadToolConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// toolOptions configures commands whose stdout carries their result.
func toolOptions(cfg *internal.Config) []internal.Option {
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
		internal.WithLogOutput(os.Stderr),
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func renderFile(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return fmt.Errorf("render: expected exactly one file")
	}
	cfg, err := loadToolConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RenderFile(ctx, cmd.Args().First(), os.Stdout, toolOptions(cfg)...)
}

func convert(_ context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 || cmd.NArg() > 2 {
		return fmt.Errorf("convert: expected <in> [out]")
	}

	var in io.Reader = os.Stdin
	if name := cmd.Args().Get(0); name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return fmt.Errorf("convert: %w", err)
		}
		defer f.Close()
		in = f
	}

	if cmd.NArg() == 1 || cmd.Args().Get(1) == "-" {
		return internal.ConvertNotebook(in, os.Stdout)
	}
	out, err := os.Create(cmd.Args().Get(1))
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	if err := internal.ConvertNotebook(in, out); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadToolConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, toolOptions(cfg)...)
}

func openWorkspace(cmd *cli.Command) (*internal.Workspace, error) {
	cfg, err := loadToolConfig(cmd)
	if err != nil {
		return nil, err
	}
	return internal.OpenWorkspace(toolOptions(cfg)...)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func metadataList(_ context.Context, cmd *cli.Command) error {
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	store, err := ws.Metadata()
	if err != nil {
		return err
	}
	entries, err := store.List()
	if err != nil {
		return err
	}
	return printJSON(entries)
}

func metadataGet(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return fmt.Errorf("metadata get: expected a tutorial path")
	}
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	fm, err := ws.Site().Lookup(cmd.Args().First())
	if err != nil {
		return err
	}
	resolved, err := ws.Site().Metadata(ctx, fm.Path)
	if err != nil {
		return err
	}
	return printJSON(resolved)
}

func metadataSet(_ context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return fmt.Errorf("metadata set: expected a tutorial path")
	}
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	o := metadata.Override{
		Title:       cmd.String("title"),
		Description: cmd.String("description"),
		Author:      cmd.String("author"),
		AuthorID:    cmd.String("author-id"),
		LastUpdated: cmd.String("last-updated"),
		Tags:        cmd.StringSlice("tag"),
		Difficulty:  cmd.String("difficulty"),
	}
	merged, err := ws.SetMetadata(cmd.Args().First(), o)
	if err != nil {
		return err
	}
	return printJSON(merged)
}

func metadataDelete(_ context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return fmt.Errorf("metadata delete: expected a tutorial path")
	}
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	return ws.DeleteMetadata(cmd.Args().First())
}

func metadataSync(_ context.Context, cmd *cli.Command) error {
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	res, err := ws.SyncMetadata()
	if err != nil {
		return err
	}
	return printJSON(res)
}

func main() {
	cmd := &cli.Command{
		Name:    "ai-builders-tutorial",
		Usage:   "Render Jupyter notebook and Markdown tutorials into a browsable, searchable site",
		Version: version,
		Action:  run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the tutorial API (default)",
				Action: run,
			},
			{
				Name:      "render",
				Usage:     "Render a notebook or Markdown file to HTML on stdout",
				ArgsUsage: "<file>",
				Action:    renderFile,
			},
			{
				Name:      "convert",
				Usage:     "Convert an XML-tagged or JSON notebook to nbformat JSON",
				ArgsUsage: "<in|-> [out]",
				Action:    convert,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:  "metadata",
				Usage: "Inspect and edit the manual metadata overrides",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List override entries",
						Action: metadataList,
					},
					{
						Name:      "get",
						Usage:     "Show the resolved metadata of a tutorial",
						ArgsUsage: "<path>",
						Action:    metadataGet,
					},
					{
						Name:      "set",
						Usage:     "Merge fields into a tutorial's override",
						ArgsUsage: "<path>",
						Action:    metadataSet,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "title"},
							&cli.StringFlag{Name: "description"},
							&cli.StringFlag{Name: "author"},
							&cli.StringFlag{Name: "author-id"},
							&cli.StringFlag{Name: "last-updated", Usage: "YYYY-MM-DD"},
							&cli.StringFlag{Name: "difficulty", Usage: "beginner, intermediate or advanced"},
							&cli.StringSliceFlag{Name: "tag", Usage: "Tag (repeatable)"},
						},
					},
					{
						Name:      "delete",
						Usage:     "Remove a tutorial's override",
						ArgsUsage: "<path>",
						Action:    metadataDelete,
					},
					{
						Name:   "sync",
						Usage:  "Add entries for new tutorials and drop removed ones",
						Action: metadataSync,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
