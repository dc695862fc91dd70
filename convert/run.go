// Package convert implements the program subcommands: Markdown conversion,
// comment application and find/replace revision of existing documents.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"mdoc/assets"
	"mdoc/content"
	"mdoc/convert/docx"
	"mdoc/markdown"
	"mdoc/ooxml"
	"mdoc/state"
	"mdoc/style"
)

// Run converts a single Markdown file to a document package.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.Overwrite = cmd.Bool("overwrite")

	log.Info("Conversion starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		// graphic processing libraries are not always well behaved on exotic
		// inputs, report instead of crashing
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("conversion panic: %v", r)
		} else {
			log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)))
		}
	}(time.Now())

	return processDocument(ctx, cmd, src, dst, log)
}

func processDocument(ctx context.Context, cmd *cli.Command, src, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("unable to read source (%s): %w", src, err)
	}
	if env.Rpt != nil {
		env.Rpt.Store("source/"+filepath.Base(src), src)
	}

	text := style.StripFrontMatter(string(data))
	inline, text, err := style.ExtractDirective(text)
	if err != nil {
		return fmt.Errorf("unable to process style directive: %w", err)
	}

	st, err := resolveStyle(cmd, inline, env.Cfg.Document.StylePath, log)
	if err != nil {
		return err
	}

	resolver, err := assets.NewResolver(&env.Cfg.Document, log.Named("assets"))
	if err != nil {
		return err
	}
	defer resolver.Close()
	resolver.SetBaseDir(filepath.Dir(src))

	tokens := markdown.Parse([]byte(text))
	renderer := content.NewRenderer(st, resolver, log, content.Options{
		Title:  cmd.String("title"),
		Date:   cmd.String("date"),
		TOC:    cmd.Bool("toc"),
		SkipH1: cmd.Bool("skip-h1"),
	})
	doc, fails := renderer.Render(ctx, tokens)
	for _, f := range fails {
		log.Warn("Asset degraded to placeholder", zap.Error(f))
	}

	pkg, err := docx.Generate(doc, st, &env.Cfg.Document, docx.Options{
		Pagination: !cmd.Bool("no-pagination"),
		Copyright:  cmd.String("copyright"),
	}, log)
	if err != nil {
		return fmt.Errorf("unable to generate output: %w", err)
	}

	outputName := buildOutputPath(doc.Title, src, dst, env)
	if err := prepareDestination(outputName, env.Overwrite, log); err != nil {
		return err
	}
	if err := pkg.Save(outputName, env.Cfg.Document.FixZip); err != nil {
		return fmt.Errorf("unable to save output (%s): %w", outputName, err)
	}
	log.Info("Document written", zap.String("file", outputName), zap.Int("asset_failures", len(fails)))

	if env.Rpt != nil {
		env.Rpt.Store("result-"+filepath.Base(outputName), outputName)
	}
	return nil
}

// resolveStyle builds the final style configuration. Priority from lowest to
// highest: template mined, style file, inline document directive, command
// line overrides; built-in defaults sit below all of them.
func resolveStyle(cmd *cli.Command, inline style.Layer, stylePath string, log *zap.Logger) (*style.Config, error) {
	var layers []style.Layer

	if template := cmd.String("template"); template != "" {
		pkg, err := ooxml.Open(template)
		if err != nil {
			return nil, fmt.Errorf("unable to open template (%s): %w", template, err)
		}
		if err := ooxml.NormalizeTemplate(pkg); err != nil {
			return nil, fmt.Errorf("unable to normalize template (%s): %w", template, err)
		}
		mined := ooxml.ExtractStyles(pkg, log.Named("styles"))
		log.Debug("Template styles mined", zap.Int("keys", len(mined)))
		layers = append(layers, mined)
	}

	styleFile := cmd.String("style")
	if styleFile == "" {
		styleFile = stylePath
	}
	if styleFile != "" {
		data, err := os.ReadFile(styleFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read style file (%s): %w", styleFile, err)
		}
		layer, err := style.ParseLayer(string(data))
		if err != nil {
			return nil, fmt.Errorf("unable to parse style file (%s): %w", styleFile, err)
		}
		layers = append(layers, layer)
	}

	if len(inline) > 0 {
		layers = append(layers, inline)
	}

	if overrides := cmd.StringSlice("style-set"); len(overrides) > 0 {
		layer := make(style.Layer, len(overrides))
		for _, kv := range overrides {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return nil, fmt.Errorf("malformed style override %q, expected key=value", kv)
			}
			layer[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
		layers = append(layers, layer)
	}

	st, err := style.Resolve(layers...)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve styles: %w", err)
	}
	return st, nil
}

// prepareDestination enforces overwrite protection and makes sure the output
// directory exists.
func prepareDestination(name string, overwrite bool, log *zap.Logger) error {
	if _, err := os.Stat(name); err == nil {
		if !overwrite {
			return fmt.Errorf("output file already exists: %s", name)
		}
		log.Warn("Overwriting existing file", zap.String("file", name))
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return nil
}
