package convert

import (
	"context"
	"errors"
	"fmt"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"mdoc/config"
	"mdoc/ooxml"
	"mdoc/state"
)

// Revise performs find/replace over an existing document, optionally as
// tracked changes.
func Revise(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("revise")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input document has been specified")
	}
	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		dst = src
	}

	env.Overwrite = cmd.Bool("overwrite")

	find := cmd.String("find")
	if len(find) == 0 {
		return errors.New("nothing to find, use --find")
	}

	scope, err := config.ParseScope(cmd.String("scope"))
	if err != nil {
		return fmt.Errorf("unable to parse scope: %w", err)
	}
	track := cmd.Bool("track-changes")
	if track && scope != config.ScopeBody {
		return errors.New("tracked changes are only supported in the document body")
	}

	author, _ := authorIdentity(cmd, env)

	pkg, err := ooxml.Open(src)
	if err != nil {
		return fmt.Errorf("unable to open document (%s): %w", src, err)
	}

	opts := ooxml.ReplaceOptions{
		Find:      find,
		Replace:   cmd.String("replace"),
		MatchCase: !cmd.Bool("ignore-case"),
		WholeWord: cmd.Bool("whole-word"),
		Scope:     scope,
		Track:     track,
		Author:    author,
		DryRun:    cmd.Bool("dry-run"),
	}
	n, err := ooxml.Replace(pkg, opts, log)
	if err != nil {
		return fmt.Errorf("unable to replace text: %w", err)
	}

	if opts.DryRun {
		log.Info("Dry run completed, document untouched", zap.Int("matches", n))
		return nil
	}
	if n == 0 {
		log.Info("No matches found, document untouched", zap.String("find", find))
		return nil
	}

	if dst != src {
		if err := prepareDestination(dst, env.Overwrite, log); err != nil {
			return err
		}
	}
	if err := pkg.Save(dst, env.Cfg.Document.FixZip); err != nil {
		return fmt.Errorf("unable to save document (%s): %w", dst, err)
	}
	log.Info("Document written", zap.String("file", dst), zap.Int("replacements", n), zap.Bool("tracked", track))
	return nil
}
