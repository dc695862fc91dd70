package convert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"

	"mdoc/ooxml"
	"mdoc/state"
)

// Comments applies a batch comment manifest to an existing document.
func Comments(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("comment")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input document has been specified")
	}
	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		// in place, the atomic save never leaves a truncated document behind
		dst = src
	}

	env.Overwrite = cmd.Bool("overwrite")

	manifest := cmd.String("comments")
	if len(manifest) == 0 {
		return errors.New("no comment manifest has been specified")
	}
	items, err := loadManifest(manifest)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		log.Warn("Comment manifest is empty, nothing to do", zap.String("manifest", manifest))
		return nil
	}

	author, initials := authorIdentity(cmd, env)

	pkg, err := ooxml.Open(src)
	if err != nil {
		return fmt.Errorf("unable to open document (%s): %w", src, err)
	}

	results, err := ooxml.AddComments(pkg, author, initials, items, log)
	if err != nil {
		return fmt.Errorf("unable to apply comments: %w", err)
	}

	applied := 0
	for _, res := range results {
		if res.Err != nil {
			log.Warn("Comment skipped", zap.Int("entry", res.Index), zap.Error(res.Err))
			continue
		}
		applied++
		log.Debug("Comment applied", zap.Int("entry", res.Index), zap.Int("id", res.ID))
	}
	log.Info("Comments processed", zap.Int("applied", applied), zap.Int("failed", len(results)-applied))

	if applied == 0 {
		return errors.New("no comments could be applied")
	}

	if dst != src {
		if err := prepareDestination(dst, env.Overwrite, log); err != nil {
			return err
		}
	}
	if err := pkg.Save(dst, env.Cfg.Document.FixZip); err != nil {
		return fmt.Errorf("unable to save document (%s): %w", dst, err)
	}
	log.Info("Document written", zap.String("file", dst))
	return nil
}

// loadManifest reads comment entries from a YAML or JSON file, picked by
// extension with YAML as the default.
func loadManifest(name string) ([]ooxml.Comment, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("unable to read comment manifest (%s): %w", name, err)
	}

	var items []ooxml.Comment
	if strings.EqualFold(filepath.Ext(name), ".json") {
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("unable to parse comment manifest (%s): %w", name, err)
		}
		return items, nil
	}
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unable to parse comment manifest (%s): %w", name, err)
	}
	return items, nil
}

// authorIdentity resolves the acting author, command line over configuration.
// Initials default to the first letters of the author's words.
func authorIdentity(cmd *cli.Command, env *state.LocalEnv) (author, initials string) {
	author = cmd.String("author")
	if author == "" {
		author = env.Cfg.Document.Author
	}
	initials = cmd.String("initials")
	if initials == "" {
		initials = env.Cfg.Document.Initials
	}
	if initials == "" {
		for _, word := range strings.Fields(author) {
			initials += string([]rune(word)[:1])
		}
	}
	env.Author, env.Initials = author, initials
	return author, initials
}
