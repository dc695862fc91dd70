package convert

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"mdoc/config"
	"mdoc/ooxml"
	"mdoc/state"
)

// setupTestEnv creates a test environment with proper context and logger
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = logger
	env.Cfg = cfg
	return ctx, env
}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:   "convert",
		Action: Run,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "template"},
			&cli.StringFlag{Name: "style"},
			&cli.StringSliceFlag{Name: "style-set"},
			&cli.StringFlag{Name: "title"},
			&cli.StringFlag{Name: "date"},
			&cli.BoolFlag{Name: "skip-h1"},
			&cli.BoolFlag{Name: "toc"},
			&cli.BoolFlag{Name: "no-pagination"},
			&cli.StringFlag{Name: "copyright"},
			&cli.BoolFlag{Name: "overwrite"},
		},
	}
}

func commentCommand() *cli.Command {
	return &cli.Command{
		Name:   "comment",
		Action: Comments,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "comments"},
			&cli.StringFlag{Name: "author"},
			&cli.StringFlag{Name: "initials"},
			&cli.BoolFlag{Name: "overwrite"},
		},
	}
}

func reviseCommand() *cli.Command {
	return &cli.Command{
		Name:   "revise",
		Action: Revise,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "find"},
			&cli.StringFlag{Name: "replace"},
			&cli.BoolFlag{Name: "track-changes"},
			&cli.BoolFlag{Name: "dry-run"},
			&cli.BoolFlag{Name: "ignore-case"},
			&cli.BoolFlag{Name: "whole-word"},
			&cli.StringFlag{Name: "scope", Value: config.ScopeBody.String()},
			&cli.StringFlag{Name: "author"},
			&cli.StringFlag{Name: "initials"},
			&cli.BoolFlag{Name: "overwrite"},
		},
	}
}

func writeSample(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleDoc = `# Service Agreement

Prepared for review

---

## Terms

The term is 30 days.

- first point
- second point
`

func TestConvertEndToEnd(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	src := writeSample(t, "agreement.md", sampleDoc)
	dst := t.TempDir()

	if err := convertCommand().Run(ctx, []string{"convert", src, dst}); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dst, "agreement.docx")
	pkg, err := ooxml.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	data, err := pkg.Raw(ooxml.PartDocument)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Service Agreement", "Prepared for review", "The term is 30 days."} {
		if !strings.Contains(string(data), want) {
			t.Errorf("document does not contain %q", want)
		}
	}
	if !pkg.Has(ooxml.PartStyles) || !pkg.Has(ooxml.PartSettings) {
		t.Error("styles or settings part missing")
	}
}

func TestConvertOverwriteProtection(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	src := writeSample(t, "doc.md", "plain text\n")
	dst := t.TempDir()

	if err := convertCommand().Run(ctx, []string{"convert", src, dst}); err != nil {
		t.Fatal(err)
	}
	err := convertCommand().Run(ctx, []string{"convert", src, dst})
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("second run: %v", err)
	}
	if err := convertCommand().Run(ctx, []string{"convert", "--overwrite", src, dst}); err != nil {
		t.Fatalf("overwrite run: %v", err)
	}
}

func TestConvertStyleOverrides(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	src := writeSample(t, "doc.md", "# T\n\nbody\n")
	dst := t.TempDir()

	if err := convertCommand().Run(ctx, []string{"convert", "--style-set", "font_body=Georgia", src, dst}); err != nil {
		t.Fatal(err)
	}
	pkg, err := ooxml.Open(filepath.Join(dst, "doc.docx"))
	if err != nil {
		t.Fatal(err)
	}
	styles, err := pkg.Raw(ooxml.PartStyles)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(styles), "Georgia") {
		t.Error("style override not applied")
	}

	err = convertCommand().Run(ctx, []string{"convert", "--overwrite", "--style-set", "no_such_key=1", src, dst})
	if err == nil || !strings.Contains(err.Error(), "no_such_key") {
		t.Fatalf("unknown key: %v", err)
	}
}

func TestConvertMissingSource(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	err := convertCommand().Run(ctx, []string{"convert", "/nonexistent/file.md", t.TempDir()})
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}

func convertSample(t *testing.T, ctx context.Context) string {
	t.Helper()
	src := writeSample(t, "agreement.md", sampleDoc)
	dst := t.TempDir()
	if err := convertCommand().Run(ctx, []string{"convert", src, dst}); err != nil {
		t.Fatal(err)
	}
	return filepath.Join(dst, "agreement.docx")
}

func TestCommentRoundTrip(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	doc := convertSample(t, ctx)

	manifest := writeSample(t, "comments.yaml", `
- anchor_text: "30 days"
  text: "Is this still correct?"
- anchor_text: "no such anchor"
  text: "never lands"
- text: "I think so."
  reply_to: 0
`)

	err := commentCommand().Run(ctx, []string{"comment", "--comments", manifest, "--author", "Reviewer", doc})
	if err != nil {
		t.Fatal(err)
	}

	pkg, err := ooxml.Open(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !pkg.Has(ooxml.PartComments) || !pkg.Has(ooxml.PartCommentsExtended) {
		t.Fatal("comment parts missing")
	}
	cdoc, err := pkg.XML(ooxml.PartComments)
	if err != nil {
		t.Fatal(err)
	}
	comments := ooxml.FindAll(cdoc.Root(), ooxml.NSWordML, "comment")
	if len(comments) != 2 {
		t.Errorf("comments = %d, want anchor failure skipped", len(comments))
	}
}

func TestReviseTrackedRoundTrip(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	doc := convertSample(t, ctx)

	err := reviseCommand().Run(ctx, []string{"revise", "--find", "30 days", "--replace", "60 days", "--track-changes", doc})
	if err != nil {
		t.Fatal(err)
	}

	pkg, err := ooxml.Open(doc)
	if err != nil {
		t.Fatal(err)
	}
	data, err := pkg.Raw(ooxml.PartDocument)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "w:ins") || !strings.Contains(string(data), "w:del") {
		t.Error("no tracked revision markup in document")
	}
}

func TestReviseDryRunLeavesFileAlone(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	doc := convertSample(t, ctx)
	before, err := os.ReadFile(doc)
	if err != nil {
		t.Fatal(err)
	}

	err = reviseCommand().Run(ctx, []string{"revise", "--find", "30", "--replace", "60", "--dry-run", doc})
	if err != nil {
		t.Fatal(err)
	}
	after, err := os.ReadFile(doc)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("dry run rewrote the document")
	}
}
