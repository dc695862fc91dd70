package assets

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"mdoc/content"
)

// Diagram renders mermaid source to an image. The remote rendering service is
// tried first, then the local CLI tool, each with its own bounded timeout.
// There are no retries beyond this single fallback chain.
func (r *Resolver) Diagram(ctx context.Context, source string) (*content.ResolvedAsset, error) {
	var errs error

	data, err := r.diagramRemote(ctx, source)
	if err == nil {
		return r.prepare(data, "diagram")
	}
	errs = multierr.Append(errs, err)
	r.log.Debug("remote diagram rendering failed, trying local tool", zap.Error(err))

	data, err = r.diagramTool(ctx, source)
	if err == nil {
		return r.prepare(data, "diagram")
	}
	return nil, multierr.Append(errs, err)
}

// diagramRemote builds the service URL carrying the source as unpadded
// base64url.
// Oversized payloads are skipped outright, the URL would be rejected anyway.
func (r *Resolver) diagramRemote(ctx context.Context, source string) ([]byte, error) {
	cfg := r.cfg.Diagrams
	if cfg.ServiceURL == "" {
		return nil, fmt.Errorf("diagram service not configured")
	}
	encoded := base64.RawURLEncoding.EncodeToString([]byte(source))
	url := strings.TrimSuffix(cfg.ServiceURL, "/") + "/img/" + encoded
	if cfg.MaxURLLength > 0 && len(url) > cfg.MaxURLLength {
		return nil, fmt.Errorf("diagram too large for remote service (%d > %d)", len(url), cfg.MaxURLLength)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.FetchTimeoutSec)*time.Second)
	defer cancel()
	return r.fetch(ctx, url)
}

// diagramTool shells out to the local mermaid CLI through the scoped work
// directory.
func (r *Resolver) diagramTool(ctx context.Context, source string) ([]byte, error) {
	cfg := r.cfg.Diagrams
	if cfg.Tool == "" {
		return nil, fmt.Errorf("diagram tool not configured")
	}
	if _, err := exec.LookPath(cfg.Tool); err != nil {
		return nil, fmt.Errorf("diagram tool unavailable: %w", err)
	}

	in := filepath.Join(r.workDir, fmt.Sprintf("diagram-%d.mmd", time.Now().UnixNano()))
	out := strings.TrimSuffix(in, ".mmd") + ".png"
	if err := os.WriteFile(in, []byte(source), 0644); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.ToolTimeoutSec)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, cfg.Tool, "-i", in, "-o", out)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("running %s: %w (%s)", cfg.Tool, err, strings.TrimSpace(string(output)))
	}
	return os.ReadFile(out)
}
