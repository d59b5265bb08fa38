// Package synthesis turns an artifact and its attributed violations into a
// remediation request, sends it to the language model, and decomposes the
// response into candidate artifact bodies. It proposes changes only; the
// validation and sandbox layers decide what actually lands.
package synthesis

import (
	"context"
	"log"
	"path"
	"strings"

	"github.com/jonathan/a11y-remediator/internal/llm"
	"github.com/jonathan/a11y-remediator/internal/prompts"
	"github.com/jonathan/a11y-remediator/internal/types"
	"github.com/jonathan/a11y-remediator/internal/validation"
)

// ComponentRequest carries everything one fix round trip needs: the artifact
// body, optional companion sources, the violations mapped to it, static
// findings, and any screenshots captured for visual preservation.
type ComponentRequest struct {
	Name        string
	Artifact    *types.SourceArtifact
	Companion   *types.SourceArtifact
	Stylesheet  *types.SourceArtifact
	Violations  []types.AttributedViolation
	Findings    []validation.Finding
	Screenshots []llm.Image
}

// name returns the display name for the prompt header, derived from the
// artifact path when the caller did not set one.
func (r *ComponentRequest) name() string {
	if r.Name != "" {
		return r.Name
	}
	base := path.Base(r.Artifact.Path)
	base = strings.TrimSuffix(base, path.Ext(base))
	return strings.TrimSuffix(base, ".component")
}

// FixComponent requests a corrected version of one Angular component. The
// response must carry a template section; companion and stylesheet sections
// are optional. Screenshots, when present, ride along as inline image parts.
func FixComponent(ctx context.Context, client llm.Client, req *ComponentRequest) (*Candidate, error) {
	if req == nil || req.Artifact == nil {
		return nil, &Error{Message: "no artifact to fix"}
	}

	prompt := prefixSystem("system-auditor", buildComponentPrompt(req))
	log.Printf("[SYNTH] Requesting fix for %s (%d violations, %d findings, %d screenshots)",
		req.Artifact.Path, len(req.Violations), len(req.Findings), len(req.Screenshots))

	response, err := client.GenerateWithImages(ctx, prompt, req.Screenshots, llm.TierAdvanced)
	if err != nil {
		return nil, &Error{Artifact: req.Artifact.Path, Message: "fix generation failed", Cause: err}
	}

	candidate, err := Decompose(response)
	if err != nil {
		return nil, &Error{Artifact: req.Artifact.Path, Message: "unusable response", Cause: err}
	}
	return candidate, nil
}

// FixReactComponent requests a corrected version of one React component.
// The response is the whole component body, fenced or bare. Screenshots are
// attached only when contrast violations are present; for everything else
// the attribute-level fixes need no visual reference.
func FixReactComponent(ctx context.Context, client llm.Client, req *ComponentRequest) (string, error) {
	if req == nil || req.Artifact == nil {
		return "", &Error{Message: "no artifact to fix"}
	}

	images := req.Screenshots
	if !hasContrast(req.Violations) {
		images = nil
	}

	prompt := prefixSystem("system-react", buildReactPrompt(req))
	if len(images) > 0 {
		prompt += "\n\n" + screenshotInstructions()
	}
	log.Printf("[SYNTH] Requesting React fix for %s (%d violations)", req.Artifact.Path, len(req.Violations))

	response, err := client.GenerateWithImages(ctx, prompt, images, llm.TierAdvanced)
	if err != nil {
		return "", &Error{Artifact: req.Artifact.Path, Message: "fix generation failed", Cause: err}
	}

	body := llm.CleanCodeFences(response)
	if strings.TrimSpace(body) == "" {
		return "", &Error{Artifact: req.Artifact.Path, Message: "empty response"}
	}
	// Fence stripping trims surrounding whitespace; keep the file's final
	// newline so committed sources do not churn on that byte.
	if strings.HasSuffix(req.Artifact.Raw, "\n") && !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	return body, nil
}

// prefixSystem joins the role-setting instruction and the task prompt. The
// Gemini client takes a single prompt string, so the system text leads.
func prefixSystem(key, prompt string) string {
	return prompts.MustGet("synthesis.json", key) + "\n\n" + prompt
}

func screenshotInstructions() string {
	return prompts.MustGet("synthesis.json", "screenshot-instructions")
}
