package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-playground/validator/v10"

	"github.com/jonathan/a11y-remediator/internal/schemas"
)

// Interaction action types.
const (
	ActionClick  = "click"
	ActionScroll = "scroll"
	ActionType   = "type"
	ActionWait   = "wait"
)

// interactionTimeout bounds a single interaction so a missing element does
// not stall the whole state run.
const interactionTimeout = 10 * time.Second

// Interaction is one scripted step that drives the page into a new state
// before auditing it.
type Interaction struct {
	Type      string  `json:"type" validate:"required,oneof=click scroll type wait"`
	Selector  string  `json:"selector,omitempty"`
	Text      string  `json:"text,omitempty"`
	WaitAfter float64 `json:"wait_after,omitempty" validate:"gte=0"`
}

// Validate validates the Interaction using the validator, plus the
// per-action selector and text requirements the tag syntax cannot express.
func (i *Interaction) Validate() error {
	validate := validator.New()
	if err := validate.Struct(i); err != nil {
		return err
	}
	switch i.Type {
	case ActionClick, ActionType:
		if i.Selector == "" {
			return fmt.Errorf("%s interaction requires a selector", i.Type)
		}
	}
	if i.Type == ActionType && i.Text == "" {
		return fmt.Errorf("type interaction requires text")
	}
	return nil
}

// StateConfig names a page state and the interactions that produce it.
type StateConfig struct {
	Name         string        `json:"name" validate:"required"`
	Description  string        `json:"description,omitempty"`
	Interactions []Interaction `json:"interactions"`
}

// Validate validates the StateConfig using the validator.
func (s *StateConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return err
	}
	for idx := range s.Interactions {
		if err := s.Interactions[idx].Validate(); err != nil {
			return fmt.Errorf("interaction %d: %w", idx, err)
		}
	}
	return nil
}

// InteractionsFile is the on-disk format for scripted interactions: a flat
// list applied before the default audit, plus named states audited
// separately.
type InteractionsFile struct {
	Interactions []Interaction `json:"interactions,omitempty"`
	States       []StateConfig `json:"states,omitempty"`
}

// StateInfo records which state an audit result belongs to.
type StateInfo struct {
	Name                string    `json:"name"`
	Description         string    `json:"description,omitempty"`
	InteractionsApplied int       `json:"interactions_applied"`
	Timestamp           time.Time `json:"timestamp"`
}

// LoadInteractions reads and validates an interactions file. The content is
// checked against the JSON schema first, then against struct constraints.
func LoadInteractions(path string) (*InteractionsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read interactions file: %w", err)
	}

	if err := schemas.ValidateJSONString(schemas.InteractionsSchema, string(data)); err != nil {
		return nil, fmt.Errorf("interactions file %s: %w", path, err)
	}

	var file InteractionsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse interactions file: %w", err)
	}

	for idx := range file.Interactions {
		if err := file.Interactions[idx].Validate(); err != nil {
			return nil, fmt.Errorf("interaction %d: %w", idx, err)
		}
	}
	for idx := range file.States {
		if err := file.States[idx].Validate(); err != nil {
			return nil, fmt.Errorf("state %q: %w", file.States[idx].Name, err)
		}
	}
	return &file, nil
}

// ExecuteInteractions applies interactions in order, counting successes and
// failures. A failed interaction is logged and skipped; the rest still run.
func ExecuteInteractions(page Page, interactions []Interaction) (successful, failed int) {
	for idx, interaction := range interactions {
		if err := applyInteraction(page, interaction); err != nil {
			log.Printf("[AUDIT] Interaction %d (%s) failed: %v", idx+1, interaction.Type, err)
			failed++
			continue
		}
		successful++
		if interaction.WaitAfter > 0 {
			_ = page.Run(chromedp.Sleep(secondsToDuration(interaction.WaitAfter)))
		}
	}
	return successful, failed
}

func applyInteraction(page Page, interaction Interaction) error {
	switch interaction.Type {
	case ActionClick:
		return page.Run(withDeadline(chromedp.Click(interaction.Selector, chromedp.ByQuery)))
	case ActionScroll:
		if interaction.Selector != "" {
			return page.Run(withDeadline(chromedp.ScrollIntoView(interaction.Selector, chromedp.ByQuery)))
		}
		return page.Run(chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
	case ActionType:
		return page.Run(withDeadline(chromedp.SendKeys(interaction.Selector, interaction.Text, chromedp.ByQuery)))
	case ActionWait:
		wait := secondsToDuration(interaction.WaitAfter)
		if wait <= 0 {
			wait = time.Second
		}
		return page.Run(chromedp.Sleep(wait))
	default:
		return fmt.Errorf("unknown interaction type %q", interaction.Type)
	}
}

// withDeadline wraps an element-waiting action so an unmatched selector
// fails instead of blocking indefinitely.
func withDeadline(action chromedp.Action) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		deadlineCtx, cancel := context.WithTimeout(ctx, interactionTimeout)
		defer cancel()
		return action.Do(deadlineCtx)
	})
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// RunStates audits the default page state, then re-navigates and audits each
// configured state. A state that fails to audit is logged and skipped so the
// other states still produce results.
func (r *Runner) RunStates(ctx context.Context, url string, states []StateConfig) ([]*Result, error) {
	results := make([]*Result, 0, len(states)+1)

	initial, err := r.Run(ctx, url)
	if err != nil {
		return nil, err
	}
	initial.State = &StateInfo{
		Name:        "default",
		Description: "page as loaded",
		Timestamp:   time.Now().UTC(),
	}
	results = append(results, initial)

	for _, state := range states {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if err := r.page.Navigate(url); err != nil {
			log.Printf("[AUDIT] State %q: navigation failed: %v", state.Name, err)
			continue
		}
		applied, failedCount := ExecuteInteractions(r.page, state.Interactions)
		if failedCount > 0 {
			log.Printf("[AUDIT] State %q: %d of %d interactions failed", state.Name, failedCount, applied+failedCount)
		}

		result, err := r.Audit(url)
		if err != nil {
			log.Printf("[AUDIT] State %q: audit failed: %v", state.Name, err)
			continue
		}
		result.State = &StateInfo{
			Name:                state.Name,
			Description:         state.Description,
			InteractionsApplied: applied,
			Timestamp:           time.Now().UTC(),
		}
		results = append(results, result)
	}
	return results, nil
}
