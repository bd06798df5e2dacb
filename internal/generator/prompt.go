package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/jobs-newsroom/internal/llm"
	"github.com/jonathan/jobs-newsroom/internal/prompts"
	"github.com/jonathan/jobs-newsroom/internal/types"
)

// baseInstructions is shared by every content type prompt
var baseInstructions = prompts.MustGet(prompts.Newsroom, prompts.KeyBaseInstructions)

// CheckTemplates reports templates missing from the newsroom prompt file, so a
// process fails at startup rather than on its first scheduled run.
func CheckTemplates() error {
	keys, err := prompts.List(prompts.Newsroom)
	if err != nil {
		return err
	}
	if missing := missingTemplates(keys); len(missing) > 0 {
		return fmt.Errorf("prompt file %s is missing templates: %s", prompts.Newsroom, strings.Join(missing, ", "))
	}
	return nil
}

func missingTemplates(keys []string) []string {
	have := make(map[string]bool, len(keys))
	for _, k := range keys {
		have[k] = true
	}

	required := []string{prompts.KeyInternalLinking, prompts.KeyUser, prompts.KeyUserWithCategory}
	for _, ct := range types.ContentTypeRotation {
		required = append(required, string(ct))
	}

	var missing []string
	for _, k := range required {
		if !have[k] {
			missing = append(missing, k)
		}
	}
	return missing
}

// BuildPrompt assembles the system and user messages for a request
func BuildPrompt(req Request) (llm.Prompt, error) {
	if !req.ContentType.Valid() {
		return llm.Prompt{}, fmt.Errorf("unknown content type %q", req.ContentType)
	}
	if len(req.Jobs) == 0 {
		return llm.Prompt{}, fmt.Errorf("at least one job is required")
	}

	typePrompt, err := prompts.Render(prompts.Newsroom, string(req.ContentType), map[string]string{
		"BaseInstructions": baseInstructions,
	})
	if err != nil {
		return llm.Prompt{}, err
	}
	linking, err := linkingInstructions(req.linkCategory())
	if err != nil {
		return llm.Prompt{}, err
	}

	jobsJSON, err := json.MarshalIndent(SummarizeAll(req.Jobs), "", "  ")
	if err != nil {
		return llm.Prompt{}, fmt.Errorf("failed to marshal job summaries: %w", err)
	}

	userKey := prompts.KeyUser
	data := map[string]string{
		"ContentLabel": req.ContentType.Label(),
		"Jobs":         string(jobsJSON),
	}
	if req.Category != nil {
		userKey = prompts.KeyUserWithCategory
		data["Category"] = string(*req.Category)
	}
	user, err := prompts.Render(prompts.Newsroom, userKey, data)
	if err != nil {
		return llm.Prompt{}, err
	}

	return llm.Prompt{
		System: typePrompt + "\n\n" + linking,
		User:   user,
	}, nil
}

// linkCategory is the target category, else the first job's mapped category
func (r Request) linkCategory() types.Category {
	if r.Category != nil {
		return *r.Category
	}
	if len(r.Jobs) > 0 {
		return types.CategoryFromRole(r.Jobs[0].RoleCategory)
	}
	return types.CategoryGeneral
}
