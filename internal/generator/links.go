package generator

import (
	"strings"

	"github.com/jonathan/jobs-newsroom/internal/prompts"
	"github.com/jonathan/jobs-newsroom/internal/types"
)

// PillarLinks are the internal pages an article in a category should link to
type PillarLinks struct {
	Services string
	Jobs     string
	Salary   string
}

// InternalLinks maps each article category to its pillar pages
var InternalLinks = map[types.Category]PillarLinks{
	types.CategoryFinance:     {Services: "/part-time-cfo-services", Jobs: "/part-time-cfo-jobs-uk", Salary: "/part-time-cfo-salary"},
	types.CategoryMarketing:   {Services: "/part-time-cmo-services", Jobs: "/part-time-cmo-jobs-uk", Salary: "/part-time-cmo-salary"},
	types.CategoryEngineering: {Services: "/part-time-cto-services", Jobs: "/part-time-cto-jobs-uk"},
	types.CategoryOperations:  {Services: "/part-time-coo-services", Jobs: "/part-time-coo-jobs-uk"},
	types.CategoryHR:          {Services: "/part-time-chro-services", Jobs: "/part-time-jobs?role=HR"},
	types.CategorySales:       {Services: "/part-time-sales-director-services", Jobs: "/part-time-jobs?role=Sales"},
	types.CategoryGeneral:     {Services: "/part-time-executive-services", Jobs: "/part-time-jobs"},
}

// linkList renders the markdown link targets for a category
func linkList(category types.Category) string {
	links, ok := InternalLinks[category]
	if !ok {
		links = InternalLinks[types.CategoryGeneral]
	}
	name := strings.ToLower(string(category))

	items := []string{
		"[part-time " + name + " services](" + links.Services + ")",
		"[" + name + " jobs](" + links.Jobs + ")",
	}
	if links.Salary != "" {
		items = append(items, "[salary guide]("+links.Salary+")")
	}
	return strings.Join(items, ", ")
}

// linkingInstructions renders the internal-linking block appended to the system prompt
func linkingInstructions(category types.Category) (string, error) {
	return prompts.Render(prompts.Newsroom, prompts.KeyInternalLinking, map[string]string{
		"LinkList": linkList(category),
	})
}
