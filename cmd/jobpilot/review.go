package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/jonathan/jobpilot/internal/rewriting"
	"github.com/jonathan/jobpilot/internal/types"
)

const (
	choiceInclude = "Include"
	choiceSkip    = "Skip"
	choiceAccept  = "Accept suggestion"
	choiceReject  = "Keep original"
	choiceEdit    = "Edit"
)

// prompter asks the user questions. promptui backs it on a terminal.
type prompter interface {
	Select(label string, items []string) (string, error)
	Prompt(label, initial string) (string, error)
}

type terminalPrompter struct{}

func (terminalPrompter) Select(label string, items []string) (string, error) {
	sel := promptui.Select{Label: label, Items: items}
	_, choice, err := sel.Run()
	return choice, err
}

func (terminalPrompter) Prompt(label, initial string) (string, error) {
	p := promptui.Prompt{
		Label:     label,
		Default:   initial,
		AllowEdit: true,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("bullet text cannot be empty")
			}
			return nil
		},
	}
	return p.Run()
}

// reviewer walks a suggestion bundle and records the user's decisions.
type reviewer struct {
	prompt prompter
	out    io.Writer
}

// Review returns the decisions for every selected experience and project. Bullets the model
// kept unchanged are not asked about and default to accept.
func (r *reviewer) Review(bundle *types.SuggestionBundle) (types.EditSet, error) {
	edits := types.EditSet{
		SelectedExperiences:    map[string]bool{},
		BulletDecisions:        map[string]types.BulletDecisions{},
		SelectedProjects:       map[string]bool{},
		ProjectBulletDecisions: map[string]types.BulletDecisions{},
	}

	for _, e := range bundle.Experiences {
		fmt.Fprintf(r.out, "\n%s @ %s  (relevance %d)\n", e.Title, e.Company, e.RelevanceScore)
		if e.RelevanceReason != "" {
			fmt.Fprintf(r.out, "  %s\n", e.RelevanceReason)
		}
		include, err := r.include(e.Selected)
		if err != nil {
			return edits, err
		}
		edits.SelectedExperiences[e.ID] = include
		if !include {
			continue
		}
		decisions, err := r.bullets(e.Bullets)
		if err != nil {
			return edits, err
		}
		if len(decisions) > 0 {
			edits.BulletDecisions[e.ID] = decisions
		}
	}

	for _, p := range bundle.Projects {
		fmt.Fprintf(r.out, "\n%s  (relevance %d)\n", p.Title, p.RelevanceScore)
		if p.RelevanceReason != "" {
			fmt.Fprintf(r.out, "  %s\n", p.RelevanceReason)
		}
		include, err := r.include(p.Selected)
		if err != nil {
			return edits, err
		}
		edits.SelectedProjects[p.ID] = include
		if !include {
			continue
		}
		decisions, err := r.bullets(p.Bullets)
		if err != nil {
			return edits, err
		}
		if len(decisions) > 0 {
			edits.ProjectBulletDecisions[p.ID] = decisions
		}
	}

	return edits, nil
}

// include offers the model's choice first.
func (r *reviewer) include(suggested bool) (bool, error) {
	items := []string{choiceSkip, choiceInclude}
	if suggested {
		items = []string{choiceInclude, choiceSkip}
	}
	choice, err := r.prompt.Select("Include in resume?", items)
	if err != nil {
		return false, err
	}
	return choice == choiceInclude, nil
}

func (r *reviewer) bullets(bullets []types.BulletSuggestion) (types.BulletDecisions, error) {
	decisions := types.BulletDecisions{}
	for i, b := range bullets {
		if !needsReview(b) {
			continue
		}
		r.showBullet(b)

		choice, err := r.prompt.Select("Bullet "+strconv.Itoa(i+1), []string{choiceAccept, choiceReject, choiceEdit})
		if err != nil {
			return nil, err
		}
		key := strconv.Itoa(i)
		switch choice {
		case choiceAccept:
			decisions[key] = types.EditDecision{Action: types.EditAccept}
		case choiceReject:
			decisions[key] = types.EditDecision{Action: types.EditReject}
		case choiceEdit:
			initial := b.Suggested
			if initial == "" {
				initial = b.Original
			}
			text, err := r.prompt.Prompt("Bullet", initial)
			if err != nil {
				return nil, err
			}
			decisions[key] = types.EditDecision{Action: types.EditEdit, Text: strings.TrimSpace(text)}
		}
	}
	return decisions, nil
}

func needsReview(b types.BulletSuggestion) bool {
	if b.Action == types.BulletRemove {
		return true
	}
	return b.Suggested != "" && b.Suggested != b.Original
}

//nolint:errcheck // terminal output
func (r *reviewer) showBullet(b types.BulletSuggestion) {
	fmt.Fprintf(r.out, "  - %s\n", b.Original)
	if b.Action == types.BulletRemove {
		fmt.Fprintf(r.out, "  x remove")
	} else {
		fmt.Fprintf(r.out, "  + %s", b.Suggested)
		if report := rewriting.CheckBullet(b.Suggested); !report.OK() {
			fmt.Fprintf(r.out, "  [%s]", strings.Join(report.Issues(), ", "))
		}
	}
	fmt.Fprintln(r.out)
	if b.Reason != "" {
		fmt.Fprintf(r.out, "    %s\n", b.Reason)
	}
	if len(b.KeywordsAdded) > 0 {
		fmt.Fprintf(r.out, "    keywords: %s\n", strings.Join(b.KeywordsAdded, ", "))
	}
}
