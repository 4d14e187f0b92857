package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xavierca1/ligue-pipeline/internal/board"
	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

var moveCmd = &cobra.Command{
	Use:   "move <pipeline> <lead> <from-stage> <to-stage>",
	Short: "Move a lead to another stage of the same pipeline",
	Long: `Move a lead between stages. The lead is given by id or email and must be
in the from-stage. This runs the same drag-and-drop resolution as the board:
moving within one stage does nothing, and you are asked to confirm.`,
	Args: cobra.ExactArgs(4),
	RunE: runMove,
}

func runMove(cmd *cobra.Command, args []string) error {
	pipelineName, ref, from, to := args[0], args[1], args[2], args[3]
	if err := cli.load(cmd.Context()); err != nil {
		return err
	}

	lead, err := leadInStage(pipelineName, from, ref)
	if err != nil {
		return err
	}

	drag := cli.board.Drag()
	data, err := drag.Start(pipelineName, from, lead)
	if err != nil {
		return err
	}
	drag.Enter(to)

	outcome, err := drag.Drop(cmd.Context(), pipelineName, to, data)
	switch outcome {
	case board.DropMoved:
		cli.ok("Moved %s from %q to %q.", lead.Email, from, to)
	case board.DropNoop:
		fmt.Fprintln(cli.out, faintStyle.Render("Lead is already in that stage; nothing to do."))
	case board.DropDeclined:
		fmt.Fprintln(cli.out, faintStyle.Render("Move cancelled."))
	}
	return err
}

func leadInStage(pipelineName, stageName, ref string) (entity.LeadSnapshot, error) {
	p, ok := cli.board.Pipeline(pipelineName)
	if !ok {
		return entity.LeadSnapshot{}, fmt.Errorf("%w: %q", board.ErrUnknownPipeline, pipelineName)
	}
	st, ok := p.Stage(stageName)
	if !ok {
		return entity.LeadSnapshot{}, fmt.Errorf("%w: %q", board.ErrUnknownStage, stageName)
	}
	for _, l := range st.Leads {
		if l.ID == ref || strings.EqualFold(l.Email, ref) {
			return l, nil
		}
	}
	return entity.LeadSnapshot{}, fmt.Errorf("%w: %s", board.ErrLeadNotInStage, ref)
}
