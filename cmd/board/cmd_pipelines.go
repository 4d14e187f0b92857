package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xavierca1/ligue-pipeline/internal/board"
	"github.com/xavierca1/ligue-pipeline/internal/board/render"
	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

var showCmd = &cobra.Command{
	Use:   "show [pipeline]",
	Short: "Draw the board, or a single pipeline",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.load(cmd.Context()); err != nil {
			return err
		}
		session := cli.board.Drag().Session()
		if len(args) == 0 {
			fmt.Fprintln(cli.out, render.Board(cli.board, session, render.DefaultTheme))
			return nil
		}
		p, ok := cli.board.Pipeline(args[0])
		if !ok {
			return fmt.Errorf("%w: %q", board.ErrUnknownPipeline, args[0])
		}
		fmt.Fprintln(cli.out, render.Pipeline(cli.board, p, session, render.DefaultTheme))
		return nil
	},
}

var pipelinesCmd = &cobra.Command{
	Use:     "pipelines",
	Aliases: []string{"pipeline", "p"},
	Short:   "List, create, rename and delete pipelines",
}

var pipelinesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pipelines with their stage and lead counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cli.load(cmd.Context()); err != nil {
			return err
		}
		pipelines := cli.board.Pipelines()
		if len(pipelines) == 0 {
			fmt.Fprintln(cli.out, faintStyle.Render("No pipelines yet."))
			return nil
		}
		for _, p := range pipelines {
			names := make([]string, len(p.Stages))
			for i, s := range p.Stages {
				names[i] = fmt.Sprintf("%s(%d)", s.Name, len(s.Leads))
			}
			fmt.Fprintf(cli.out, "%-24s %s\n", p.Name, faintStyle.Render(strings.Join(names, " → ")))
		}
		return nil
	},
}

var (
	createFile   string
	createStages []string
	createLeads  []string
)

// draftFile is the YAML form of a new pipeline. Leads are referenced by id
// or by email.
type draftFile struct {
	Name   string           `yaml:"name"`
	Stages []draftFileStage `yaml:"stages"`
}

type draftFileStage struct {
	Name  string   `yaml:"name"`
	Leads []string `yaml:"leads"`
}

var pipelinesCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a pipeline with its stages and initial leads",
	Long: `Create a pipeline. A pipeline needs at least one stage and at least one
lead across its stages.

From flags:
  board pipelines create Sales --stage New --stage Contacted --lead New=a@x.com

From a file:
  board pipelines create -f sales.yaml

  name: Sales
  stages:
    - name: New
      leads: [a@x.com]
    - name: Contacted`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPipelinesCreate,
}

func runPipelinesCreate(cmd *cobra.Command, args []string) error {
	var file draftFile
	if createFile != "" {
		data, err := os.ReadFile(createFile)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("parse %s: %w", createFile, err)
		}
	}
	if len(args) == 1 {
		file.Name = args[0]
	}
	for _, name := range createStages {
		file.Stages = append(file.Stages, draftFileStage{Name: name})
	}
	for _, pair := range createLeads {
		stage, ref, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("--lead wants stage=lead, got %q", pair)
		}
		found := false
		for i := range file.Stages {
			if file.Stages[i].Name == stage {
				file.Stages[i].Leads = append(file.Stages[i].Leads, ref)
				found = true
			}
		}
		if !found {
			return fmt.Errorf("--lead names stage %q, which is not in the pipeline", stage)
		}
	}

	var directory []entity.Lead
	if hasLeadRefs(file) {
		var err error
		if directory, err = cli.client.ListLeads(cmd.Context()); err != nil {
			return err
		}
	}

	d := board.NewDraft(0)
	d.Name = file.Name
	for _, s := range file.Stages {
		i := d.AddStage(s.Name)
		for _, ref := range s.Leads {
			lead, err := findLead(directory, ref)
			if err != nil {
				return err
			}
			if err := d.AttachLead(i, lead); err != nil {
				return fmt.Errorf("stage %q: %w", s.Name, err)
			}
		}
	}

	if err := cli.load(cmd.Context()); err != nil {
		return err
	}
	p, err := cli.board.CreatePipeline(cmd.Context(), d)
	if err != nil {
		return err
	}
	cli.ok("Created pipeline %q with %d stage(s).", p.Name, len(p.Stages))
	return nil
}

func hasLeadRefs(file draftFile) bool {
	for _, s := range file.Stages {
		if len(s.Leads) > 0 {
			return true
		}
	}
	return false
}

var pipelinesRenameCmd = &cobra.Command{
	Use:   "rename <pipeline> <new-name>",
	Short: "Rename a pipeline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.load(cmd.Context()); err != nil {
			return err
		}
		if err := cli.board.RenamePipeline(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		cli.ok("Renamed %q to %q.", args[0], args[1])
		return nil
	},
}

var pipelinesDeleteCmd = &cobra.Command{
	Use:   "delete <pipeline>",
	Short: "Delete a pipeline and all its stages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.load(cmd.Context()); err != nil {
			return err
		}
		res, err := cli.board.DeletePipeline(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		cli.ok("Deleted pipeline %q.", res.PipelineName)
		return nil
	},
}

func init() {
	pipelinesCreateCmd.Flags().StringVarP(&createFile, "file", "f", "", "YAML file describing the pipeline")
	pipelinesCreateCmd.Flags().StringArrayVar(&createStages, "stage", nil, "Stage name, in order (repeatable)")
	pipelinesCreateCmd.Flags().StringArrayVar(&createLeads, "lead", nil, "stage=lead id or email (repeatable)")

	pipelinesCmd.AddCommand(pipelinesListCmd)
	pipelinesCmd.AddCommand(pipelinesCreateCmd)
	pipelinesCmd.AddCommand(pipelinesRenameCmd)
	pipelinesCmd.AddCommand(pipelinesDeleteCmd)
}
