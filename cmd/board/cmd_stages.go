package main

import (
	"github.com/spf13/cobra"
)

var stagesCmd = &cobra.Command{
	Use:     "stages",
	Aliases: []string{"stage", "s"},
	Short:   "Add and delete stages of a pipeline",
}

var stagesAddCmd = &cobra.Command{
	Use:   "add <pipeline> <stage>",
	Short: "Append a stage to a pipeline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.load(cmd.Context()); err != nil {
			return err
		}
		if err := cli.board.AddStage(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		cli.ok("Added stage %q to %q.", args[1], args[0])
		return nil
	},
}

var stagesDeleteCmd = &cobra.Command{
	Use:   "delete <pipeline> <stage>",
	Short: "Delete a stage and drop its leads from the pipeline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.load(cmd.Context()); err != nil {
			return err
		}
		if err := cli.board.DeleteStage(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		cli.ok("Deleted stage %q from %q.", args[1], args[0])
		return nil
	},
}

func init() {
	stagesCmd.AddCommand(stagesAddCmd)
	stagesCmd.AddCommand(stagesDeleteCmd)
}
