package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
	"github.com/xavierca1/ligue-pipeline/internal/infra/integration/crmapi"
)

var leadsCmd = &cobra.Command{
	Use:     "leads",
	Aliases: []string{"lead", "l"},
	Short:   "Manage the lead directory and put leads into stages",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every lead in the directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		leads, err := cli.client.ListLeads(cmd.Context())
		if err != nil {
			return err
		}
		if len(leads) == 0 {
			fmt.Fprintln(cli.out, faintStyle.Render("No leads yet."))
			return nil
		}
		for _, l := range leads {
			fmt.Fprintf(cli.out, "%-36s  %-24s %-28s %s\n", l.ID, l.Name, l.Email, faintStyle.Render(l.Company))
		}
		return nil
	},
}

var (
	leadPhone   string
	leadCompany string
	leadInfo    []string
)

var leadsCreateCmd = &cobra.Command{
	Use:   "create <name> <email>",
	Short: "Add a lead to the directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		info := make(map[string]string, len(leadInfo))
		for _, kv := range leadInfo {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("--info wants key=value, got %q", kv)
			}
			info[k] = v
		}
		lead, err := cli.client.CreateLead(cmd.Context(), crmapi.CreateLeadInput{
			Name:    args[0],
			Email:   args[1],
			Phone:   leadPhone,
			Company: leadCompany,
			Info:    info,
		})
		if err != nil {
			return err
		}
		cli.ok("Created lead %s (%s).", lead.Name, lead.ID)
		return nil
	},
}

var leadsDeleteCmd = &cobra.Command{
	Use:   "delete <lead>",
	Short: "Delete a lead from the directory by id or email",
	Long: `Delete a lead from the directory. Copies of the lead already placed in
pipeline stages are not removed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		leads, err := cli.client.ListLeads(cmd.Context())
		if err != nil {
			return err
		}
		lead, err := findLead(leads, args[0])
		if err != nil {
			return err
		}
		res, err := cli.client.DeleteLead(cmd.Context(), lead.ID)
		if err != nil {
			return err
		}
		cli.ok("Deleted %d lead(s).", res.DeletedCount)
		return nil
	},
}

var leadsAddCmd = &cobra.Command{
	Use:   "add <pipeline> <stage> <lead>",
	Short: "Put a directory lead into a stage",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		leads, err := cli.client.ListLeads(cmd.Context())
		if err != nil {
			return err
		}
		lead, err := findLead(leads, args[2])
		if err != nil {
			return err
		}
		if err := cli.load(cmd.Context()); err != nil {
			return err
		}
		if err := cli.board.AddLead(cmd.Context(), args[0], args[1], lead); err != nil {
			return err
		}
		cli.ok("Added %s to %q.", lead.Name, args[1])
		return nil
	},
}

var errAmbiguousLead = errors.New("more than one lead has that email; use the lead id")

// findLead matches ref against lead ids first, then emails. An email shared
// by several leads is refused rather than guessed.
func findLead(leads []entity.Lead, ref string) (entity.Lead, error) {
	for _, l := range leads {
		if l.ID == ref {
			return l, nil
		}
	}
	var matches []entity.Lead
	for _, l := range leads {
		if strings.EqualFold(l.Email, ref) {
			matches = append(matches, l)
		}
	}
	switch len(matches) {
	case 0:
		return entity.Lead{}, fmt.Errorf("no lead with id or email %q", ref)
	case 1:
		return matches[0], nil
	default:
		return entity.Lead{}, fmt.Errorf("%q: %w", ref, errAmbiguousLead)
	}
}

func init() {
	leadsCreateCmd.Flags().StringVar(&leadPhone, "phone", "", "Phone number")
	leadsCreateCmd.Flags().StringVar(&leadCompany, "company", "", "Company name")
	leadsCreateCmd.Flags().StringArrayVar(&leadInfo, "info", nil, "Extra key=value attribute (repeatable)")

	leadsCmd.AddCommand(leadsListCmd)
	leadsCmd.AddCommand(leadsCreateCmd)
	leadsCmd.AddCommand(leadsDeleteCmd)
	leadsCmd.AddCommand(leadsAddCmd)
}
