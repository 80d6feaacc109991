package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"resumematch/internal/domain"
	"resumematch/internal/usecase"
)

var profilesJSON bool

var profilesCmd = &cobra.Command{
	Use:     "profiles",
	Aliases: []string{"profile"},
	Short:   "Inspect and remove stored profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles",
	Args:  cobra.NoArgs,
	RunE:  runProfilesList,
}

var profilesShowCmd = &cobra.Command{
	Use:   "show <profile-id>",
	Short: "Show a profile with its metadata and feedback",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesShow,
}

var profilesDeleteCmd = &cobra.Command{
	Use:   "delete <profile-id>...",
	Short: "Remove profiles and their indexed chunks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProfilesDelete,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
	profilesCmd.AddCommand(profilesListCmd, profilesShowCmd, profilesDeleteCmd)
	profilesCmd.PersistentFlags().BoolVar(&profilesJSON, "json", false, "print as JSON")
}

func runProfilesList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	profiles, err := a.engine.Profiles(ctx)
	if err != nil {
		return err
	}
	if profilesJSON {
		return printJSON(os.Stdout, profiles)
	}
	if len(profiles) == 0 {
		fmt.Println("No profiles stored.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSOURCE\tFEEDBACK\tUPDATED")
	for _, p := range profiles {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			p.ID, orDash(p.Metadata[usecase.MetaSource]), feedbackTally(p.Feedback), p.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func runProfilesShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.engine.Profile(ctx, args[0])
	if err != nil {
		return err
	}
	if profilesJSON {
		return printJSON(os.Stdout, p)
	}

	fmt.Printf("ID:       %s\n", p.ID)
	fmt.Printf("Created:  %s\n", p.CreatedAt.Local().Format(time.DateTime))
	fmt.Printf("Updated:  %s\n", p.UpdatedAt.Local().Format(time.DateTime))
	if len(p.Metadata) > 0 {
		keys := make([]string, 0, len(p.Metadata))
		for k := range p.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Println("Metadata:")
		for _, k := range keys {
			fmt.Printf("  %s: %s\n", k, p.Metadata[k])
		}
	}
	fmt.Printf("\nSummary:\n%s\n", p.Summary)
	if len(p.Feedback) > 0 {
		fmt.Printf("\nFeedback (%s):\n", feedbackTally(p.Feedback))
		for _, f := range p.Feedback {
			mark := "-"
			if f.Positive {
				mark = "+"
			}
			fmt.Printf("  %s %s %s\n", f.Timestamp.Local().Format(time.DateTime), mark, f.Comment)
		}
	}
	return nil
}

func runProfilesDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	for _, id := range args {
		if err := a.engine.DeleteProfile(ctx, id); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
		fmt.Printf("Deleted %s\n", id)
	}
	return nil
}

func feedbackTally(history []domain.Feedback) string {
	var pos, neg int
	for _, f := range history {
		if f.Positive {
			pos++
		} else {
			neg++
		}
	}
	return fmt.Sprintf("+%d/-%d", pos, neg)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
