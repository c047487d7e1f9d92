package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/langlearn/langlearn/internal/ui/theme"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend lesson modules for a learner",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		asJSON, _ := cmd.Flags().GetBool("json")

		r, err := openOnlineRemote(cmd.Context())
		if err != nil {
			return err
		}
		defer r.Close()

		recs, err := newRecommender(r).Generate(cmd.Context(), user)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(recs)
		}
		if len(recs) == 0 {
			fmt.Println("No recommendations: no weak areas matched the catalog.")
			return nil
		}

		fmt.Println(theme.Title.Render("Recommended modules for " + user))
		for i, rec := range recs {
			fmt.Printf("%d. %-24s %s %.2f\n", i+1, rec.ModuleID, theme.Bar(rec.Confidence, 20), rec.Confidence)
		}
		reason := recs[0].Reason
		fmt.Println()
		fmt.Println(theme.KeyValue("weak areas", strings.Join(reason.WeakAreas, ", ")))
		fmt.Println(theme.KeyValue("avg score", fmt.Sprintf("%.2f", reason.Performance)))
		fmt.Println(theme.KeyValue("velocity", fmt.Sprintf("%.2f lessons/day", reason.Velocity)))
		return nil
	},
}

func init() {
	recommendCmd.Flags().String("user", "", "Learner ID")
	recommendCmd.Flags().Bool("json", false, "Print JSON")
	_ = recommendCmd.MarkFlagRequired("user")
}
