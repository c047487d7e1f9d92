package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/langlearn/langlearn/internal/ui/theme"
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Compose an adaptive quiz for a learner",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		asJSON, _ := cmd.Flags().GetBool("json")

		r, err := openOnlineRemote(cmd.Context())
		if err != nil {
			return err
		}
		defer r.Close()

		quiz, err := newQuizService(r).Generate(cmd.Context(), user)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(quiz)
		}
		if len(quiz.Questions) == 0 {
			fmt.Println("No quiz templates near the learner's difficulty.")
			return nil
		}

		fmt.Println(theme.Title.Render(fmt.Sprintf("Quiz for %s (difficulty %.2f)", user, quiz.Metadata.Difficulty)))
		for i, q := range quiz.Questions {
			fmt.Printf("\n── Question %d/%d ──\n%s\n", i+1, len(quiz.Questions), q.Question)
			for j, opt := range q.Options {
				fmt.Printf("  %d) %s\n", j+1, opt)
			}
			if q.Hint != "" {
				fmt.Println(theme.Hint.Render("Hint: " + q.Hint))
			}
		}
		return nil
	},
}

func init() {
	quizCmd.Flags().String("user", "", "Learner ID")
	quizCmd.Flags().Bool("json", false, "Print JSON")
	_ = quizCmd.MarkFlagRequired("user")
}
