package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/langlearn/langlearn/internal/learner"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record learner activity locally (works offline)",
}

var recordResponseCmd = &cobra.Command{
	Use:   "response",
	Short: "Record a quiz response",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		contentID, _ := cmd.Flags().GetString("content")
		score, _ := cmd.Flags().GetFloat64("score")
		topic, _ := cmd.Flags().GetString("topic")
		answers, _ := cmd.Flags().GetString("answers")

		resp := learner.QuizResponse{UserID: user, ContentID: contentID, Score: score, Topic: topic}
		if answers != "" {
			if !json.Valid([]byte(answers)) {
				return fmt.Errorf("--answers must be a JSON document")
			}
			resp.Answers = json.RawMessage(answers)
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		rec, err := s.RecordQuizResponse(cmd.Context(), resp)
		if err != nil {
			return err
		}
		fmt.Printf("Queued %s #%d (%s)\n", rec.Collection, rec.Sequence, rec.ID)
		return nil
	},
}

var recordProgressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Record lesson progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		lesson, _ := cmd.Flags().GetString("lesson")
		completed, _ := cmd.Flags().GetBool("completed")
		score, _ := cmd.Flags().GetFloat64("score")

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		rec, err := s.RecordProgress(cmd.Context(), learner.ProgressRecord{
			UserID: user, LessonID: lesson, Completed: completed, Score: score,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Queued %s #%d (%s)\n", rec.Collection, rec.Sequence, rec.ID)
		return nil
	},
}

func init() {
	recordResponseCmd.Flags().String("user", "", "Learner ID")
	recordResponseCmd.Flags().String("content", "", "Quiz content ID")
	recordResponseCmd.Flags().Float64("score", 0, "Score in [0,1]")
	recordResponseCmd.Flags().String("topic", "", "Topic the quiz covered")
	recordResponseCmd.Flags().String("answers", "", "Answers as a JSON document")
	_ = recordResponseCmd.MarkFlagRequired("user")
	_ = recordResponseCmd.MarkFlagRequired("content")

	recordProgressCmd.Flags().String("user", "", "Learner ID")
	recordProgressCmd.Flags().String("lesson", "", "Lesson ID")
	recordProgressCmd.Flags().Bool("completed", false, "Mark the lesson completed")
	recordProgressCmd.Flags().Float64("score", 0, "Lesson score")
	_ = recordProgressCmd.MarkFlagRequired("user")
	_ = recordProgressCmd.MarkFlagRequired("lesson")

	recordCmd.AddCommand(recordResponseCmd)
	recordCmd.AddCommand(recordProgressCmd)
}
