package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/langlearn/langlearn/internal/analysis"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Send work to the writing or pronunciation analysis service",
}

var analyzeWritingCmd = &cobra.Command{
	Use:   "writing",
	Short: "Assess a piece of writing",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		text, _ := cmd.Flags().GetString("text")
		if file, _ := cmd.Flags().GetString("file"); file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			text = string(data)
		}
		res, err := newAnalysisClient().AnalyzeWriting(cmd.Context(), user, text)
		if err != nil {
			return err
		}
		return printAnalysis(res)
	},
}

var analyzePronunciationCmd = &cobra.Command{
	Use:   "pronunciation",
	Short: "Assess a recording against its transcript",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		audio, _ := cmd.Flags().GetString("audio-url")
		transcript, _ := cmd.Flags().GetString("transcript")

		res, err := newAnalysisClient().AnalyzePronunciation(cmd.Context(), user, audio, transcript)
		if err != nil {
			return err
		}
		return printAnalysis(res)
	},
}

func printAnalysis(res *analysis.Result) error {
	if res.Score != nil {
		fmt.Fprintf(os.Stderr, "score: %.2f\n", *res.Score)
	}
	_, err := fmt.Println(string(res.Raw))
	return err
}

func init() {
	analyzeWritingCmd.Flags().String("user", "", "Learner ID")
	analyzeWritingCmd.Flags().String("text", "", "Text to assess")
	analyzeWritingCmd.Flags().String("file", "", "Read the text from a file")
	_ = analyzeWritingCmd.MarkFlagRequired("user")

	analyzePronunciationCmd.Flags().String("user", "", "Learner ID")
	analyzePronunciationCmd.Flags().String("audio-url", "", "URL of the recording")
	analyzePronunciationCmd.Flags().String("transcript", "", "Expected transcript")
	_ = analyzePronunciationCmd.MarkFlagRequired("user")
	_ = analyzePronunciationCmd.MarkFlagRequired("audio-url")

	analyzeCmd.AddCommand(analyzeWritingCmd)
	analyzeCmd.AddCommand(analyzePronunciationCmd)
}
