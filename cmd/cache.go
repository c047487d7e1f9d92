package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/langlearn/langlearn/internal/content"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage offline lesson content",
}

var cachePutCmd = &cobra.Command{
	Use:   "put <lesson-id> <file.json>",
	Short: "Cache lesson content from a JSON array of {kind, data} items",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		var items []content.Content
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("parse %s: %w", args[1], err)
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.CacheContent(cmd.Context(), args[0], items); err != nil {
			return err
		}
		fmt.Printf("Cached %d items for %s\n", len(items), args[0])
		return nil
	},
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <lesson-id>",
	Short: "Print cached lesson content as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		cached, err := s.GetCachedContent(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cached)
	},
}

func init() {
	cacheCmd.AddCommand(cachePutCmd)
	cacheCmd.AddCommand(cacheGetCmd)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
