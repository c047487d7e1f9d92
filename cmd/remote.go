package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/langlearn/langlearn/internal/remote"
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Administer the remote store",
}

var remoteMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the remote tables if they do not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openOnlineRemote(cmd.Context())
		if err != nil {
			return err
		}
		defer r.Close()

		if err := r.Migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Remote schema is up to date.")
		return nil
	},
}

var remoteImportCmd = &cobra.Command{
	Use:   "import <catalog.yaml>",
	Short: "Load modules, content and quiz configs from a YAML catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		cat, err := remote.ReadCatalog(f)
		if err != nil {
			return err
		}

		r, err := openOnlineRemote(cmd.Context())
		if err != nil {
			return err
		}
		defer r.Close()

		stats, err := r.ImportCatalog(cmd.Context(), cat)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d modules, %d content items, %d quiz configs\n",
			stats.Modules, stats.Contents, stats.QuizConfigs)
		return nil
	},
}

func init() {
	remoteCmd.AddCommand(remoteMigrateCmd)
	remoteCmd.AddCommand(remoteImportCmd)
}
