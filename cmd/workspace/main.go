// Command workspace drives the workspace client from the terminal: sign-in,
// organization selection, invites, custom categories and a local dev gateway.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"workspace-client/pkg/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	var a *app

	root := &cobra.Command{
		Use:           "workspace",
		Short:         "workspace is a command line client for collaborative workspaces",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["bare"] == "true" {
				return nil
			}
			built, err := newApp(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			a = built
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.close()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.Annotations = map[string]string{"bare": "true"}

	root.PersistentFlags().StringVar(&opts.apiURL, "api", "", "gateway base URL (default $API_BASE_URL)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "local data directory (default $DATA_DIR)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print JSON instead of tables")

	// commands read the app through this getter; it is set by PersistentPreRunE
	get := func() *app { return a }

	versionCmd := version.Cmd()
	versionCmd.Annotations = map[string]string{"bare": "true"}

	root.AddCommand(
		versionCmd,
		newLoginCmd(get),
		newLogoutCmd(get),
		newWhoamiCmd(get),
		newOrgsCmd(get),
		newMembersCmd(get),
		newLayersCmd(get),
		newInvitesCmd(get),
		newCategoriesCmd(get),
		newTaxonomyCmd(),
		newDevGatewayCmd(get),
	)
	return root
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v any) error {
	j, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(j))
	return err
}
