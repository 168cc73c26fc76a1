package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"workspace-client/pkg/session"
)

func newLoginCmd(get func() *app) *cobra.Command {
	var email, token string
	cmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Sign in against the gateway, or store an existing access token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if token != "" {
				id, err := session.IdentityFromToken(token)
				if err != nil {
					return err
				}
				if err := a.session.SignIn(id); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Signed in as %s (id %d)\n", id.Username, id.ID)
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("username is required unless --token is given")
			}

			id, err := a.client.DevLogin(cmd.Context(), args[0], email)
			if err != nil {
				return userError(err, "Login failed")
			}
			if err := a.session.SignIn(*id); err != nil {
				return err
			}
			a.log.Infow("signed in", "username", id.Username, "store", a.store.Name())
			fmt.Fprintf(a.out, "Signed in as %s (id %d)\n", id.Username, id.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address used for domain discovery")
	cmd.Flags().StringVar(&token, "token", "", "existing access token to store instead of logging in")
	return cmd
}

func newLogoutCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the signed-in identity and the selected organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if err := a.session.SignOut(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity and the selected organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id, err := a.requireIdentity()
			if err != nil {
				return err
			}
			org := a.session.ActiveOrganization()
			if a.json {
				return a.printJSON(map[string]any{"identity": id.WithoutToken(), "organization": org})
			}
			fmt.Fprintf(a.out, "User:         %s (id %d)\n", id.Username, id.ID)
			if id.Email != "" {
				fmt.Fprintf(a.out, "Email:        %s\n", id.Email)
			}
			if org != nil {
				fmt.Fprintf(a.out, "Organization: %s (%s, id %d)\n", org.Name, org.Slug, org.ID)
			} else {
				fmt.Fprintln(a.out, "Organization: none selected")
			}
			return nil
		},
	}
}
