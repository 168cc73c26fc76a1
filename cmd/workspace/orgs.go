package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"workspace-client/pkg/membership"
	"workspace-client/pkg/models"
)

func newOrgsCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orgs",
		Short: "List, select, create, discover and join organizations",
	}
	cmd.AddCommand(
		newOrgsListCmd(get),
		newOrgsSelectCmd(get),
		newOrgsCreateCmd(get),
		newOrgsDiscoverCmd(get),
		newOrgsJoinCmd(get),
		newOrgsShowCmd(get),
	)
	return cmd
}

// activate resolves the user's memberships. A missing or rejected session is errNotSignedIn.
func (a *app) activate(ctx context.Context) (*membership.Flow, error) {
	flow := a.newFlow()
	if err := flow.Activate(ctx); err != nil {
		return nil, userError(err, "Failed to load organizations")
	}
	if flow.State() == membership.StateUnauthenticated {
		return nil, errNotSignedIn
	}
	return flow, nil
}

func newOrgsListCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the organizations you belong to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			flow, err := a.activate(cmd.Context())
			if err != nil {
				return err
			}
			memberships := flow.Memberships()
			if a.json {
				return a.printJSON(memberships)
			}
			if len(memberships) == 0 {
				fmt.Fprintln(a.out, "You are not a member of any organization yet.")
				return nil
			}

			var activeID int64
			if org := a.session.ActiveOrganization(); org != nil {
				activeID = org.ID
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "\tID\tSLUG\tNAME\tROLE")
			for _, m := range memberships {
				marker := ""
				if m.Organization.ID == activeID {
					marker = "*"
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", marker, m.Organization.ID, m.Organization.Slug, m.Organization.Name, m.Role)
			}
			return tw.Flush()
		},
	}
}

func newOrgsSelectCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "select <id|slug>",
		Short: "Make one of your organizations the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			flow, err := a.activate(cmd.Context())
			if err != nil {
				return err
			}
			if id, convErr := strconv.ParseInt(args[0], 10, 64); convErr == nil {
				return flow.Select(id)
			}
			return flow.SelectBySlug(args[0])
		},
	}
}

func newOrgsCreateCmd(get func() *app) *cobra.Command {
	var (
		req    models.CreateOrganizationRequest
		policy string
		sel    bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an organization you own",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if _, err := a.requireIdentity(); err != nil {
				return err
			}
			req.JoinPolicy = models.JoinPolicy(policy)
			org, err := a.client.Organizations.Create(cmd.Context(), req)
			if err != nil {
				return userError(err, "Failed to create organization")
			}
			a.log.Infow("organization created", "id", org.ID, "slug", org.Slug)
			if sel {
				if err := a.session.SelectOrganization(*org); err != nil {
					return err
				}
			}
			if a.json {
				return a.printJSON(org)
			}
			fmt.Fprintf(a.out, "Created %s (%s, id %d)\n", org.Name, org.Slug, org.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&req.Slug, "slug", "", "URL-safe unique slug (required)")
	cmd.Flags().StringVar(&policy, "join-policy", "", "invite (default) or domain")
	cmd.Flags().StringSliceVar(&req.AllowedDomains, "domain", nil, "email domain allowed to join (repeatable)")
	cmd.Flags().BoolVar(&sel, "select", false, "make the new organization the active one")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("slug")
	return cmd
}

func newOrgsDiscoverCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "discover [email]",
		Short: "Find organizations that admit an email's domain",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			email := ""
			if len(args) == 1 {
				email = args[0]
			} else if id := a.session.Identity(); id != nil {
				email = id.Email
			}
			if email == "" {
				return fmt.Errorf("email is required when the signed-in identity has none")
			}

			orgs, err := a.client.Organizations.Discover(cmd.Context(), email)
			if err != nil {
				return userError(err, "Failed to discover organizations")
			}
			if a.json {
				return a.printJSON(orgs)
			}
			if len(orgs) == 0 {
				fmt.Fprintf(a.out, "No organizations admit %s\n", models.EmailDomain(email))
				return nil
			}
			return printOrgs(a, orgs)
		},
	}
}

func newOrgsJoinCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "join <orgId>",
		Short: "Join an organization that admits your email domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id, err := parseID(args[0], "organization id")
			if err != nil {
				return err
			}
			if _, err := a.requireIdentity(); err != nil {
				return err
			}
			if err := a.client.Organizations.Join(cmd.Context(), id); err != nil {
				return userError(err, "Failed to join organization")
			}
			fmt.Fprintf(a.out, "Joined organization %d\n", id)
			return nil
		},
	}
}

func newOrgsShowCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <slug>",
		Short: "Resolve an organization by slug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			org, err := a.client.Organizations.GetBySlug(cmd.Context(), args[0])
			if err != nil {
				return userError(err, "Organization not found")
			}
			if a.json {
				return a.printJSON(org)
			}
			return printOrgs(a, []models.Organization{*org})
		},
	}
}

func printOrgs(a *app, orgs []models.Organization) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSLUG\tNAME\tJOIN POLICY")
	for _, o := range orgs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", o.ID, o.Slug, o.Name, o.JoinPolicy.OrDefault())
	}
	return tw.Flush()
}

func newMembersCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Work with organization members",
	}

	var orgID int64
	search := &cobra.Command{
		Use:   "search [query]",
		Short: "Search members of the active organization by username or email",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id, err := a.activeOrgID(orgID)
			if err != nil {
				return err
			}
			q := ""
			if len(args) == 1 {
				q = args[0]
			}
			members, err := a.client.Organizations.SearchMembers(cmd.Context(), id, q)
			if err != nil {
				return userError(err, "Failed to search members")
			}
			if a.json {
				return a.printJSON(members)
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tROLE")
			for _, m := range members {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", m.ID, m.Username, m.Email, m.Role)
			}
			return tw.Flush()
		},
	}
	search.Flags().Int64Var(&orgID, "org", 0, "organization id (default: the active organization)")
	cmd.AddCommand(search)
	return cmd
}

func newLayersCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layers",
		Short: "Manage organization layers",
	}

	var orgID int64
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a layer in the active organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id, err := a.activeOrgID(orgID)
			if err != nil {
				return err
			}
			layer, err := a.client.Organizations.CreateLayer(cmd.Context(), id, args[0])
			if err != nil {
				return userError(err, "Failed to create layer")
			}
			if a.json {
				return a.printJSON(layer)
			}
			fmt.Fprintf(a.out, "Created layer %s (id %d)\n", layer.Name, layer.ID)
			return nil
		},
	}
	create.Flags().Int64Var(&orgID, "org", 0, "organization id (default: the active organization)")
	cmd.AddCommand(create)
	return cmd
}
