package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"workspace-client/pkg/invites"
	"workspace-client/pkg/models"
)

// inviteTarget are the flags selecting which invite list a command works on.
type inviteTarget struct {
	scope  string
	target int64
	hours  int
}

func (t *inviteTarget) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&t.scope, "scope", string(models.ScopeOrg), "invite scope: org or layer")
	cmd.Flags().Int64Var(&t.target, "target", 0, "organization or layer id (default: the active organization)")
	cmd.Flags().IntVar(&t.hours, "hours", models.DefaultInviteHours, "expiry in hours for new and resent invites")
}

// manager builds the invite manager for the selected target.
func (t *inviteTarget) manager(a *app, opts ...invites.Option) (*invites.Manager, error) {
	scope, err := models.ParseInviteScope(t.scope)
	if err != nil {
		return nil, err
	}
	if _, err := a.requireIdentity(); err != nil {
		return nil, err
	}
	target := t.target
	if scope == models.ScopeOrg {
		if target, err = a.activeOrgID(t.target); err != nil {
			return nil, err
		}
	} else if target <= 0 {
		return nil, fmt.Errorf("--target is required for layer invites")
	}
	opts = append([]invites.Option{
		invites.WithExpiryHours(t.hours),
		invites.WithLogger(a.log),
	}, opts...)
	return invites.NewManager(scope, target, a.client.Invites, a.session, opts...), nil
}

func newInvitesCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invites",
		Short: "Send, list, resend, revoke, preview and accept invites",
	}
	cmd.AddCommand(
		newInvitesListCmd(get),
		newInvitesSendCmd(get),
		newInvitesResendCmd(get),
		newInvitesRevokeCmd(get),
		newInvitesPreviewCmd(get),
		newInvitesAcceptCmd(get),
	)
	return cmd
}

func newInvitesListCmd(get func() *app) *cobra.Command {
	t := &inviteTarget{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invites of an organization or layer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			m, err := t.manager(a)
			if err != nil {
				return err
			}
			if err := m.Load(cmd.Context()); err != nil {
				return fmt.Errorf("%s", m.Error())
			}
			return printInvites(a, m.Invites())
		},
	}
	t.bind(cmd)
	return cmd
}

func newInvitesSendCmd(get func() *app) *cobra.Command {
	t := &inviteTarget{}
	cmd := &cobra.Command{
		Use:   "send <email>...",
		Short: "Invite one or more addresses (comma or space separated)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			m, err := t.manager(a)
			if err != nil {
				return err
			}
			m.SetInput(strings.Join(args, " "))
			emails := invites.NormalizeEmails(m.Input())
			if len(emails) == 0 {
				return fmt.Errorf("no email addresses given")
			}
			if _, ok := a.session.ActorID(); !ok {
				return errNoActor
			}
			if err := m.Submit(cmd.Context()); err != nil {
				return fmt.Errorf("%s", m.Error())
			}
			if msg := m.Error(); msg != "" {
				a.log.Warnw("invites sent but the list was not refreshed", "error", msg)
			}
			if !a.json {
				fmt.Fprintf(a.out, "Invited %s\n", strings.Join(emails, ", "))
			}
			return printInvites(a, m.Invites())
		},
	}
	t.bind(cmd)
	return cmd
}

func newInvitesResendCmd(get func() *app) *cobra.Command {
	t := &inviteTarget{}
	cmd := &cobra.Command{
		Use:   "resend <inviteId>",
		Short: "Re-deliver a pending invite and extend its expiry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id, err := parseID(args[0], "invite id")
			if err != nil {
				return err
			}
			m, err := t.manager(a, invites.WithErrorPolicy(invites.AllVisible()))
			if err != nil {
				return err
			}
			if _, ok := a.session.ActorID(); !ok {
				return errNoActor
			}
			if err := m.Resend(cmd.Context(), id); err != nil {
				return fmt.Errorf("%s", m.Error())
			}
			return printInvites(a, m.Invites())
		},
	}
	t.bind(cmd)
	return cmd
}

func newInvitesRevokeCmd(get func() *app) *cobra.Command {
	t := &inviteTarget{}
	cmd := &cobra.Command{
		Use:   "revoke <inviteId>",
		Short: "Cancel a pending invite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id, err := parseID(args[0], "invite id")
			if err != nil {
				return err
			}
			m, err := t.manager(a, invites.WithErrorPolicy(invites.AllVisible()))
			if err != nil {
				return err
			}
			if _, ok := a.session.ActorID(); !ok {
				return errNoActor
			}
			if err := m.Revoke(cmd.Context(), id); err != nil {
				return fmt.Errorf("%s", m.Error())
			}
			return printInvites(a, m.Invites())
		},
	}
	t.bind(cmd)
	return cmd
}

func newInvitesPreviewCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <token>",
		Short: "Show what an invite token grants (no sign-in needed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			p, err := a.client.Invites.Preview(cmd.Context(), args[0])
			if err != nil {
				return userError(err, "Invite not found")
			}
			if a.json {
				return a.printJSON(p)
			}
			target := p.TargetName
			if target == "" {
				target = fmt.Sprintf("%s %d", p.Scope, p.TargetID)
			}
			fmt.Fprintf(a.out, "Invite for %s to %s (%s), %s, expires %s\n",
				p.Email, target, p.Scope, p.Status, p.ExpiresAt.Local().Format(time.RFC1123))
			return nil
		},
	}
}

func newInvitesAcceptCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "accept <token>",
		Short: "Accept an invite as the signed-in user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			res, err := a.client.Invites.Accept(cmd.Context(), args[0])
			if err != nil {
				return userError(err, "Failed to accept invite")
			}
			if a.json {
				return a.printJSON(res)
			}
			fmt.Fprintf(a.out, "Joined %s %d\n", res.Scope, res.TargetID)
			return nil
		},
	}
}

func printInvites(a *app, list []models.Invite) error {
	if a.json {
		return a.printJSON(list)
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No invites.")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tSTATUS\tEXPIRES\tTOKEN")
	for _, inv := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", inv.ID, inv.Email, inv.Status, inv.ExpiresAt.Local().Format(time.DateTime), inv.Token)
	}
	return tw.Flush()
}
