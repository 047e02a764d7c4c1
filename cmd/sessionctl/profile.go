package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/99minutos/session-client/internal/api/guard"
	"github.com/99minutos/session-client/internal/app"
	"github.com/99minutos/session-client/internal/core/domain"
)

func (c *cli) newWhoamiCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, true, func(ctx context.Context, a *app.App) error {
				return guarded(ctx, func(context.Context) error {
					u := a.Session.Snapshot().User
					if jsonOutput {
						out, err := json.MarshalIndent(u, "", "  ")
						if err != nil {
							return fmt.Errorf("failed to format JSON: %w", err)
						}
						fmt.Fprintln(cmd.OutOrStdout(), string(out))
						return nil
					}
					printUser(cmd, *u)
					return nil
				}, guard.RequireAuthenticated(a.Session))
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the user as JSON")
	return cmd
}

func printUser(cmd *cobra.Command, u domain.User) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%s\n", u.ID)
	fmt.Fprintf(w, "NAME\t%s\n", u.DisplayName())
	fmt.Fprintf(w, "EMAIL\t%s\n", u.Email)
	if u.Phone != "" {
		fmt.Fprintf(w, "PHONE\t%s\n", u.Phone)
	}
	fmt.Fprintf(w, "ROLE\t%s\n", u.Role)
	_ = w.Flush()
}

func (c *cli) newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the signed-in user's profile",
	}
	cmd.AddCommand(c.newProfileUpdateCmd())
	return cmd
}

func (c *cli) newProfileUpdateCmd() *cobra.Command {
	var firstName, lastName, email, phone, image string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields; only the flags given are sent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var patch domain.ProfilePatch
			flags := cmd.Flags()
			set := func(name string, dst **string, v *string) {
				if flags.Changed(name) {
					*dst = v
				}
			}
			set("first-name", &patch.FirstName, &firstName)
			set("last-name", &patch.LastName, &lastName)
			set("email", &patch.Email, &email)
			set("phone", &patch.Phone, &phone)
			set("profile-image", &patch.ProfileImage, &image)
			if patch == (domain.ProfilePatch{}) {
				return errors.New("nothing to update")
			}

			return c.withApp(cmd, true, func(ctx context.Context, a *app.App) error {
				return guarded(ctx, func(ctx context.Context) error {
					res := a.Session.UpdateProfile(ctx, patch)
					if !res.OK {
						return errors.New(res.Error)
					}
					printUser(cmd, res.Value)
					return nil
				}, guard.RequireAuthenticated(a.Session))
			})
		},
	}

	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&image, "profile-image", "", "profile image reference")

	return cmd
}

func (c *cli) newPasswordCmd() *cobra.Command {
	var change domain.PasswordChange

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change the signed-in user's password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, true, func(ctx context.Context, a *app.App) error {
				return guarded(ctx, func(ctx context.Context) error {
					res := a.Session.ChangePassword(ctx, change)
					if !res.OK {
						return errors.New(res.Error)
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Password changed.")
					return nil
				}, guard.RequireAuthenticated(a.Session))
			})
		},
	}

	cmd.Flags().StringVar(&change.Current, "current", "", "current password")
	cmd.Flags().StringVar(&change.New, "new", "", "new password")
	_ = cmd.MarkFlagRequired("current")
	_ = cmd.MarkFlagRequired("new")

	return cmd
}
