package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/99minutos/session-client/internal/app"
	"github.com/99minutos/session-client/internal/core/domain"
)

func (c *cli) newLoginCmd() *cobra.Command {
	var creds domain.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session on this machine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, true, func(ctx context.Context, a *app.App) error {
				res := a.Session.Login(ctx, creds)
				if !res.OK {
					return errors.New(res.Error)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", describe(res.Value))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&creds.Identifier, "identifier", "u", "", "email or username")
	cmd.Flags().StringVarP(&creds.Secret, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("identifier")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func (c *cli) newRegisterCmd() *cobra.Command {
	var (
		reg  domain.Registration
		role string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg.Role = domain.Role(role)
			if !reg.Role.Valid() {
				return errors.New("role must be one of customer, provider, admin")
			}
			return c.withApp(cmd, true, func(ctx context.Context, a *app.App) error {
				res := a.Session.Register(ctx, reg)
				if !res.OK {
					return errors.New(res.Error)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered and logged in as %s\n", describe(res.Value))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reg.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&reg.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "email address")
	cmd.Flags().StringVar(&reg.Phone, "phone", "", "phone number")
	cmd.Flags().StringVarP(&reg.Password, "password", "p", "", "password")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleCustomer), "account role: customer, provider or admin")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func (c *cli) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget it on this machine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, true, func(ctx context.Context, a *app.App) error {
				a.Session.Logout(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
				return nil
			})
		},
	}
}
