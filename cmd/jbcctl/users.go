package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"justbecause/internal/admin"
	"justbecause/internal/domain"
)

// operator is the actor recorded for CLI moderation edits.
var operator = &domain.User{ID: "jbcctl", Role: domain.RoleAdmin}

type userRef struct {
	id    string
	email string
}

func userFlags(cmd *cobra.Command) *userRef {
	r := &userRef{}
	cmd.Flags().StringVar(&r.id, "id", "", "user ID")
	cmd.Flags().StringVar(&r.email, "email", "", "user email")
	return r
}

func (r userRef) resolve(ctx context.Context, users domain.UserRepository) (*domain.User, error) {
	id, email := strings.TrimSpace(r.id), strings.TrimSpace(r.email)
	switch {
	case id != "" && email != "":
		return nil, errors.New("use either --id or --email, not both")
	case id != "":
		return users.GetByID(ctx, id)
	case email != "":
		return users.GetByEmail(ctx, strings.ToLower(email))
	}
	return nil, errors.New("either --id or --email must be provided")
}

// planPatch turns the set-plan flags into a moderation patch. Pro needs a
// positive duration counted from now; free clears any expiry.
func planPatch(plan string, days int, now time.Time) (admin.UserPatch, error) {
	p := domain.Plan(strings.ToLower(strings.TrimSpace(plan)))
	switch p {
	case domain.PlanFree:
		return admin.UserPatch{Plan: &p, ClearExpiry: true}, nil
	case domain.PlanPro:
		if days <= 0 {
			return admin.UserPatch{}, fmt.Errorf("--days must be positive for the pro plan")
		}
		exp := now.Add(time.Duration(days) * 24 * time.Hour).UTC()
		return admin.UserPatch{Plan: &p, PlanExpiresAt: &exp}, nil
	}
	return admin.UserPatch{}, fmt.Errorf("unsupported plan %q", plan)
}

func (c *cli) userCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage accounts"}

	var plan string
	var days int
	setPlan := &cobra.Command{
		Use:   "set-plan",
		Short: "Grant or revoke a Pro plan",
		Args:  cobra.NoArgs,
	}
	setPlanRef := userFlags(setPlan)
	setPlan.Flags().StringVar(&plan, "plan", string(domain.PlanPro), "plan to assign (free or pro)")
	setPlan.Flags().IntVar(&days, "days", 30, "Pro duration in days")
	setPlan.RunE = func(cmd *cobra.Command, _ []string) error {
		svc, b, err := c.services(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()
		patch, err := planPatch(plan, days, svc.Clock.Now())
		if err != nil {
			return err
		}
		u, err := setPlanRef.resolve(cmd.Context(), svc.Store.Users)
		if err != nil {
			return err
		}
		u, err = svc.Admin.UpdateUser(cmd.Context(), operator, u.ID, patch)
		if err != nil {
			return err
		}
		c.printf("user %s (%s) now on plan %s", u.ID, u.Email, u.Plan)
		if u.PlanExpiresAt != nil {
			c.printf(" until %s", u.PlanExpiresAt.Format(time.RFC3339))
		}
		c.printf("\n")
		return nil
	}

	makeAdmin := &cobra.Command{
		Use:   "make-admin",
		Short: "Promote an account to administrator",
		Args:  cobra.NoArgs,
	}
	makeAdminRef := userFlags(makeAdmin)
	makeAdmin.RunE = func(cmd *cobra.Command, _ []string) error {
		svc, b, err := c.services(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()
		u, err := makeAdminRef.resolve(cmd.Context(), svc.Store.Users)
		if err != nil {
			return err
		}
		role := domain.RoleAdmin
		u, err = svc.Admin.UpdateUser(cmd.Context(), operator, u.ID, admin.UserPatch{Role: &role})
		if err != nil {
			return err
		}
		c.printf("user %s (%s) is now an admin\n", u.ID, u.Email)
		return nil
	}

	cmd.AddCommand(setPlan, makeAdmin)
	return cmd
}
