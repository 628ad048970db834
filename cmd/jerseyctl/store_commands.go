package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jerseyhouse/storefront/internal/app"
	"github.com/jerseyhouse/storefront/internal/domain/admins"
	"github.com/jerseyhouse/storefront/internal/domain/discounts"
	"github.com/jerseyhouse/storefront/internal/domain/products"
)

var errPostgresRequired = errors.New("this command requires DATA_BACKEND=postgres")

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.DataBackend != "postgres" {
				return errPostgresRequired
			}

			db, err := app.Connect(cmd.Context(), cfg, ctx.logger)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()

			if err := app.Migrate(cmd.Context(), db, ctx.logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")
			return nil
		},
	}
}

var sampleProducts = []products.CreateInput{
	{
		Name:                  "Sri Lanka Home Jersey 2025",
		Team:                  "Sri Lanka",
		Season:                "2025",
		Kind:                  "home",
		Description:           "Official-style home kit in royal blue.",
		PriceCents:            650000,
		CustomizationFeeCents: 100000,
		Sizes:                 []string{"S", "M", "L", "XL", "2XL"},
		KidsSizes:             []string{"20", "22", "24", "26"},
		Active:                true,
	},
	{
		Name:                  "Real Madrid Away Jersey 2025",
		Team:                  "Real Madrid",
		Season:                "2025",
		Kind:                  "away",
		PriceCents:            750000,
		CustomizationFeeCents: 120000,
		Sizes:                 []string{"S", "M", "L", "XL"},
		Active:                true,
	},
	{
		Name:       "Manchester United Retro 1999",
		Team:       "Manchester United",
		Season:     "1999",
		Kind:       "retro",
		PriceCents: 820000,
		Sizes:      []string{"M", "L", "XL", "2XL", "3XL"},
		Active:     true,
	},
}

var sampleDiscounts = []discounts.CreateInput{
	{Code: "WELCOME10", Kind: "percentage", Value: 10},
	{Code: "FREESHIP", Kind: "fixed", Value: 40000, MinOrderCents: 1000000, MaxUses: 100},
}

func newSeedCommand(ctx *commandContext) *cobra.Command {
	var adminEmail string
	var adminPassword string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load sample products, discount codes and an optional admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.DataBackend != "postgres" {
				return errPostgresRequired
			}

			a, err := ctx.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			for _, input := range sampleProducts {
				p, err := a.Services.Products.Create(cmd.Context(), input)
				switch {
				case errors.Is(err, products.ErrSlugTaken):
					fmt.Fprintf(out, "product %q already present, skipped\n", input.Name)
				case err != nil:
					return fmt.Errorf("seed product %q: %w", input.Name, err)
				default:
					fmt.Fprintf(out, "product %s created\n", p.Slug)
				}
			}

			for _, input := range sampleDiscounts {
				c, err := a.Services.Discounts.Create(cmd.Context(), input)
				switch {
				case errors.Is(err, discounts.ErrCodeExists):
					fmt.Fprintf(out, "discount %s already present, skipped\n", input.Code)
				case err != nil:
					return fmt.Errorf("seed discount %s: %w", input.Code, err)
				default:
					fmt.Fprintf(out, "discount %s created\n", c.Code)
				}
			}

			if adminEmail == "" {
				return nil
			}
			admin, err := a.Services.Admins.Register(cmd.Context(), admins.RegisterInput{
				Email:    adminEmail,
				Name:     "Store Admin",
				Password: adminPassword,
			})
			switch {
			case errors.Is(err, admins.ErrEmailExists):
				fmt.Fprintf(out, "admin %s already present, skipped\n", adminEmail)
			case err != nil:
				return fmt.Errorf("seed admin: %w", err)
			default:
				fmt.Fprintf(out, "admin %s created\n", admin.Email)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&adminEmail, "admin-email", "", "Create an admin account with this email")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "Password for --admin-email")

	return cmd
}

func newCreateAdminCommand(ctx *commandContext) *cobra.Command {
	var input admins.RegisterInput

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a back-office admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			admin, err := a.Services.Admins.Register(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Admin %s created (id %s)\n", admin.Email, admin.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&input.Email, "email", "", "Admin email address")
	cmd.Flags().StringVar(&input.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&input.Password, "password", "", "Password (at least 8 characters)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
