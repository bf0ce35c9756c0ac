package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/domain/adminbus"
	"github.com/jcpaschoal/gymhub/business/domain/adminbus/stores/admindb"
	"github.com/jcpaschoal/gymhub/business/domain/offeringbus"
	"github.com/jcpaschoal/gymhub/business/domain/offeringbus/stores/legacydb"
	"github.com/jcpaschoal/gymhub/business/domain/offeringbus/stores/offeringdb"
	"github.com/jcpaschoal/gymhub/business/domain/reservationbus"
	"github.com/jcpaschoal/gymhub/business/domain/reservationbus/stores/reservationdb"
	"github.com/jcpaschoal/gymhub/business/domain/tenantbus"
	"github.com/jcpaschoal/gymhub/business/types/name"
	"github.com/jcpaschoal/gymhub/business/types/password"
	"github.com/jcpaschoal/gymhub/business/types/slug"
	"github.com/jcpaschoal/gymhub/business/types/tenantstatus"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/spf13/cobra"
)

func migrateCmd(log *logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the central database and every active gym",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			e, err := open(ctx, log)
			if err != nil {
				return err
			}
			defer e.Close()

			slugs, err := activeSlugs(ctx, e.tenantBus)
			if err != nil {
				return err
			}

			if err := e.router.WarmUp(ctx, slugs); err != nil {
				return fmt.Errorf("migrating tenants: %w", err)
			}

			fmt.Printf("migrations complete: %d gyms\n", len(slugs))
			return nil
		},
	}
}

func genKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen-key",
		Short: "Generate a private key for signing tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
			if err != nil {
				return fmt.Errorf("generating key: %w", err)
			}

			if err := os.MkdirAll(cfg.Auth.KeysFolder, 0o700); err != nil {
				return fmt.Errorf("creating keys folder: %w", err)
			}

			kid := uuid.NewString()
			path := filepath.Join(cfg.Auth.KeysFolder, kid+".pem")

			file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
			if err != nil {
				return fmt.Errorf("creating key file: %w", err)
			}
			defer file.Close()

			block := pem.Block{
				Type:  "RSA PRIVATE KEY",
				Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
			}

			if err := pem.Encode(file, &block); err != nil {
				return fmt.Errorf("encoding key: %w", err)
			}

			fmt.Printf("key written: %s\nset AUTH_ACTIVE_KID=%s\n", path, kid)
			return nil
		},
	}
}

func createPlatformAdminCmd(log *logger.Logger) *cobra.Command {
	var nameStr, emailStr, passStr string

	cmd := &cobra.Command{
		Use:   "create-platform-admin",
		Short: "Create an operator account for the platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			nme, err := name.Parse(nameStr)
			if err != nil {
				return fmt.Errorf("invalid name: %w", err)
			}

			addr, err := mail.ParseAddress(emailStr)
			if err != nil {
				return fmt.Errorf("invalid email: %w", err)
			}

			pass, err := password.Parse(passStr)
			if err != nil {
				return fmt.Errorf("invalid password: %w", err)
			}

			e, err := open(ctx, log)
			if err != nil {
				return err
			}
			defer e.Close()

			adminBus := adminbus.NewCore(admindb.NewStore(log, e.db))

			adm, err := adminBus.Create(ctx, adminbus.NewAdmin{
				Name:     nme,
				Email:    *addr,
				Password: pass,
			})
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}

			fmt.Printf("platform admin created: id[%s] email[%s]\n", adm.ID, adm.Email.Address)
			return nil
		},
	}

	cmd.Flags().StringVar(&nameStr, "name", "", "full name")
	cmd.Flags().StringVar(&emailStr, "email", "", "login email")
	cmd.Flags().StringVar(&passStr, "password", "", "login password")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}

func sweepReservationsCmd(log *logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-reservations",
		Short: "Expire slug reservations whose payment window has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			e, err := open(ctx, log)
			if err != nil {
				return err
			}
			defer e.Close()

			reservationBus := reservationbus.NewCore(log, reservationdb.NewStore(log, e.db), e.tenantBus)

			ids, err := reservationBus.SweepExpired(ctx)
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}

			fmt.Printf("reservations expired: %d\n", len(ids))
			return nil
		},
	}
}

// tenantStatusCmd builds block-tenant and unblock-tenant.
func tenantStatusCmd(log *logger.Logger, use string, short string) *cobra.Command {
	status := tenantstatus.Blocked
	if use == "unblock-tenant" {
		status = tenantstatus.Active
	}

	return &cobra.Command{
		Use:   use + " <slug>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			e, err := open(ctx, log)
			if err != nil {
				return err
			}
			defer e.Close()

			t, err := setStatus(ctx, e, args[0], status)
			if err != nil {
				return err
			}

			fmt.Printf("gym %s is now %s\n", t.Slug, t.Status)
			return nil
		},
	}
}

func deleteTenantCmd(log *logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-tenant <slug>",
		Short: "Soft delete a gym and archive its storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			e, err := open(ctx, log)
			if err != nil {
				return err
			}
			defer e.Close()

			t, err := setStatus(ctx, e, args[0], tenantstatus.Deleted)
			if err != nil {
				return err
			}

			if err := e.router.Archive(ctx, t.Slug, t.ArchiveSuffix()); err != nil {
				return fmt.Errorf("archive: %w", err)
			}

			fmt.Printf("gym %s deleted, storage archived as %s\n", t.Slug, t.ArchiveSuffix())
			return nil
		},
	}
}

func migrateLegacyOfferingsCmd(log *logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-legacy-offerings [slug...]",
		Short: "Copy the fixed legacy catalog into configurable offerings",
		Long:  "Copies the legacy pass types of the named gyms, or of every active gym when none is named. Already copied rows are skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			e, err := open(ctx, log)
			if err != nil {
				return err
			}
			defer e.Close()

			var slugs []slug.Slug
			switch len(args) {
			case 0:
				if slugs, err = activeSlugs(ctx, e.tenantBus); err != nil {
					return err
				}
			default:
				for _, arg := range args {
					slg, err := slug.Parse(arg)
					if err != nil {
						return fmt.Errorf("invalid slug %q: %w", arg, err)
					}
					slugs = append(slugs, slg)
				}
			}

			for _, slg := range slugs {
				h, err := e.router.ResolveForAdmin(ctx, slg)
				if err != nil {
					return fmt.Errorf("resolve[%s]: %w", slg, err)
				}

				offeringBus := offeringbus.NewCore(log, offeringdb.NewStore(log, h.DB), legacydb.NewStore(log, h.DB))

				n, err := offeringBus.MigrateLegacy(ctx)
				if err != nil {
					return fmt.Errorf("migrate[%s]: %w", slg, err)
				}

				fmt.Printf("%s: %d legacy pass types migrated\n", slg, n)
			}

			return nil
		},
	}
}

// =============================================================================

func setStatus(ctx context.Context, e env, arg string, status tenantstatus.Status) (tenantbus.Tenant, error) {
	slg, err := slug.Parse(arg)
	if err != nil {
		return tenantbus.Tenant{}, fmt.Errorf("invalid slug: %w", err)
	}

	t, err := e.tenantBus.QueryBySlug(ctx, slg)
	if err != nil {
		return tenantbus.Tenant{}, fmt.Errorf("query: %w", err)
	}

	t, err = e.tenantBus.SetStatus(ctx, t.ID, status)
	if err != nil {
		return tenantbus.Tenant{}, fmt.Errorf("set status: %w", err)
	}

	if err := e.router.Invalidate(ctx, t.Slug); err != nil {
		return tenantbus.Tenant{}, fmt.Errorf("invalidate: %w", err)
	}

	return t, nil
}

func activeSlugs(ctx context.Context, tenantBus *tenantbus.Core) ([]slug.Slug, error) {
	ts, err := tenantBus.QueryActive(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("query tenants: %w", err)
	}

	slugs := make([]slug.Slug, 0, len(ts))
	for _, t := range ts {
		if t.Status == tenantstatus.Active {
			slugs = append(slugs, t.Slug)
		}
	}

	return slugs, nil
}
