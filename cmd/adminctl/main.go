// adminctl is a demonstration consumer of the session core: it boots the
// same way the admin dashboard does (tenant resolution first, then session
// hydration) and exposes the session operations as verbs.
//
//	adminctl tenant                 validate and show the resolved tenant
//	adminctl login <user> <pass>    authenticate and persist the token pair
//	adminctl whoami                 hydrate and print the current user
//	adminctl forgot <email>         request a password reset
//	adminctl logout                 destroy the session
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/voltgrid/go-admin-session/internal/config"
	"github.com/voltgrid/go-admin-session/internal/logging"
	"github.com/voltgrid/go-admin-session/session"
	"github.com/voltgrid/go-admin-session/storage"
	"github.com/voltgrid/go-admin-session/tenant"
	"github.com/voltgrid/go-admin-session/transport"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "adminctl: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel, cfg.LogPretty)

	store, err := storage.NewFileStore(cfg.StatePath)
	if err != nil {
		return err
	}

	router, err := transport.NewRouter(cfg.Hostname, store,
		transport.WithRouterLogger(log),
		transport.WithNavigator(func(path string) {
			log.Warn().Str("path", path).Msg("session expired, sign in again")
		}),
	)
	if err != nil {
		return err
	}

	resolverOptions := []tenant.ResolverOption{
		tenant.WithResolverLogger(log),
		tenant.WithBrander(tenant.BranderFunc(func(resolved *tenant.Tenant) {
			displayBanner(resolved.Name)
			log.Info().
				Str("title", resolved.WindowTitle()).
				Str("primary_color", resolved.PrimaryColor).
				Msg("branding applied")
		})),
	}
	if cfg.TenantDomain != "" {
		resolverOptions = append(resolverOptions, tenant.WithOverrideDomain(cfg.TenantDomain))
	}
	resolver, err := tenant.NewResolver(router, store, resolverOptions...)
	if err != nil {
		return err
	}

	manager, err := session.NewManager(router, resolver, store, session.WithLogger(log))
	if err != nil {
		return err
	}
	defer manager.Close()

	// Tenant resolution settles before anything tenant-scoped runs; a
	// failure degrades to "tenant unknown" and blocks authenticated verbs.
	resolved, resolveErr := resolver.Resolve(ctx)

	if len(args) == 0 {
		return usage()
	}

	switch args[0] {
	case "tenant":
		if resolveErr != nil {
			return resolveErr
		}
		fmt.Printf("%s (%s), active: %t\n", resolved.Name, resolved.Domain, resolved.IsActive)
		return nil

	case "login":
		if len(args) != 3 {
			return usage()
		}
		if resolveErr != nil {
			return resolveErr
		}
		result, err := manager.Login(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Printf("signed in as %s\n", result.User.FullName())
		return nil

	case "whoami":
		if resolveErr != nil {
			return resolveErr
		}
		if err := manager.HydrateUser(ctx); err != nil {
			return err
		}
		return printUser(manager, log)

	case "forgot":
		if len(args) != 2 {
			return usage()
		}
		manager.ForgotPassword(ctx, args[1])
		return nil

	case "logout":
		manager.Logout(ctx)
		return nil

	default:
		return usage()
	}
}

func printUser(manager *session.Manager, log zerolog.Logger) error {
	user := manager.CurrentUser()
	if user == nil {
		log.Warn().Msg("session is alive but the profile is unavailable")
		fmt.Println("signed in, profile unavailable")
		return nil
	}
	fmt.Printf("%s <%s> role=%s\n", user.FullName(), user.Email, user.Role)
	return nil
}

func usage() error {
	return fmt.Errorf("usage: adminctl tenant | login <user> <pass> | whoami | forgot <email> | logout")
}

func displayBanner(name string) {
	figure.NewFigure(name, "cybermedium", true).Print()
	fmt.Println()
}
