package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bookstore/storefront/internal/domain/cart"
	"github.com/bookstore/storefront/internal/domain/session"
	"github.com/bookstore/storefront/internal/domain/shared/valueobject"
	"github.com/bookstore/storefront/internal/infrastructure/auth"
	"github.com/bookstore/storefront/internal/infrastructure/config"
	"github.com/bookstore/storefront/internal/infrastructure/localstore"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	driver  string
	path    string
	jsonOut bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "cartctl",
		Short: "Inspect the storefront's local cart snapshot and stored session",
		Long: `cartctl reads the same local key/value store the storefront uses,
so a stuck or corrupt cart can be examined and cleared without starting
the service.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.driver, "driver", "", "local store driver (sqlite, redis); defaults to the configured driver")
	root.PersistentFlags().StringVar(&opts.path, "path", "", "sqlite file path; defaults to the configured path")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print JSON instead of a table")

	root.AddCommand(
		newSnapshotCmd(opts),
		newPurgeCmd(opts),
		newSessionCmd(opts),
	)
	return root
}

// loadConfig reads the storefront configuration and applies flag overrides
func loadConfig(opts *globalOptions) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.driver != "" {
		cfg.LocalStore.Driver = opts.driver
	}
	if opts.path != "" {
		cfg.LocalStore.Path = opts.path
	}
	if cfg.LocalStore.Driver == config.DriverMemory {
		return nil, errors.New("the memory driver keeps nothing between runs; use sqlite or redis")
	}
	// An empty fallback store would report an empty cart that is not there
	cfg.LocalStore.AllowMemoryFallback = false
	return cfg, nil
}

func openStore(opts *globalOptions) (localstore.Store, *config.Config, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, nil, err
	}
	store, err := localstore.NewFactory(cfg.LocalStore).CreateStore()
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func newSnapshotCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print the locally stored cart and its totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cfg, err := openStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			snapshots := localstore.NewCartSnapshotStore(store, cfg.LocalStore.CartKey, valueobject.Currency(cfg.Cart.Currency))
			state, found, err := snapshots.Load(cmd.Context())
			if err != nil {
				return err
			}
			return printSnapshot(cmd.OutOrStdout(), state, found, opts.jsonOut)
		},
	}
}

type snapshotOutput struct {
	Found      bool              `json:"found"`
	Cart       cart.State        `json:"cart"`
	TotalItems int               `json:"total_items"`
	TotalPrice valueobject.Money `json:"total_price"`
}

func printSnapshot(w io.Writer, state cart.State, found, jsonOut bool) error {
	if jsonOut {
		return writeJSON(w, snapshotOutput{
			Found:      found,
			Cart:       state,
			TotalItems: state.TotalItems(),
			TotalPrice: state.TotalPrice(),
		})
	}

	if !found {
		fmt.Fprintln(w, "No cart snapshot stored")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tTITLE\tQTY\tUNIT PRICE\tSUBTOTAL\tLINE")
	for _, item := range state.Items() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			item.ProductID(),
			item.Product.Title,
			item.Quantity,
			item.Product.Price,
			item.Subtotal(),
			item.RemoteLineID,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d item(s), total %s %s\n", state.TotalItems(), state.TotalPrice(), state.Currency())
	return nil
}

func newPurgeCmd(opts *globalOptions) *cobra.Command {
	var withSession bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete the locally stored cart snapshot",
		Long: `purge deletes the local cart snapshot. The storefront starts from an
empty cart on its next load; a signed-in cart is fetched again from the
bookstore backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cfg, err := openStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			if err := store.Delete(ctx, cfg.LocalStore.CartKey); err != nil {
				return fmt.Errorf("failed to delete cart snapshot: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", cfg.LocalStore.CartKey)

			if withSession {
				if err := store.Delete(ctx, cfg.LocalStore.CredentialKey); err != nil {
					return fmt.Errorf("failed to delete stored credential: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", cfg.LocalStore.CredentialKey)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withSession, "session", false, "also delete the stored credential")
	return cmd
}

type sessionOutput struct {
	session.Identity
	Subject   string     `json:"subject,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   bool       `json:"expired"`
	Problem   string     `json:"problem,omitempty"`
}

func newSessionCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Print the identity of the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cfg, err := openStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			out, err := describeSession(cmd, store, cfg.LocalStore.CredentialKey, time.Now())
			if err != nil {
				return err
			}
			return printSession(cmd.OutOrStdout(), out, opts.jsonOut)
		},
	}
}

// describeSession reads the stored credential the way the storefront
// restores it at startup, without discarding a bad one
func describeSession(cmd *cobra.Command, store localstore.Store, key string, now time.Time) (sessionOutput, error) {
	raw, err := store.Get(cmd.Context(), key)
	if errors.Is(err, localstore.ErrNotFound) {
		return sessionOutput{Identity: session.Anonymous()}, nil
	}
	if err != nil {
		return sessionOutput{}, err
	}

	cred, err := auth.ParseCredential(string(raw))
	if err != nil {
		return sessionOutput{Identity: session.Anonymous(), Problem: err.Error()}, nil
	}
	out := sessionOutput{
		Identity: session.SignedInAs(cred.UserID),
		Subject:  cred.Subject,
		Expired:  cred.Expired(now),
	}
	if !cred.ExpiresAt.IsZero() {
		out.ExpiresAt = &cred.ExpiresAt
	}
	if out.Expired {
		out.Identity = session.Anonymous()
		out.Problem = auth.ErrExpiredToken.Error()
	}
	return out, nil
}

func printSession(w io.Writer, out sessionOutput, jsonOut bool) error {
	if jsonOut {
		return writeJSON(w, out)
	}
	if !out.SignedIn {
		if out.Problem != "" {
			fmt.Fprintf(w, "Signed out (stored credential unusable: %s)\n", out.Problem)
			return nil
		}
		fmt.Fprintln(w, "Signed out")
		return nil
	}
	fmt.Fprintf(w, "Signed in as user %s", out.UserID)
	if out.Subject != "" {
		fmt.Fprintf(w, " (%s)", out.Subject)
	}
	fmt.Fprintln(w)
	if out.ExpiresAt != nil {
		fmt.Fprintf(w, "Expires %s\n", out.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
