package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/andrew-kemp/EasySwanVPN/internal/auth"
	"github.com/andrew-kemp/EasySwanVPN/internal/ca"
	"github.com/andrew-kemp/EasySwanVPN/internal/config"
	"github.com/andrew-kemp/EasySwanVPN/internal/db"
	"github.com/andrew-kemp/EasySwanVPN/internal/db/repository"
	"github.com/andrew-kemp/EasySwanVPN/internal/store"
	"github.com/spf13/cobra"
)

var (
	configPath string
	cfg        *config.Config
	database   *db.DB
)

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "EasySwanVPN Portal administration tool",
	Long:  "Administrative tool for managing portal principals, CAs, and audit logs",
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Hash a password for the portal config",
	Args:  cobra.ExactArgs(1),
	RunE:  hashPassword,
}

var principalCmd = &cobra.Command{
	Use:   "principal",
	Short: "Manage principals",
}

var principalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all principals",
	RunE:  listPrincipals,
}

var principalShowCmd = &cobra.Command{
	Use:   "show <username>",
	Short: "Show a principal's TOTP provisioning details",
	Args:  cobra.ExactArgs(1),
	RunE:  showPrincipal,
}

var caCmd = &cobra.Command{
	Use:   "ca",
	Short: "Manage certificate authorities",
}

var caListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all CAs",
	RunE:  listCAs,
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query audit logs",
	RunE:  listAudit,
}

var (
	auditUsername string
	auditAction   string
	auditLimit    int
)

func init() {
	// Root flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/easyswanvpn/config.yaml", "Config file path")

	// Audit flags
	auditCmd.Flags().StringVarP(&auditUsername, "username", "u", "", "Filter by username")
	auditCmd.Flags().StringVarP(&auditAction, "action", "a", "", "Filter by action")
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 50, "Maximum entries to show")

	// Add commands
	principalCmd.AddCommand(principalListCmd)
	principalCmd.AddCommand(principalShowCmd)
	caCmd.AddCommand(caListCmd)
	rootCmd.AddCommand(hashPasswordCmd)
	rootCmd.AddCommand(principalCmd)
	rootCmd.AddCommand(caCmd)
	rootCmd.AddCommand(auditCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig() error {
	var err error
	cfg, err = config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

func initDB() error {
	if err := initConfig(); err != nil {
		return err
	}

	var err error
	database, err = db.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	return nil
}

// openStore picks the same principal store backend the portal uses.
func openStore() (store.Store, func(), error) {
	if cfg.Storage.Backend == "sqlite" {
		if err := initDB(); err != nil {
			return nil, nil, err
		}
		cleanup := func() { database.Close() }
		return store.NewSQLiteStore(repository.NewPrincipalRepository(database.DB)), cleanup, nil
	}
	return store.NewFileStore(cfg.Storage.PrincipalsPath), func() {}, nil
}

func hashPassword(cmd *cobra.Command, args []string) error {
	hash, err := auth.HashPassword(args[0])
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	fmt.Println(hash)
	return nil
}

func listPrincipals(cmd *cobra.Command, args []string) error {
	if err := initConfig(); err != nil {
		return err
	}

	principals, cleanup, err := openStore()
	if err != nil {
		return err
	}
	defer cleanup()

	all, err := principals.Load()
	if err != nil {
		return fmt.Errorf("failed to load principals: %w", err)
	}

	if len(all) == 0 {
		fmt.Println("No principals found")
		return nil
	}

	fmt.Printf("\nTotal principals: %d\n\n", len(all))
	fmt.Printf("%-20s %s\n", "Username", "MFA Enabled")
	fmt.Println("--------------------------------")

	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		enabledStr := "No"
		if all[name].MFAEnabled {
			enabledStr = "Yes"
		}
		fmt.Printf("%-20s %s\n", name, enabledStr)
	}

	return nil
}

func showPrincipal(cmd *cobra.Command, args []string) error {
	if err := initConfig(); err != nil {
		return err
	}

	principals, cleanup, err := openStore()
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := principals.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to read principal: %w", err)
	}
	if p == nil {
		return fmt.Errorf("principal not found: %s", args[0])
	}

	uri := auth.ProvisioningURI(p.TOTPSecret, p.Username, cfg.Auth.Issuer)

	fmt.Printf("Username:    %s\n", p.Username)
	fmt.Printf("MFA Enabled: %t\n", p.MFAEnabled)
	fmt.Printf("TOTP Secret: %s\n", p.TOTPSecret)
	fmt.Printf("TOTP URI:    %s\n", uri)
	fmt.Printf("\nScan the URI with a TOTP app (Google Authenticator, Authy, etc.)\n")

	return nil
}

func listCAs(cmd *cobra.Command, args []string) error {
	if err := initConfig(); err != nil {
		return err
	}

	registry, err := ca.NewRegistry(cfg.CA.Dir)
	if err != nil {
		return fmt.Errorf("failed to open CA registry: %w", err)
	}

	names, err := registry.List()
	if err != nil {
		return fmt.Errorf("failed to list CAs: %w", err)
	}

	if len(names) == 0 {
		fmt.Println("No CAs found")
		return nil
	}

	for _, name := range names {
		fmt.Println(name)
	}

	return nil
}

func listAudit(cmd *cobra.Command, args []string) error {
	if err := initDB(); err != nil {
		return err
	}
	defer database.Close()

	auditRepo := repository.NewAuditRepository(database.DB)
	entries, err := auditRepo.List(auditUsername, auditAction, auditLimit)
	if err != nil {
		return fmt.Errorf("failed to query audit logs: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No audit entries found")
		return nil
	}

	fmt.Printf("%-20s %-12s %-15s %-8s %s\n", "Timestamp", "Action", "Username", "Success", "Details")
	fmt.Println("--------------------------------------------------------------------------------")

	for _, e := range entries {
		successStr := "no"
		if e.Success {
			successStr = "yes"
		}
		detail := e.Details
		if !e.Success && e.ErrorMsg != "" {
			detail = e.ErrorMsg
		}
		fmt.Printf("%-20s %-12s %-15s %-8s %s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.Action,
			e.Username,
			successStr,
			detail,
		)
	}

	return nil
}
