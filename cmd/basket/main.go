package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"basket-go/internal/app"
	"basket-go/internal/basket"
	"basket-go/internal/config"
	"basket-go/internal/encryption"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword is replaced in tests.
var readPassword = term.ReadPassword

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// newApp reads the config and creates a BasketApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "snapshot take", "restore").
func newApp(operation string) (*app.BasketApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
	a, err := app.NewBasketApp(cfg, operation, app.Options{Verbose: verbose})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// promptPassphrase reads a passphrase from the terminal without echo.
func promptPassphrase(prompt string) func() (string, error) {
	return func() (string, error) {
		fmt.Fprint(os.Stderr, prompt)
		pass, err := readPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(pass), nil
	}
}

// readInput reads a document from the named file, or from stdin for "" and "-".
func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func optionalArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

var rootCmd = &cobra.Command{
	Use:           "basket",
	Short:         "Snapshot, restore and purge configuration baskets",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration, database and keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := app.DefaultConfig(hostID, defaults)

		err = app.Initialize(defaults.ConfigPath, cfg, promptPassphrase("Passphrase for the new private key: "))
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Host ID:    %s\n", cfg.HostID)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Database:   %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		if cfg.Encryption.Type == "age" {
			recipient, err := encryption.NewAgeEncryptor(cfg.Encryption).Recipient()
			if err != nil {
				recipient = "(" + err.Error() + ")"
			}
			fmt.Printf("Public key: %s\n", recipient)
		}
		fmt.Printf("Owner:      %s/%s\n", cfg.Basket.OwnerType, cfg.Basket.OwnerValue)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:      %s (%s)\n", v.Name, v.Type)
		}
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the local database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		if err := app.Migrate(cfg); err != nil {
			return err
		}
		fmt.Println("Database is up to date.")
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List baskets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("list")
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := a.ListBaskets()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

// dump command
var dumpCmd = &cobra.Command{
	Use:   "dump NAME",
	Short: "Print the current content of a basket as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("dump")
		if err != nil {
			return err
		}
		defer a.Close()

		dump, err := a.Dump(args[0])
		if err != nil {
			return err
		}
		fmt.Println(dump)
		return nil
	},
}

// snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage basket snapshots",
}

var snapshotTakeCmd = &cobra.Command{
	Use:   "take NAME",
	Short: "Store the current content of a basket as a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("snapshot take")
		if err != nil {
			return err
		}
		defer a.Close()

		snapshot, err := a.TakeSnapshot(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Snapshot %s of %s stored\n", snapshot.Checksum.Short(), snapshot.BasketName)
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list NAME",
	Short: "List the snapshots of a basket, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("snapshot list")
		if err != nil {
			return err
		}
		defer a.Close()

		snapshots, err := a.ListSnapshots(args[0])
		if err != nil {
			return err
		}
		if len(snapshots) == 0 {
			fmt.Println("No snapshots.")
			return nil
		}
		for _, s := range snapshots {
			encrypted := ""
			if s.Encrypted {
				encrypted = "  [encrypted]"
			}
			fmt.Printf("%s  %s  %d%s\n",
				s.Checksum.Short(),
				s.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				len(s.Content),
				encrypted,
			)
		}
		return nil
	},
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print a stored snapshot of a basket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		checksum, _ := cmd.Flags().GetString("checksum")

		a, err := newApp("snapshot show")
		if err != nil {
			return err
		}
		defer a.Close()

		snapshot, err := a.ShowSnapshot(args[0], checksum)
		if err != nil {
			return err
		}
		fmt.Println(string(snapshot.Content))
		return nil
	},
}

var snapshotFetchCmd = &cobra.Command{
	Use:   "fetch CHECKSUM",
	Short: "Read an archived snapshot back from the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("snapshot fetch")
		if err != nil {
			return err
		}
		defer a.Close()

		_, content, err := a.FetchSnapshot(args[0], promptPassphrase("Passphrase: "))
		if err != nil {
			return err
		}
		fmt.Println(string(content))
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore [FILE]",
	Short: "Apply a basket document to the live configuration",
	Long: "Apply a basket document read from FILE (or stdin) to the live configuration.\n" +
		"With --purge, objects of the given types that the document does not ship are deleted.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		purge, _ := cmd.Flags().GetStringSlice("purge")
		force, _ := cmd.Flags().GetBool("force")

		raw, err := readInput(cmd.InOrStdin(), optionalArg(args))
		if err != nil {
			return err
		}

		a, err := newApp("restore")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Restore(raw, purge, force)
		if err != nil {
			return err
		}

		fmt.Printf("Restored %d object(s)\n", result.Restored)
		for _, typ := range purge {
			if deleted, ok := result.Purged[typ]; ok {
				fmt.Printf("Purged %d %s object(s)\n", len(deleted), typ)
			}
		}
		return nil
	},
}

// upload command
var uploadCmd = &cobra.Command{
	Use:   "upload NAME [FILE]",
	Short: "Store a basket document as a new snapshot",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(cmd.InOrStdin(), optionalArg(args[1:]))
		if err != nil {
			return err
		}

		a, err := newApp("upload")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Upload(args[0], raw)
		if err != nil {
			return err
		}
		if result.Created {
			fmt.Printf("Created basket %s\n", args[0])
		}
		fmt.Printf("Snapshot %s of %s stored\n", result.Snapshot.Checksum.Short(), args[0])
		return nil
	},
}

// types command
var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the supported object types",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, spec := range basket.Types() {
			purge := ""
			if spec.Purgeable {
				purge = "purgeable"
			}
			fmt.Printf("%-28s  %-40s  %s\n", spec.Name, spec.Target, purge)
		}
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("history")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				duration = op.FinishedAt.Sub(op.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-15s  %s  %-10s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Local().Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				strings.TrimSpace(op.Parameters),
			)
		}
		return nil
	},
}

// exitCode maps error kinds to distinct process exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, basket.ErrNotFound):
		return 3
	case errors.Is(err, basket.ErrMalformedDocument):
		return 4
	case errors.Is(err, basket.ErrIneligibleType):
		return 5
	case errors.Is(err, basket.ErrRefusedEmptyPurge):
		return 6
	case errors.Is(err, basket.ErrValidation):
		return 7
	default:
		return 1
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// db subcommands
	dbCmd.AddCommand(dbMigrateCmd)

	// snapshot subcommands
	snapshotCmd.AddCommand(snapshotTakeCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotShowCmd)
	snapshotShowCmd.Flags().StringP("checksum", "c", "", "Checksum (or unique prefix) of the snapshot to show")
	snapshotCmd.AddCommand(snapshotFetchCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().StringSlice("purge", nil, "Object types to purge (comma separated)")
	restoreCmd.Flags().Bool("force", false, "Allow purging every object of a type the document does not ship")
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(typesCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
