// cmd/stash/main.go
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"stash/internal/config"
	"stash/internal/diff"
	"stash/internal/logging"
	"stash/internal/sync"
	"stash/internal/tree"
	"stash/internal/vault"
	"stash/internal/workspace"

	"github.com/dgraph-io/badger/v4"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	profileFlag string
	dataFlag    string
	pathsFlag   []string
)

var rootCmd = &cobra.Command{
	Use:   "stash",
	Short: "Stash keeps a local folder in sync with a content-addressable vault",
	Long: `Stash pairs a local directory with a versioned vault and lets you
inspect, publish and revert the differences between them.`,
}

// app bundles everything a command needs once the database is open.
type app struct {
	db         *badger.DB
	workspaces *workspace.Store
	registry   *vault.Registry
	syncer     *sync.Syncer
	logger     *logging.Logger
}

func initApp() (*app, error) {
	cfg, err := config.Load(os.Getenv("STASH_CONFIG"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	dataDir := dataFlag
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".stash")
	}

	db, err := vault.InitDB(filepath.Join(dataDir, "db"))
	if err != nil {
		return nil, err
	}

	blobs, err := vault.NewBlobStore(db, cfg.Content.CacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}

	registry := vault.NewRegistry(db)
	provider := vault.NewProvider(db, blobs, registry, logger.Logger)
	workspaces := workspace.NewStore(db)
	locals := tree.NewRegistry(logger.Logger)

	return &app{
		db:         db,
		workspaces: workspaces,
		registry:   registry,
		syncer:     sync.NewSyncer(workspaces, provider, locals, registry, logger.Logger),
		logger:     logger,
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "closing database:", err)
	}
}

func printEntries(entries []diff.Entry) {
	add := color.New(color.FgGreen)
	remove := color.New(color.FgRed)
	modify := color.New(color.FgYellow)

	for _, entry := range entries {
		suffix := ""
		if entry.IsDir {
			suffix = "/"
		}
		switch entry.Change {
		case diff.Add:
			add.Printf("A %s%s\n", entry.Path, suffix)
		case diff.Remove:
			remove.Printf("D %s%s\n", entry.Path, suffix)
		case diff.Modify:
			modify.Printf("M %s%s\n", entry.Path, suffix)
		}
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "default", "profile to operate as")
	rootCmd.PersistentFlags().StringVar(&dataFlag, "data", "", "data directory (default ~/.stash)")

	var vaultCmd = &cobra.Command{
		Use:   "vault",
		Short: "Manage vaults",
	}

	var vaultCreateCmd = &cobra.Command{
		Use:   "create [name]",
		Short: "Create a new vault owned by the current profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp()
			if err != nil {
				return err
			}
			defer a.close()

			target := "vault://" + args[0]
			if err := a.registry.Create(profileFlag, target); err != nil {
				return fmt.Errorf("creating vault: %w", err)
			}

			fmt.Println("Created vault", target)
			return nil
		},
	}

	var vaultRetireCmd = &cobra.Command{
		Use:   "retire [name]",
		Short: "Retire a vault, blocking further writes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.registry.Retire("vault://" + args[0]); err != nil {
				return fmt.Errorf("retiring vault: %w", err)
			}

			fmt.Println("Retired vault", args[0])
			return nil
		},
	}
	vaultCmd.AddCommand(vaultCreateCmd, vaultRetireCmd)

	var workspaceCmd = &cobra.Command{
		Use:   "workspace",
		Short: "Manage workspace bindings",
	}

	var workspaceAddCmd = &cobra.Command{
		Use:   "add [name] [local-path] [target]",
		Short: "Bind a local directory to a vault target",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp()
			if err != nil {
				return err
			}
			defer a.close()

			abs, err := filepath.Abs(args[1])
			if err != nil {
				return fmt.Errorf("resolving local path: %w", err)
			}

			record := &workspace.Record{
				ProfileID: profileFlag,
				Name:      args[0],
				LocalPath: abs,
				Target:    args[2],
			}
			if err := a.workspaces.Save(record); err != nil {
				return fmt.Errorf("saving workspace: %w", err)
			}

			fmt.Printf("Bound workspace %s: %s <-> %s\n", args[0], abs, args[2])
			return nil
		},
	}

	var workspaceListCmd = &cobra.Command{
		Use:   "list",
		Short: "List workspaces for the current profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp()
			if err != nil {
				return err
			}
			defer a.close()

			records, err := a.workspaces.List(profileFlag)
			if err != nil {
				return fmt.Errorf("listing workspaces: %w", err)
			}

			for _, r := range records {
				fmt.Printf("%-20s %s <-> %s\n", r.Name, r.LocalPath, r.Target)
			}
			return nil
		},
	}

	var workspaceRemoveCmd = &cobra.Command{
		Use:   "remove [name]",
		Short: "Remove a workspace binding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.workspaces.Delete(profileFlag, args[0]); err != nil {
				return fmt.Errorf("removing workspace: %w", err)
			}

			fmt.Println("Removed workspace", args[0])
			return nil
		},
	}
	workspaceCmd.AddCommand(workspaceAddCmd, workspaceListCmd, workspaceRemoveCmd)

	var statusCmd = &cobra.Command{
		Use:   "status [workspace]",
		Short: "Show differences between the local folder and the vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp()
			if err != nil {
				return err
			}
			defer a.close()

			opts := sync.DefaultOptions()
			opts.Paths = pathsFlag

			report, err := a.syncer.ListChanges(profileFlag, args[0], opts)
			if err != nil {
				return fmt.Errorf("listing changes: %w", err)
			}
			if report.NeedsRebind {
				color.Yellow("Local folder is missing; re-bind the workspace with a new path")
				return nil
			}
			if len(report.Entries) == 0 {
				fmt.Println("Workspace is in sync")
				return nil
			}

			printEntries(report.Entries)
			return nil
		},
	}
	statusCmd.Flags().StringSliceVar(&pathsFlag, "path", nil, "restrict to explicit paths")

	var diffCmd = &cobra.Command{
		Use:   "diff [workspace] [path]",
		Short: "Show a line diff of one file against the vault",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp()
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.syncer.DiffFile(profileFlag, args[0], args[1])
			if err != nil {
				return fmt.Errorf("diffing %s: %w", args[1], err)
			}

			fmt.Print(result.Format())
			return nil
		},
	}

	var publishCmd = &cobra.Command{
		Use:   "publish [workspace] [paths...]",
		Short: "Apply local changes to the vault",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp()
			if err != nil {
				return err
			}
			defer a.close()

			opts := sync.DefaultOptions()
			opts.Paths = args[1:]

			if err := a.syncer.Publish(profileFlag, args[0], opts); err != nil {
				return fmt.Errorf("publishing: %w", err)
			}

			color.Green("Published %s", args[0])
			return nil
		},
	}

	var revertCmd = &cobra.Command{
		Use:   "revert [workspace] [paths...]",
		Short: "Restore local content from the vault",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp()
			if err != nil {
				return err
			}
			defer a.close()

			opts := sync.DefaultOptions()
			opts.Paths = args[1:]

			if err := a.syncer.Revert(profileFlag, args[0], opts); err != nil {
				return fmt.Errorf("reverting: %w", err)
			}

			color.Green("Reverted %s", args[0])
			return nil
		},
	}

	var setupCmd = &cobra.Command{
		Use:   "setup [workspace]",
		Short: "Initialize the local folder from the vault (add-only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.syncer.SetupFolder(profileFlag, args[0]); err != nil {
				return fmt.Errorf("setting up folder: %w", err)
			}

			color.Green("Set up %s", args[0])
			return nil
		},
	}

	var watchCmd = &cobra.Command{
		Use:   "watch [workspace]",
		Short: "Stream local change events until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp()
			if err != nil {
				return err
			}
			defer a.close()

			stream, err := a.syncer.Watch(profileFlag, args[0])
			if err != nil {
				return fmt.Errorf("watching: %w", err)
			}
			defer stream.Close()

			a.logger.WithWorkspace(profileFlag, args[0]).Info("watching for changes")

			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

			for {
				select {
				case event := <-stream.Events():
					fmt.Println(event.Path)
				case <-interrupt:
					return nil
				case <-stream.Done():
					return nil
				}
			}
		},
	}

	var ignoreCmd = &cobra.Command{
		Use:   "ignore [workspace] [pattern]",
		Short: "Add a pattern to the workspace ignore file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.syncer.AddIgnoreLine(profileFlag, args[0], args[1]); err != nil {
				return fmt.Errorf("adding ignore rule: %w", err)
			}

			fmt.Println("Added ignore rule:", args[1])
			return nil
		},
	}

	rootCmd.AddCommand(vaultCmd, workspaceCmd, statusCmd, diffCmd,
		publishCmd, revertCmd, setupCmd, watchCmd, ignoreCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
