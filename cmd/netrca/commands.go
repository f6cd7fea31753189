package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jimyag/netrca/internal/netrca"
	"github.com/jimyag/netrca/internal/netrca/config"
	"github.com/jimyag/netrca/internal/netrca/service"
	"github.com/spf13/cobra"
)

var configPath string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "netrca",
		Short:         "Tenant-isolated network snapshot and RCA service backed by Batfish",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("NETRCA_CONFIG"), "path to the YAML config file")

	root.AddCommand(
		newServeCommand(),
		newToolsCommand(),
		newHealthCommand(),
		newIngestCommand(),
		newRunCommand(),
	)
	return root
}

func loadServer() (*netrca.Server, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return netrca.New(cfg)
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := loadServer()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Run(ctx)
		},
	}
}

func newToolsCommand() *cobra.Command {
	var definitions bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the RCA tool catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !definitions {
				for _, name := range service.ToolNames() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}
			server, err := loadServer()
			if err != nil {
				return err
			}
			defer server.Close()
			return printJSON(cmd, server.Tools().ToolDefinitions())
		},
	}
	cmd.Flags().BoolVar(&definitions, "definitions", false, "print function-call definitions for the agent layer")
	return cmd
}

func newHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the Batfish backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := loadServer()
			if err != nil {
				return err
			}
			defer server.Close()

			resp, checkErr := server.Tools().CheckHealth(cmd.Context())
			if err := printJSON(cmd, resp); err != nil {
				return err
			}
			return checkErr
		},
	}
}

func newIngestCommand() *cobra.Command {
	var owner, name, configsRoot string
	var strict bool
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Create or refresh a snapshot from device configs",
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := loadServer()
			if err != nil {
				return err
			}
			defer server.Close()

			ctx := cmd.Context()
			create := server.Snapshots().CreateOrRefresh
			if strict {
				create = server.Snapshots().Create
			}
			snap, err := create(ctx, owner, name, configsRoot)
			if err != nil {
				return err
			}
			return printJSON(cmd, snap)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "tenant that owns the snapshot")
	cmd.Flags().StringVar(&name, "name", "", "snapshot name")
	cmd.Flags().StringVar(&configsRoot, "configs-root", "", "directory holding device configs (defaults to GNS3_ROOT)")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail if a snapshot with this name already exists")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newRunCommand() *cobra.Command {
	var owner, snapshotID, tool string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one RCA tool, or every tool when --tool is omitted",
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := loadServer()
			if err != nil {
				return err
			}
			defer server.Close()

			ctx := cmd.Context()
			if tool != "" {
				out, err := server.Tools().RunTool(ctx, owner, snapshotID, tool)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}
			results, err := server.Tools().RunAllTools(ctx, owner, snapshotID)
			if err != nil {
				return err
			}
			for _, name := range service.ToolNames() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", results[name])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "tenant that owns the snapshot")
	cmd.Flags().StringVar(&snapshotID, "snapshot", "", "snapshot id")
	cmd.Flags().StringVar(&tool, "tool", "", "tool name, see `netrca tools`")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("snapshot")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

