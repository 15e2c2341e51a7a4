package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/config"
	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/importer"
	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/staging"
	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/store"
	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/web"
)

var Version = "dev"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:     "faturamento",
		Short:   "Faturamento - spreadsheet payroll import and reconciliation",
		Version: Version,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default faturamento.yaml)")

	rootCmd.AddCommand(stageCmd())
	rootCmd.AddCommand(confirmCmd())
	rootCmd.AddCommand(discardCmd())
	rootCmd.AddCommand(precheckCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openService builds the import service from configuration. The caller must
// invoke the returned cleanup function.
func openService() (*importer.Service, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}

	stg, err := staging.NewStore(cfg.StagingDir)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	return importer.NewService(st, stg, nil), func() { st.Close() }, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func stageCmd() *cobra.Command {
	var month, year int
	var kind string

	cmd := &cobra.Command{
		Use:   "stage [file]",
		Short: "Parse a spreadsheet and stage its reconciliation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService()
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.Stage(context.Background(), args[0],
				store.Period{Month: month, Year: year}, store.CollaboratorKind(kind))
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	cmd.Flags().IntVarP(&month, "month", "m", 0, "Target month (1-12)")
	cmd.Flags().IntVarP(&year, "year", "y", 0, "Target year")
	cmd.Flags().StringVarP(&kind, "kind", "k", "contractor", "Collaborator kind (contractor, employee)")
	cmd.MarkFlagRequired("month")
	cmd.MarkFlagRequired("year")

	return cmd
}

func confirmCmd() *cobra.Command {
	var merge bool

	cmd := &cobra.Command{
		Use:   "confirm [token]",
		Short: "Commit a staged import into persisted state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService()
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.Confirm(context.Background(), args[0], merge)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	cmd.Flags().BoolVar(&merge, "merge", false, "Overwrite existing records for the scope (snapshots them first)")

	return cmd
}

func discardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard [token]",
		Short: "Drop a staged import without committing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.Discard(args[0]); err != nil {
				return err
			}
			fmt.Println("discarded")
			return nil
		},
	}
}

func precheckCmd() *cobra.Command {
	var month, year int

	cmd := &cobra.Command{
		Use:   "precheck",
		Short: "Show existing records for a period before importing",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService()
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.Precheck(context.Background(), store.Period{Month: month, Year: year})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	cmd.Flags().IntVarP(&month, "month", "m", 0, "Target month (1-12)")
	cmd.Flags().IntVarP(&year, "year", "y", 0, "Target year")
	cmd.MarkFlagRequired("month")
	cmd.MarkFlagRequired("year")

	return cmd
}

func deleteCmd() *cobra.Command {
	var month, year int
	var kind string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a period's records and clean up orphans",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService()
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.DeletePeriod(context.Background(),
				store.Period{Month: month, Year: year}, store.CollaboratorKind(kind))
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	cmd.Flags().IntVarP(&month, "month", "m", 0, "Target month (1-12)")
	cmd.Flags().IntVarP(&year, "year", "y", 0, "Target year")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Restrict to one collaborator kind")
	cmd.MarkFlagRequired("month")
	cmd.MarkFlagRequired("year")

	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the import HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if addr == "" {
				addr = cfg.HTTPAddr
			}

			svc, cleanup, err := openService()
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Printf("listening on %s\n", addr)
			return web.NewServer(svc).Run(addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides config)")

	return cmd
}
