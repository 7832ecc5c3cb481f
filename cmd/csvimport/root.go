package main

import (
	"fmt"

	"github.com/roster-import-api/internal/config"
	"github.com/roster-import-api/internal/database"
	"github.com/roster-import-api/internal/permission"
	"github.com/roster-import-api/internal/repository"
	"github.com/roster-import-api/internal/service"
	"github.com/roster-import-api/pkg/logger"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:          "csvimport",
		Short:        "Validate or apply a roster CSV file",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.NewWithWriter(cfg.Log, cmd.ErrOrStderr())

			db, err := database.New(&cfg.Database, log)
			if err != nil {
				return err
			}
			defer db.Close()

			authz, err := permission.NewEnforcer(cfg.Authz.ModelPath, cfg.Authz.PolicyPath, log)
			if err != nil {
				return err
			}

			services := service.NewServices(repository.New(db), authz, cfg, log)
			return runImport(cmd.Context(), services.Import, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.entity, "entity", "", fmt.Sprintf("Entity to import (one of %v)", entityNames()))
	cmd.Flags().StringVar(&opts.file, "file", "", "CSV file to import (required)")
	cmd.Flags().StringVar(&opts.userID, "user", "", "Acting user id (required)")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Commit the import (default dry-run)")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
