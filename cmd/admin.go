package main

import (
	"fmt"
	"os"
	"time"

	"crm-contacts/config"
	"crm-contacts/internal/migrations"
	"crm-contacts/internal/models"
	"crm-contacts/internal/presentation"
	"crm-contacts/internal/repositories"
	"crm-contacts/internal/seed"
	"crm-contacts/internal/services"
	"crm-contacts/internal/viewstate"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back database migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE:      runMigrate,
}

var (
	seedTenant   string
	seedContacts int
	seedGroups   int
	seedValue    uint64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill a tenant with fake contacts and groups",
	RunE:  runSeed,
}

var (
	viewTenant    string
	viewSearch    string
	viewGroup     string
	viewPeriod    string
	viewSources   []string
	viewSort      string
	viewDirection string
	viewNameOrder string
	viewColumns   []string
	viewCSV       bool
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Print a filtered, sorted contacts table",
	Long: `Evaluate a contacts view against the database and print it.

Examples:
  crm-contacts view --period this_week --sort last_contacted --direction desc
  crm-contacts view --source referral --source event --columns email,company --csv`,
	RunE: runView,
}

func init() {
	seedCmd.Flags().StringVar(&seedTenant, "tenant", "", "tenant to seed (default app.default_tenant)")
	seedCmd.Flags().IntVar(&seedContacts, "contacts", 50, "number of contacts")
	seedCmd.Flags().IntVar(&seedGroups, "groups", 5, "number of groups")
	seedCmd.Flags().Uint64Var(&seedValue, "seed", 0, "random seed, 0 for random data")

	viewCmd.Flags().StringVar(&viewTenant, "tenant", "", "tenant to view (default app.default_tenant)")
	viewCmd.Flags().StringVarP(&viewSearch, "search", "s", "", "search text")
	viewCmd.Flags().StringVar(&viewGroup, "group", "", "only contacts of this group id")
	viewCmd.Flags().StringVar(&viewPeriod, "period", "all", "all, today, this_week, last_week, this_month, last_month or older")
	viewCmd.Flags().StringSliceVar(&viewSources, "source", nil, "source filter, repeatable")
	viewCmd.Flags().StringVar(&viewSort, "sort", "name", "sort field")
	viewCmd.Flags().StringVar(&viewDirection, "direction", "asc", "asc or desc")
	viewCmd.Flags().StringVar(&viewNameOrder, "name-order", "first_last", "first_last or last_first")
	viewCmd.Flags().StringSliceVar(&viewColumns, "columns", nil, "visible columns (default email,phone,company,source,last_contacted)")
	viewCmd.Flags().BoolVar(&viewCSV, "csv", false, "write CSV instead of a table")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	m, err := migrations.New(&cfg.Database, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	if args[0] == "down" {
		return m.Down()
	}
	return m.Up()
}

func tenantGateway(cfg *config.Config, logger *zap.Logger, tenantID string) (*services.LocalGateway, func(), error) {
	db, err := config.ConnectDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := migrateUp(&cfg.Database, logger); err != nil {
		db.Close()
		return nil, nil, err
	}
	if tenantID == "" {
		tenantID = cfg.App.DefaultTenant
	}
	gw := services.NewLocalGateway(tenantID,
		repositories.NewSQLContactRepository(db),
		repositories.NewSQLGroupRepository(db),
		nil, nil, nil)
	return gw, func() { db.Close() }, nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	gw, closeDB, err := tenantGateway(cfg, logger, seedTenant)
	if err != nil {
		return err
	}
	defer closeDB()

	start := time.Now()
	res, err := seed.Run(cmd.Context(), gw, seed.Options{
		Contacts: seedContacts,
		Groups:   seedGroups,
		Seed:     seedValue,
	})
	if err != nil {
		return err
	}
	logger.Info("Seed complete",
		zap.String("tenant_id", gw.TenantID()),
		zap.Int("contacts", len(res.Contacts)),
		zap.Int("groups", len(res.Groups)),
		zap.Duration("took", time.Since(start)))
	return nil
}

func runView(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	period, err := viewstate.ParseDatePeriod(viewPeriod)
	if err != nil {
		return err
	}
	field, err := viewstate.ParseSortField(viewSort)
	if err != nil {
		return err
	}
	direction, err := viewstate.ParseDirection(viewDirection)
	if err != nil {
		return err
	}
	nameOrder, err := viewstate.ParseNameOrder(viewNameOrder)
	if err != nil {
		return err
	}

	gw, closeDB, err := tenantGateway(cfg, logger, viewTenant)
	if err != nil {
		return err
	}
	defer closeDB()

	cache := viewstate.NewQueryCache(viewstate.DefaultCacheTTLs(), viewstate.WithCacheLogger(logger))
	defer cache.Wait()
	defer cache.Close()

	columns := viewstate.DefaultColumnModel()
	if len(viewColumns) > 0 {
		ids := make([]viewstate.ColumnID, 0, len(viewColumns))
		for _, c := range viewColumns {
			ids = append(ids, viewstate.ColumnID(c))
		}
		columns = viewstate.NewColumnModel(ids, nil)
	}

	view := viewstate.NewContactsView(gw, cache,
		viewstate.WithEngine(viewstate.NewEngine(viewstate.WithLanguage(language.Make(cfg.App.Locale)))),
		viewstate.WithColumns(columns),
		viewstate.WithViewLogger(logger),
	)
	defer view.Close()

	view.SetGroupFilter(viewGroup)
	if err := view.Load(cmd.Context()); err != nil {
		return err
	}

	sources := make([]models.Source, 0, len(viewSources))
	for _, s := range viewSources {
		src := models.Source(s)
		if !src.Valid() {
			return fmt.Errorf("unknown source %q", s)
		}
		sources = append(sources, src)
	}
	view.SetSources(sources)
	view.SetSearch(viewSearch)
	view.SetPeriod(period)
	view.SetSort(viewstate.SortSpec{Field: field, Direction: direction, NameOrder: nameOrder})

	if viewCSV {
		return view.Export(os.Stdout)
	}
	fmt.Fprintln(os.Stdout, presentation.RenderTable(view.Table()))
	return nil
}
