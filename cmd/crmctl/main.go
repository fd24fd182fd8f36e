// crmctl is the operator CLI: schema migrations, bulk lead import and
// employee directory maintenance, run directly against the database.
package main

import (
	"context"
	"fmt"
	"os"

	"crm.service/internal/config"
	"crm.service/internal/core"
	"crm.service/internal/ports/messaging"
	"crm.service/internal/ports/repository"
	"crm.service/pkg/aws"
	"crm.service/pkg/database"
	"crm.service/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:           "crmctl",
	Short:         "CRM back office operator CLI",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().Bool("notify", false, "publish notification events to SQS")
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("notify", rootCmd.PersistentFlags().Lookup("notify"))
}

func registerCommands() {
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(leadsCmd())
	rootCmd.AddCommand(employeesCmd())
	rootCmd.AddCommand(performanceCmd())
}

type services struct {
	leads     *core.LeadService
	employees *core.EmployeeService
	dashboard *core.DashboardService
}

// withServices opens the pool, wires the core services and runs fn.
func withServices(ctx context.Context, fn func(context.Context, services) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger.Setup(cfg.IsLocalDev, cfg.LogLevel)

	pool, err := database.NewPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	var publisher messaging.EventPublisher = messaging.NoopPublisher{}
	if viper.GetBool("notify") {
		awsCfg, err := aws.NewAWSConfig(ctx, cfg)
		if err != nil {
			return err
		}
		publisher = messaging.NewSQSProducer(sqs.NewFromConfig(awsCfg), cfg.NotificationSQSQueueURL, cfg.TimesheetSQSQueueURL)
	}

	tx := database.NewTransactionManager(pool)
	employees := repository.NewEmployeeRepository(pool)
	leads := repository.NewLeadRepository(pool)
	clock := core.RealClock()

	return fn(ctx, services{
		leads:     core.NewLeadService(tx, employees, leads, publisher, clock),
		employees: core.NewEmployeeService(tx, employees, leads, publisher, clock),
		dashboard: core.NewDashboardService(repository.NewDashboardRepository(pool), clock),
	})
}
