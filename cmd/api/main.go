package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/inkbook/studio/cmd/api/commands"
)

// @title InkBook API
// @version 1.0
// @description Booking API for a tattoo studio: public booking form, owner booking management and owner notifications.

// @contact.name InkBook Studio
// @contact.url https://github.com/inkbook/studio

// @license.name MIT

// @host localhost:3000
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	rootCmd := &cobra.Command{
		Use:           "inkbook",
		Short:         "InkBook tattoo studio booking server",
		Long:          `InkBook takes session requests from the studio website, stores them and notifies the studio owner.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewBookingsCommand())
	rootCmd.AddCommand(commands.NewAdminCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
