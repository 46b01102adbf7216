package main

import (
	"fmt"
	"os"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// autostartProgram satisfies service.Interface. The unit runs "stopkran
// serve" directly, so these callbacks are only exercised by the control
// actions below.
type autostartProgram struct{}

func (autostartProgram) Start(service.Service) error { return nil }
func (autostartProgram) Stop(service.Service) error  { return nil }

func autostartService(cmd *cobra.Command) (service.Service, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("autostart: locate binary: %w", err)
	}

	args := []string{"serve"}
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		args = append(args, "--config", path)
	}

	return service.New(autostartProgram{}, &service.Config{
		Name:        "stopkran",
		DisplayName: "stopkran",
		Description: "Relays Claude Code permission requests to Telegram",
		Executable:  exe,
		Arguments:   args,
		Option: service.KeyValue{
			"UserService": true,
		},
	})
}

func autostartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Manage the login service for the daemon",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Install the daemon as a user service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := autostartService(cmd)
			if err != nil {
				return err
			}
			if err := svc.Install(); err != nil {
				return fmt.Errorf("autostart: install: %w", err)
			}
			fmt.Println("✅ Service installed. Start it with: stopkran autostart start")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "uninstall",
		Short: "Remove the user service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := autostartService(cmd)
			if err != nil {
				return err
			}
			if err := svc.Uninstall(); err != nil {
				return fmt.Errorf("autostart: uninstall: %w", err)
			}
			fmt.Println("Service removed.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start the installed service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := autostartService(cmd)
			if err != nil {
				return err
			}
			return svc.Start()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop the installed service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := autostartService(cmd)
			if err != nil {
				return err
			}
			return svc.Stop()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show service status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := autostartService(cmd)
			if err != nil {
				return err
			}
			status, err := svc.Status()
			if err != nil {
				return fmt.Errorf("autostart: status: %w", err)
			}
			switch status {
			case service.StatusRunning:
				fmt.Println("running")
			case service.StatusStopped:
				fmt.Println("stopped")
			default:
				fmt.Println("unknown")
			}
			return nil
		},
	})

	return cmd
}
