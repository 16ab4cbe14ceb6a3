package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/hippocampai/memgate/internal/config"
	"github.com/hippocampai/memgate/internal/health"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check environment, configuration and dependency health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("memgate doctor")
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	fmt.Printf("  Config:   %s", configPath)
	if _, err := os.Stat(configPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Store:")
	fmt.Printf("    %-12s %s\n", "backend:", cfg.Store.Backend)
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		fmt.Printf("    %-12s %s\n", "path:", cfg.Store.SQLitePath)
	case config.BackendPostgres:
		fmt.Printf("    %-12s configured (%d chars)\n", "dsn:", len(cfg.Store.PostgresDSN))
	}

	fmt.Println()
	fmt.Println("  Dependencies:")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	report := health.Run(ctx, doctorProbes(cfg))
	if len(report.Checks) == 0 {
		fmt.Println("    (none configured)")
	}
	for _, c := range report.Checks {
		status := "OK"
		if !c.OK {
			status = "FAIL: " + c.Error
		}
		fmt.Printf("    %-12s %s\n", c.Name+":", status)
	}

	fmt.Println()
	fmt.Printf("Doctor check complete (%s).\n", report.Overall)
}

func doctorProbes(cfg *config.Config) []health.Probe {
	var probes []health.Probe
	if cfg.Store.Backend == config.BackendPostgres {
		if addr, err := health.AddrFromURL(cfg.Store.PostgresDSN, "5432"); err == nil {
			probes = append(probes, health.TCPProbe("postgres", addr))
		}
	}
	if cfg.Redis.URL != "" {
		if addr, err := health.AddrFromURL(cfg.Redis.URL, "6379"); err == nil {
			probes = append(probes, health.TCPProbe("redis", addr))
		}
	}
	if cfg.Tracing.Endpoint != "" {
		if addr, err := health.AddrFromURL(cfg.Tracing.Endpoint, "4317"); err == nil {
			probes = append(probes, health.TCPProbe("otlp", addr))
		}
	}
	return probes
}
