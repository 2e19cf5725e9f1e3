package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/testlang/pkg/api"
	grpcapi "github.com/lemonberrylabs/testlang/pkg/api/grpc"
	"github.com/lemonberrylabs/testlang/pkg/runner"
	"github.com/lemonberrylabs/testlang/pkg/store"
	"github.com/lemonberrylabs/testlang/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the playground REST API, gRPC services and web UI",
	Args:  cobra.NoArgs,
	RunE:  serve,
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP server port (default 8787, env PORT)")
	serveCmd.Flags().Int("grpc-port", 0, "gRPC server port (default 8788, env GRPC_PORT)")
	serveCmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")
	serveCmd.Flags().String("namespace", "", "Namespace shown in the web UI and used for loaded programs (default default, env NAMESPACE)")
	serveCmd.Flags().String("programs-dir", "", "Directory of .tstl programs to deploy at startup (env PROGRAMS_DIR)")
	serveCmd.Flags().Int("max-steps", 0, "Step limit of every run (default 1000000, env MAX_STEPS)")
	serveCmd.Flags().Bool("access-log", false, "Log every HTTP request")
}

func serve(cmd *cobra.Command, args []string) error {
	port := envOrDefault("PORT", "8787")
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		port = fmt.Sprintf("%d", v)
	}

	grpcPort := envOrDefault("GRPC_PORT", "8788")
	if v, _ := cmd.Flags().GetInt("grpc-port"); v != 0 {
		grpcPort = fmt.Sprintf("%d", v)
	}

	host := envOrDefault("HOST", "0.0.0.0")
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		host = v
	}

	namespace := envOrDefault("NAMESPACE", "default")
	if v, _ := cmd.Flags().GetString("namespace"); v != "" {
		namespace = v
	}

	programsDir := os.Getenv("PROGRAMS_DIR")
	if v, _ := cmd.Flags().GetString("programs-dir"); v != "" {
		programsDir = v
	}

	maxSteps, err := strconv.Atoi(envOrDefault("MAX_STEPS", "1000000"))
	if err != nil {
		return fmt.Errorf("invalid MAX_STEPS: %w", err)
	}
	if v, _ := cmd.Flags().GetInt("max-steps"); v != 0 {
		maxSteps = v
	}

	accessLog, _ := cmd.Flags().GetBool("access-log")

	addr := fmt.Sprintf("%s:%s", host, port)
	grpcAddr := fmt.Sprintf("%s:%s", host, grpcPort)

	r := runner.New(store.New(), maxSteps)
	server := api.New(r, api.Config{AccessLog: accessLog})

	if programsDir != "" {
		if _, err := server.LoadDir(programsDir, "namespaces/"+namespace); err != nil {
			log.Printf("Warning: failed to load programs directory: %v", err)
		}
	}

	// Register the web UI (non-fatal if template parsing fails)
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("Warning: web UI disabled due to template error: %v", rec)
			}
		}()
		web.New(r, namespace).Register(server.App())
	}()

	grpcServer := grpcapi.New(r)
	go func() {
		log.Printf("gRPC server listening on %s", grpcAddr)
		if err := grpcServer.Serve(grpcAddr); err != nil {
			log.Fatalf("gRPC server error: %v", err)
		}
	}()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		grpcServer.GracefulStop()
		if err := server.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("testlang playground listening on %s (namespace=%s, max steps=%d)", addr, namespace, maxSteps)
	return server.Listen(addr)
}
