package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quorumnet/overlay/internal/adminapi"
	"github.com/quorumnet/overlay/internal/config"
	"github.com/quorumnet/overlay/internal/directory"
	"github.com/quorumnet/overlay/pkg/types"
)

func main() {
	adminPort := flag.Int("admin-port", -1, "admin HTTP port (default: protocol port + 1000, 0 disables)")
	configFile := flag.String("config", config.DefaultConfigFile, "seed list file")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: seed <ip:port>")
		os.Exit(1)
	}

	self, err := config.ParseEndpoint(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}

	if err := config.EnsureSeedRegistered(*configFile, self); err != nil {
		log.Fatalf("seed: %v", err)
	}

	seeds, err := config.LoadSeedConfig(*configFile)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}

	node := directory.NewSeedNode(self, seeds)
	if err := node.Start(); err != nil {
		log.Fatalf("seed: %v", err)
	}

	var admin *adminapi.Server
	if *adminPort != 0 {
		admin = startAdmin(*adminPort, self, adminapi.NewSeedServer(node))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("[SEED %s] shutting down", self)
	node.Stop()
	if admin != nil {
		stopAdmin(admin)
	}
}

// startAdmin binds the admin server. port < 0 means "not set on the
// CLI": derive protocol-port+1000. port == 0 disables the admin
// surface entirely and this function is not called in that case.
func startAdmin(port int, self types.Endpoint, srv *adminapi.Server) *adminapi.Server {
	if port < 0 {
		port = self.Port + 1000
	}
	addr := fmt.Sprintf("%s:%d", self.Host, port)
	go func() {
		if err := srv.Start(addr); err != nil {
			log.Printf("admin server stopped: %v", err)
		}
	}()
	return srv
}

func stopAdmin(srv *adminapi.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Stop(ctx)
}
