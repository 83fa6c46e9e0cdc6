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
	"github.com/quorumnet/overlay/internal/peer"
	"github.com/quorumnet/overlay/pkg/types"
)

func main() {
	adminPort := flag.Int("admin-port", -1, "admin HTTP port (default: protocol port + 1000, 0 disables)")
	configFile := flag.String("config", config.DefaultConfigFile, "seed list file")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: peer <ip:port>")
		os.Exit(1)
	}

	self, err := config.ParseEndpoint(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "peer:", err)
		os.Exit(1)
	}

	seeds, err := config.LoadSeedConfig(*configFile)
	if err != nil {
		log.Fatalf("peer: %v", err)
	}
	if len(seeds.Seeds) == 0 {
		log.Fatalf("peer: %v", fmt.Errorf("no seeds configured in %s", *configFile))
	}

	node := peer.NewPeerNode(self, seeds)

	var admin *adminapi.Server
	if *adminPort != 0 {
		admin = startAdmin(*adminPort, self, adminapi.NewPeerServer(node))
	}

	go func() {
		if err := node.Run(); err != nil {
			log.Printf("[%s] peer stopped: %v", self, err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("[%s] shutting down", self)
	node.Stop()
	if admin != nil {
		stopAdmin(admin)
	}
}

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
