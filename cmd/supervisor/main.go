package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/quorumnet/overlay/internal/config"
	"github.com/quorumnet/overlay/internal/supervisor"
)

func main() {
	configFile := flag.String("config", supervisor.DefaultConfigFile, "supervisor YAML config file")
	seedBinary := flag.String("seed-binary", "./seed", "path to the seed executable")
	peerBinary := flag.String("peer-binary", "./peer", "path to the peer executable")
	flag.Parse()

	cfg, err := supervisor.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "supervisor:", err)
		os.Exit(1)
	}

	manager := supervisor.NewNodeManager(cfg, *seedBinary, *peerBinary)

	if err := manager.SpawnSeeds(); err != nil {
		log.Fatalf("supervisor: %v", err)
	}
	if err := manager.SpawnInitialPeers(); err != nil {
		log.Fatalf("supervisor: %v", err)
	}

	cleanup := func() {
		os.Remove("seed.log")
		os.Remove("peer.log")
		os.Remove("outputfile.txt")
		os.Remove(config.DefaultConfigFile)
	}

	supervisor.RunInteractive(manager, os.Stdin, os.Stdout, cleanup)
}
