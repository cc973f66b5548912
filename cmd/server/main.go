package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/dkonyndyk/chroute/pkg/api"
	"github.com/dkonyndyk/chroute/pkg/graph"
	"github.com/dkonyndyk/chroute/pkg/routing"
)

func main() {
	graphPath := flag.String("graph", "graph.bin", "Path to preprocessed graph binary")
	port := flag.Int("port", 8080, "HTTP port")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	flag.Parse()

	start := time.Now()

	log.Printf("loading graph from %s...", *graphPath)
	g, err := graph.ReadBinary(*graphPath)
	if err != nil {
		log.Fatalf("failed to load graph: %v", err)
	}
	log.Printf("loaded: %d vertices, %d edges", g.NumVertices(), g.NumEdges())

	log.Println("building spatial index...")
	engine := routing.NewEngine(g)

	// Reclaim memory from init-time temporaries, same as the R-tree
	// construction step this mirrors: GC doubles heap each cycle during
	// index build, so return unused pages to the OS before serving.
	runtime.GC()
	debug.FreeOSMemory()

	log.Printf("ready in %s", time.Since(start).Round(time.Millisecond))

	addr := fmt.Sprintf(":%d", *port)
	cfg := api.DefaultConfig(addr)
	cfg.CORSOrigin = *corsOrigin

	stats := api.StatsResponse{
		NumVertices: g.NumVertices(),
		NumEdges:    g.NumEdges(),
	}

	handlers := api.NewHandlers(engine, stats)
	srv := api.NewServer(cfg, handlers)

	if err := api.ListenAndServe(srv); err != nil {
		log.Printf("server stopped: %v", err)
		os.Exit(1)
	}
}
