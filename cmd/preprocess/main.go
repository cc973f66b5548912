package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dkonyndyk/chroute/pkg/ch"
	"github.com/dkonyndyk/chroute/pkg/graph"
	osmparser "github.com/dkonyndyk/chroute/pkg/osm"
)

func main() {
	input := flag.String("input", "", "Path to .osm.pbf file")
	output := flag.String("output", "graph.bin", "Output binary graph file path")
	bbox := flag.String("bbox", "", "Bounding box filter: minLat,minLng,maxLat,maxLng (e.g. 1.15,103.6,1.48,104.1)")
	ce := flag.Float64("ce", ch.DefaultEdgeDifferenceWeight, "Edge-difference priority coefficient")
	cn := flag.Float64("cn", ch.DefaultDeletedNeighborWeight, "Deleted-neighbor priority coefficient")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: preprocess --input <file.osm.pbf> [--output graph.bin] [--bbox minLat,minLng,maxLat,maxLng]")
		os.Exit(1)
	}

	var opts osmparser.ParseOptions
	if *bbox != "" {
		var minLat, minLng, maxLat, maxLng float64
		if _, err := fmt.Sscanf(*bbox, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng); err != nil {
			log.Fatalf("invalid bbox format (expected minLat,minLng,maxLat,maxLng): %v", err)
		}
		opts.BBox = osmparser.BBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}
		log.Printf("using bounding box filter: lat [%.4f, %.4f], lng [%.4f, %.4f]", minLat, maxLat, minLng, maxLng)
	}

	start := time.Now()

	log.Println("opening OSM file...")
	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("failed to open input file: %v", err)
	}
	defer f.Close()

	log.Println("parsing OSM data...")
	parseResult, err := osmparser.Parse(context.Background(), f, opts)
	if err != nil {
		log.Fatalf("failed to parse OSM data: %v", err)
	}
	log.Printf("parsed %d edges, %d nodes", len(parseResult.Edges), len(parseResult.NodeLat))

	log.Println("building graph...")
	g, err := osmparser.BuildGraph(parseResult)
	if err != nil {
		log.Fatalf("failed to build graph: %v", err)
	}
	log.Printf("graph: %d vertices, %d edges", g.NumVertices(), g.NumEdges())

	log.Println("extracting largest connected component...")
	componentIDs := graph.LargestComponent(g)
	log.Printf("largest component: %d vertices (%.1f%%)", len(componentIDs), float64(len(componentIDs))/float64(g.NumVertices())*100)
	g = graph.FilterToComponent(g, componentIDs)
	log.Printf("filtered graph: %d vertices, %d edges", g.NumVertices(), g.NumEdges())

	log.Println("running contraction hierarchies...")
	ch.Contract(g, *ce, *cn)
	log.Printf("contraction complete: %d vertices ordered", g.NumVertices())

	log.Printf("writing binary to %s...", *output)
	if err := graph.WriteBinary(*output, g); err != nil {
		log.Fatalf("failed to write binary: %v", err)
	}

	info, _ := os.Stat(*output)
	elapsed := time.Since(start)
	log.Printf("done in %s. output: %s (%.1f MB)", elapsed.Round(time.Second), *output, float64(info.Size())/(1024*1024))
}
